// Package appointments expands repeating appointment series into dates and exports a
// series as an iCalendar feed.
package appointments

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"activities/internal/simpledate"
)

// Frequency is how often a series repeats.
type Frequency string

const (
	Weekday     Frequency = "WEEKDAY"
	Daily       Frequency = "DAILY"
	Weekly      Frequency = "WEEKLY"
	Fortnightly Frequency = "FORTNIGHTLY"
	Monthly     Frequency = "MONTHLY"
)

// Frequencies in the order they are offered.
var Frequencies = []Frequency{Weekday, Daily, Weekly, Fortnightly, Monthly}

// Label is the radio text for a frequency.
func (f Frequency) Label() string {
	switch f {
	case Weekday:
		return "Every weekday (Monday to Friday)"
	case Daily:
		return "Daily (includes weekends)"
	case Weekly:
		return "Weekly"
	case Fortnightly:
		return "Fortnightly"
	case Monthly:
		return "Monthly"
	}
	return string(f)
}

// ParseFrequency accepts the form value of a frequency.
func ParseFrequency(s string) (Frequency, bool) {
	for _, f := range Frequencies {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// MaxCount is the largest number of appointments a series of f may contain.
func MaxCount(f Frequency) int {
	switch f {
	case Weekday:
		return 260
	case Daily:
		return 365
	case Weekly:
		return 52
	case Fortnightly:
		return 26
	case Monthly:
		return 12
	}
	return 1
}

func option(start time.Time, f Frequency, count int) (rrule.ROption, error) {
	o := rrule.ROption{Dtstart: start, Count: count, Interval: 1}
	switch f {
	case Weekday:
		o.Freq = rrule.DAILY
		o.Byweekday = []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR}
	case Daily:
		o.Freq = rrule.DAILY
	case Weekly:
		o.Freq = rrule.WEEKLY
	case Fortnightly:
		o.Freq = rrule.WEEKLY
		o.Interval = 2
	default:
		return o, fmt.Errorf("unknown repeat frequency %q", f)
	}
	return o, nil
}

// Dates lists the dates of a series of count appointments starting on start.
func Dates(start simpledate.SimpleDate, f Frequency, count int) ([]simpledate.SimpleDate, error) {
	t, ok := start.Time()
	if !ok {
		return nil, fmt.Errorf("invalid start date %s", start)
	}
	if count < 1 {
		return nil, fmt.Errorf("repeat count must be at least 1, got %d", count)
	}
	if f == Monthly {
		return monthly(start, count), nil
	}
	o, err := option(t, f, count)
	if err != nil {
		return nil, err
	}
	r, err := rrule.NewRRule(o)
	if err != nil {
		return nil, fmt.Errorf("build repeat rule: %w", err)
	}
	// The first appointment is always on the start date, even a weekend one for
	// weekday series.
	out := []simpledate.SimpleDate{start}
	for _, d := range r.All() {
		if len(out) == count {
			break
		}
		if sd := simpledate.FromTime(d); !sd.Equal(start) {
			out = append(out, sd)
		}
	}
	return out, nil
}

// monthly steps whole calendar months from start, moving the day back to the end of
// shorter months: 31 January is followed by 29 February and 31 March.
func monthly(start simpledate.SimpleDate, count int) []simpledate.SimpleDate {
	out := make([]simpledate.SimpleDate, 0, count)
	for i := 0; i < count; i++ {
		m := start.Month - 1 + i
		year, month := start.Year+m/12, m%12+1
		day := start.Day
		if last := daysIn(year, month); day > last {
			day = last
		}
		out = append(out, simpledate.New(day, month, year))
	}
	return out
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// LastDate is the date of the final appointment in a series.
func LastDate(start simpledate.SimpleDate, f Frequency, count int) (simpledate.SimpleDate, error) {
	dates, err := Dates(start, f, count)
	if err != nil {
		return simpledate.SimpleDate{}, err
	}
	if len(dates) == 0 {
		return simpledate.SimpleDate{}, fmt.Errorf("series starting %s has no dates", start)
	}
	return dates[len(dates)-1], nil
}

package simpledate

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	isoLayout     = "2006-01-02"
	displayLayout = "Monday, 2 January 2006"
)

// SimpleDate is the day/month/year triple entered on date forms. Month is 1-indexed.
// The triple may not denote a real date; validity is checked by the validators.
type SimpleDate struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

// New builds a SimpleDate from its parts without checking them.
func New(day, month, year int) SimpleDate {
	return SimpleDate{Day: day, Month: month, Year: year}
}

// FromTime converts a calendar date into a triple.
func FromTime(t time.Time) SimpleDate {
	return SimpleDate{Day: t.Day(), Month: int(t.Month()), Year: t.Year()}
}

// ParseISO parses a yyyy-MM-dd string as exchanged with the APIs.
func ParseISO(s string) (SimpleDate, error) {
	t, err := time.Parse(isoLayout, strings.TrimSpace(s))
	if err != nil {
		return SimpleDate{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return FromTime(t), nil
}

// MustParseISO is ParseISO for literals known to be valid.
func MustParseISO(s string) SimpleDate {
	d, err := ParseISO(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromForm reads <prefix>-day, <prefix>-month and <prefix>-year. Parts that are not
// numbers come back as zero so the range checks reject them.
func FromForm(values url.Values, prefix string) SimpleDate {
	return SimpleDate{
		Day:   formInt(values, prefix+"-day"),
		Month: formInt(values, prefix+"-month"),
		Year:  formInt(values, prefix+"-year"),
	}
}

// Blank reports whether none of the date parts were filled in on the form.
func Blank(values url.Values, prefix string) bool {
	for _, part := range []string{"-day", "-month", "-year"} {
		if strings.TrimSpace(values.Get(prefix+part)) != "" {
			return false
		}
	}
	return true
}

func formInt(values url.Values, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(values.Get(key)))
	if err != nil {
		return 0
	}
	return n
}

// IsZero reports whether no part has been set.
func (d SimpleDate) IsZero() bool {
	return d.Day == 0 && d.Month == 0 && d.Year == 0
}

// Time returns the date at midnight UTC and whether the triple is a real calendar date.
// An invalid triple yields the zero time and false.
func (d SimpleDate) Time() (time.Time, bool) {
	if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Year < 1 {
		return time.Time{}, false
	}
	t := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
	if t.Day() != d.Day || int(t.Month()) != d.Month || t.Year() != d.Year {
		return time.Time{}, false
	}
	return t, true
}

// Valid reports whether the triple denotes a real calendar date.
func (d SimpleDate) Valid() bool {
	_, ok := d.Time()
	return ok
}

// ISO renders yyyy-MM-dd.
func (d SimpleDate) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d SimpleDate) String() string { return d.ISO() }

// Display renders the long form used in page content and messages.
func (d SimpleDate) Display() string {
	t, ok := d.Time()
	if !ok {
		return d.ISO()
	}
	return t.Format(displayLayout)
}

// Compare orders two dates by year, month then day.
func (d SimpleDate) Compare(o SimpleDate) int {
	switch {
	case d.Year != o.Year:
		return sign(d.Year - o.Year)
	case d.Month != o.Month:
		return sign(d.Month - o.Month)
	default:
		return sign(d.Day - o.Day)
	}
}

func (d SimpleDate) Before(o SimpleDate) bool { return d.Compare(o) < 0 }
func (d SimpleDate) After(o SimpleDate) bool  { return d.Compare(o) > 0 }
func (d SimpleDate) Equal(o SimpleDate) bool  { return d.Compare(o) == 0 }

// AddDays moves a valid date by n days. Invalid dates are returned unchanged.
func (d SimpleDate) AddDays(n int) SimpleDate {
	t, ok := d.Time()
	if !ok {
		return d
	}
	return FromTime(t.AddDate(0, 0, n))
}

// DaysUntil returns the number of days from d to o; negative when o is earlier.
func (d SimpleDate) DaysUntil(o SimpleDate) int {
	a, okA := d.Time()
	b, okB := o.Time()
	if !okA || !okB {
		return 0
	}
	return int(b.Sub(a).Hours() / 24)
}

// Weekday of a valid date; Sunday for invalid ones.
func (d SimpleDate) Weekday() time.Weekday {
	t, _ := d.Time()
	return t.Weekday()
}

// Today returns the current date in loc.
func Today(now time.Time, loc *time.Location) SimpleDate {
	if loc == nil {
		loc = time.UTC
	}
	return FromTime(now.In(loc))
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

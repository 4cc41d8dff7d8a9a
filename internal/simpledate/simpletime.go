package simpledate

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SimpleTime is the hour/minute pair entered on time forms.
type SimpleTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseTime parses HH:mm.
func ParseTime(s string) (SimpleTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return SimpleTime{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return SimpleTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// TimeFromForm reads <prefix>-hour and <prefix>-minute; -1 marks a part that is not a number.
func TimeFromForm(values url.Values, prefix string) SimpleTime {
	return SimpleTime{
		Hour:   timePart(values.Get(prefix + "-hour")),
		Minute: timePart(values.Get(prefix + "-minute")),
	}
}

func timePart(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return -1
	}
	return n
}

// TimeBlank reports whether neither time part was filled in.
func TimeBlank(values url.Values, prefix string) bool {
	return strings.TrimSpace(values.Get(prefix+"-hour")) == "" && strings.TrimSpace(values.Get(prefix+"-minute")) == ""
}

func (t SimpleTime) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// String renders HH:mm.
func (t SimpleTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t SimpleTime) minutes() int { return t.Hour*60 + t.Minute }

func (t SimpleTime) Before(o SimpleTime) bool { return t.minutes() < o.minutes() }
func (t SimpleTime) After(o SimpleTime) bool  { return t.minutes() > o.minutes() }

// On combines a date and a time in loc.
func (t SimpleTime) On(d SimpleDate, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, t.Hour, t.Minute, 0, 0, loc)
}

// Clock returns the time of day of now in loc.
func Clock(now time.Time, loc *time.Location) SimpleTime {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	return SimpleTime{Hour: now.Hour(), Minute: now.Minute()}
}

package validate

import (
	"net/url"

	"activities/internal/simpledate"
)

const (
	msgValidDay   = "Enter a valid day"
	msgValidMonth = "Enter a valid month"
	msgValidYear  = "Enter a valid year"
	msgValidDate  = "Enter a valid date"
	msgValidHour  = "Enter a valid hour"
	msgValidMin   = "Enter a valid minute"
)

// Date reads a day/month/year form date named property. A blank date fails with
// required. Each out-of-range part fails on its own property; the calendar check only
// runs when all parts are in range. rules run against the date once it is real.
func Date(v *Validator, values url.Values, property, required string, rules ...Rule[simpledate.SimpleDate]) (simpledate.SimpleDate, bool) {
	if simpledate.Blank(values, property) {
		v.Add(property, required)
		return simpledate.SimpleDate{}, false
	}
	d := simpledate.FromForm(values, property)
	return d, CheckDate(v, property, d, rules...)
}

// CheckDate applies the part, calendar and relational checks to an already built date.
func CheckDate(v *Validator, property string, d simpledate.SimpleDate, rules ...Rule[simpledate.SimpleDate]) bool {
	ok := Field(v, property+"-day", d.Day, IntBetween(1, 31, msgValidDay))
	ok = Field(v, property+"-month", d.Month, IntBetween(1, 12, msgValidMonth)) && ok
	// Years stay at four digits so ISO dates sent upstream remain yyyy-mm-dd.
	ok = Field(v, property+"-year", d.Year, IntBetween(1000, 9999, msgValidYear)) && ok
	if !ok {
		return false
	}
	if !d.Valid() {
		v.Add(property, msgValidDate)
		return false
	}
	return Field(v, property, d, rules...)
}

// DateIsSameOrAfter fails only when the date is before x.
func DateIsSameOrAfter(x simpledate.SimpleDate, message string) Rule[simpledate.SimpleDate] {
	return func(d simpledate.SimpleDate) string {
		if d.Before(x) {
			return message
		}
		return ""
	}
}

// DateIsAfter fails when the date is on or before x.
func DateIsAfter(x simpledate.SimpleDate, message string) Rule[simpledate.SimpleDate] {
	return func(d simpledate.SimpleDate) string {
		if !d.After(x) {
			return message
		}
		return ""
	}
}

// DateIsSameOrBefore fails only when the date is after x.
func DateIsSameOrBefore(x simpledate.SimpleDate, message string) Rule[simpledate.SimpleDate] {
	return func(d simpledate.SimpleDate) string {
		if d.After(x) {
			return message
		}
		return ""
	}
}

// DateIsBefore fails when the date is on or after x.
func DateIsBefore(x simpledate.SimpleDate, message string) Rule[simpledate.SimpleDate] {
	return func(d simpledate.SimpleDate) string {
		if !d.Before(x) {
			return message
		}
		return ""
	}
}

// DateWithinDaysPast fails when the date is more than n days before today.
func DateWithinDaysPast(today simpledate.SimpleDate, n int, message string) Rule[simpledate.SimpleDate] {
	return DateIsSameOrAfter(today.AddDays(-n), message)
}

// DateWithinDaysFuture fails when the date is more than n days after today.
func DateWithinDaysFuture(today simpledate.SimpleDate, n int, message string) Rule[simpledate.SimpleDate] {
	return DateIsSameOrBefore(today.AddDays(n), message)
}

// Time reads an hour/minute form time named property.
func Time(v *Validator, values url.Values, property, required string, rules ...Rule[simpledate.SimpleTime]) (simpledate.SimpleTime, bool) {
	if simpledate.TimeBlank(values, property) {
		v.Add(property, required)
		return simpledate.SimpleTime{}, false
	}
	t := simpledate.TimeFromForm(values, property)
	ok := Field(v, property+"-hour", t.Hour, IntBetween(0, 23, msgValidHour))
	ok = Field(v, property+"-minute", t.Minute, IntBetween(0, 59, msgValidMin)) && ok
	if !ok {
		return t, false
	}
	return t, Field(v, property, t, rules...)
}

// TimeIsAfter fails when the time is on or before x.
func TimeIsAfter(x simpledate.SimpleTime, message string) Rule[simpledate.SimpleTime] {
	return func(t simpledate.SimpleTime) string {
		if !t.After(x) {
			return message
		}
		return ""
	}
}

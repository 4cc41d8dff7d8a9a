package validate_test

import (
	"net/url"
	"testing"

	"activities/internal/simpledate"
	"activities/internal/validate"
)

func dateForm(prefix, day, month, year string) url.Values {
	return url.Values{
		prefix + "-day":   {day},
		prefix + "-month": {month},
		prefix + "-year":  {year},
	}
}

func TestDatePartsAndCalendar(t *testing.T) {
	cases := []struct {
		name     string
		form     url.Values
		property string
		message  string
	}{
		{"blank", url.Values{}, "date", "Enter a date"},
		{"day out of range", dateForm("date", "32", "1", "2023"), "date-day", "Enter a valid day"},
		{"day not a number", dateForm("date", "x", "1", "2023"), "date-day", "Enter a valid day"},
		{"month out of range", dateForm("date", "1", "13", "2023"), "date-month", "Enter a valid month"},
		{"year too small", dateForm("date", "1", "1", "999"), "date-year", "Enter a valid year"},
		{"five digit year", dateForm("date", "1", "1", "10000"), "date-year", "Enter a valid year"},
		{"31 February", dateForm("date", "31", "2", "2022"), "date", "Enter a valid date"},
		{"29 February non leap", dateForm("date", "29", "2", "2023"), "date", "Enter a valid date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := validate.New()
			if _, ok := validate.Date(v, tc.form, "date", "Enter a date"); ok {
				t.Fatalf("expected failure")
			}
			errs := v.Errors()
			if got := errs.Message(tc.property); got != tc.message {
				t.Fatalf("expected %q on %s, got %v", tc.message, tc.property, errs)
			}
			if len(errs) != 1 {
				t.Fatalf("expected exactly one error, got %v", errs)
			}
		})
	}
}

func TestDatePartsReportedIndependently(t *testing.T) {
	v := validate.New()
	validate.Date(v, dateForm("date", "0", "13", "2023"), "date", "Enter a date")
	errs := v.Errors()
	if !errs.Has("date-day") || !errs.Has("date-month") || errs.Has("date") {
		t.Fatalf("unexpected errors %v", errs)
	}
}

func TestDateOrderingInclusivity(t *testing.T) {
	x := simpledate.New(25, 8, 2023)
	same := x
	before := x.AddDays(-1)
	after := x.AddDays(1)

	sameOrAfter := validate.DateIsSameOrAfter(x, "m")
	if sameOrAfter(same) != "" || sameOrAfter(after) != "" || sameOrAfter(before) == "" {
		t.Fatalf("DateIsSameOrAfter inclusivity wrong")
	}
	strictlyAfter := validate.DateIsAfter(x, "m")
	if strictlyAfter(same) == "" || strictlyAfter(after) != "" || strictlyAfter(before) == "" {
		t.Fatalf("DateIsAfter should fail when equal")
	}
	sameOrBefore := validate.DateIsSameOrBefore(x, "m")
	if sameOrBefore(same) != "" || sameOrBefore(after) == "" {
		t.Fatalf("DateIsSameOrBefore inclusivity wrong")
	}
	strictlyBefore := validate.DateIsBefore(x, "m")
	if strictlyBefore(same) == "" || strictlyBefore(before) != "" {
		t.Fatalf("DateIsBefore should fail when equal")
	}
}

func TestWithinDaysBoundaries(t *testing.T) {
	today := simpledate.New(1, 1, 2024)
	past := validate.DateWithinDaysPast(today, 14, "past")
	if past(today.AddDays(-14)) != "" {
		t.Fatalf("exactly 14 days ago should pass")
	}
	if past(today.AddDays(-15)) == "" {
		t.Fatalf("15 days ago should fail")
	}
	future := validate.DateWithinDaysFuture(today, 60, "future")
	if future(today.AddDays(60)) != "" {
		t.Fatalf("exactly 60 days ahead should pass")
	}
	if future(today.AddDays(61)) == "" {
		t.Fatalf("61 days ahead should fail")
	}
}

func TestRelationalRuleRunsAfterCalendarCheck(t *testing.T) {
	start := simpledate.MustParseISO("2023-08-25")
	msg := "Enter a date on or after the allocation start date, " + start.Display()

	v := validate.New()
	_, ok := validate.Date(v, dateForm("endDate", "25", "8", "2023"), "endDate", "Enter a date",
		validate.DateIsSameOrAfter(start, msg))
	if !ok {
		t.Fatalf("same day should pass: %v", v.Errors())
	}

	v = validate.New()
	validate.Date(v, dateForm("endDate", "24", "8", "2023"), "endDate", "Enter a date",
		validate.DateIsSameOrAfter(start, msg))
	if got := v.Errors().Message("endDate"); got != "Enter a date on or after the allocation start date, Friday, 25 August 2023" {
		t.Fatalf("got %q", got)
	}
}

func TestTextIntAndPence(t *testing.T) {
	form := url.Values{"name": {"  Maths level 1 "}, "capacity": {"abc"}, "rate": {"1.5"}, "bad": {"1.234"}}
	v := validate.New()
	name, ok := validate.Text(v, form, "name", validate.Required("Enter a name"), validate.MaxLength(40, "too long"))
	if !ok || name != "Maths level 1" {
		t.Fatalf("name %q ok=%v", name, ok)
	}
	if _, ok := validate.Int(v, form, "capacity", "Enter a capacity", "Capacity must be a number"); ok {
		t.Fatalf("capacity should fail")
	}
	pence, ok := validate.Pence(v, form, "rate", "Enter a pay rate", "Pay rate must be a number")
	if !ok || pence != 150 {
		t.Fatalf("pence %d ok=%v", pence, ok)
	}
	if _, ok := validate.Pence(v, form, "bad", "Enter a pay rate", "Pay rate must be a number"); ok {
		t.Fatalf("three decimal places should fail")
	}
	errs := v.Errors()
	if errs.Message("capacity") != "Capacity must be a number" || errs.Message("bad") != "Pay rate must be a number" {
		t.Fatalf("errors %v", errs)
	}
}

func TestWhenSkipsConditionalField(t *testing.T) {
	form := url.Values{"datePresetOption": {"today"}}
	v := validate.New()
	option, _ := validate.Text(v, form, "datePresetOption", validate.OneOf("Select a date", "today", "yesterday", "other"))
	v.When(option == "other", func(v *validate.Validator) {
		validate.Date(v, form, "date", "Enter a date")
	})
	if !v.Valid() {
		t.Fatalf("date should not be required: %v", v.Errors())
	}
}

func TestTime(t *testing.T) {
	start := simpledate.SimpleTime{Hour: 9, Minute: 0}
	v := validate.New()
	form := url.Values{"endTime-hour": {"9"}, "endTime-minute": {"00"}}
	validate.Time(v, form, "endTime", "Enter an end time", validate.TimeIsAfter(start, "Enter an end time after the start time"))
	if v.Errors().Message("endTime") != "Enter an end time after the start time" {
		t.Fatalf("errors %v", v.Errors())
	}
	v = validate.New()
	validate.Time(v, url.Values{"endTime-hour": {"24"}, "endTime-minute": {"x"}}, "endTime", "Enter an end time")
	if !v.Errors().Has("endTime-hour") || !v.Errors().Has("endTime-minute") {
		t.Fatalf("errors %v", v.Errors())
	}
}

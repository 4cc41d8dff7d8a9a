package simpledate_test

import (
	"net/url"
	"testing"
	"time"

	"activities/internal/simpledate"
)

func TestRoundTripThroughCalendarDate(t *testing.T) {
	start := time.Date(2023, time.December, 25, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 800; i++ {
		day := start.AddDate(0, 0, i)
		d := simpledate.FromTime(day)
		got, ok := d.Time()
		if !ok {
			t.Fatalf("%s: expected valid date", d)
		}
		back := simpledate.FromTime(got)
		if back != d {
			t.Fatalf("round trip %v -> %v", d, back)
		}
		if d.Month < 1 || d.Month > 12 {
			t.Fatalf("month out of range: %v", d)
		}
	}
}

func TestYearBoundary(t *testing.T) {
	nye := simpledate.New(31, 12, 2023)
	next := nye.AddDays(1)
	if next != simpledate.New(1, 1, 2024) {
		t.Fatalf("expected 1/1/2024, got %v", next)
	}
	if next.ISO() != "2024-01-01" {
		t.Fatalf("iso %s", next.ISO())
	}
	tm, _ := nye.Time()
	if tm.Month() != time.December {
		t.Fatalf("month index shifted: %v", tm)
	}
}

func TestInvalidTriples(t *testing.T) {
	for _, d := range []simpledate.SimpleDate{
		simpledate.New(31, 2, 2022),
		simpledate.New(29, 2, 2023),
		simpledate.New(0, 1, 2023),
		simpledate.New(1, 13, 2023),
		simpledate.New(31, 4, 2023),
	} {
		if d.Valid() {
			t.Fatalf("%v should be invalid", d)
		}
		if d.Display() != d.ISO() {
			t.Fatalf("display of invalid date should fall back to iso")
		}
	}
	if !simpledate.New(29, 2, 2024).Valid() {
		t.Fatalf("leap day 2024 should be valid")
	}
}

func TestFormatting(t *testing.T) {
	d := simpledate.MustParseISO("2023-08-25")
	if d.ISO() != "2023-08-25" {
		t.Fatalf("iso %s", d.ISO())
	}
	if d.Display() != "Friday, 25 August 2023" {
		t.Fatalf("display %s", d.Display())
	}
	if _, err := simpledate.ParseISO("25/08/2023"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestCompare(t *testing.T) {
	a := simpledate.New(25, 8, 2023)
	b := simpledate.New(26, 8, 2023)
	if !a.Before(b) || !b.After(a) || a.Equal(b) {
		t.Fatalf("ordering broken")
	}
	if a.DaysUntil(b) != 1 || b.DaysUntil(a) != -1 {
		t.Fatalf("days until")
	}
	if simpledate.New(1, 1, 2024).Compare(simpledate.New(31, 12, 2023)) != 1 {
		t.Fatalf("year should dominate")
	}
}

func TestFromForm(t *testing.T) {
	values := url.Values{
		"startDate-day":   {" 1"},
		"startDate-month": {"12"},
		"startDate-year":  {"2022"},
		"endDate-day":     {"x"},
	}
	if got := simpledate.FromForm(values, "startDate"); got != simpledate.New(1, 12, 2022) {
		t.Fatalf("got %v", got)
	}
	if got := simpledate.FromForm(values, "endDate"); !got.IsZero() {
		t.Fatalf("non numeric parts should be zero, got %v", got)
	}
	if simpledate.Blank(values, "endDate") {
		t.Fatalf("endDate has a day value")
	}
	if !simpledate.Blank(values, "other") {
		t.Fatalf("other is blank")
	}
}

func TestToday(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	now := time.Date(2023, time.June, 30, 23, 30, 0, 0, time.UTC)
	if got := simpledate.Today(now, loc); got != simpledate.New(1, 7, 2023) {
		t.Fatalf("BST today should be 1 July, got %v", got)
	}
}

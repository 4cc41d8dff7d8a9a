package appointments

import (
	"strings"
	"testing"
	"time"

	"activities/internal/domain"
	"activities/internal/simpledate"
)

func TestDates(t *testing.T) {
	start := simpledate.New(29, 12, 2023) // a Friday
	cases := []struct {
		freq  Frequency
		count int
		want  []string
	}{
		{Daily, 3, []string{"2023-12-29", "2023-12-30", "2023-12-31"}},
		{Weekday, 3, []string{"2023-12-29", "2024-01-01", "2024-01-02"}},
		{Weekly, 2, []string{"2023-12-29", "2024-01-05"}},
		{Fortnightly, 2, []string{"2023-12-29", "2024-01-12"}},
		{Monthly, 3, []string{"2023-12-29", "2024-01-29", "2024-02-29"}},
	}
	for _, tc := range cases {
		t.Run(string(tc.freq), func(t *testing.T) {
			got, err := Dates(start, tc.freq, tc.count)
			if err != nil {
				t.Fatalf("dates: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %v", got)
			}
			for i := range got {
				if got[i].ISO() != tc.want[i] {
					t.Fatalf("date %d: got %s want %s", i, got[i].ISO(), tc.want[i])
				}
			}
		})
	}
}

func TestDatesMonthlyKeepsToMonthEnd(t *testing.T) {
	got, err := Dates(simpledate.New(31, 1, 2024), Monthly, 3)
	if err != nil {
		t.Fatalf("dates: %v", err)
	}
	want := []string{"2024-01-31", "2024-02-29", "2024-03-31"}
	for i := range want {
		if got[i].ISO() != want[i] {
			t.Fatalf("date %d: got %s want %s", i, got[i].ISO(), want[i])
		}
	}
	last, err := LastDate(simpledate.New(30, 11, 2023), Monthly, 4)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if last.ISO() != "2024-02-29" {
		t.Fatalf("got %s", last.ISO())
	}
}

func TestDatesWeekdayFromWeekendStartsOnStartDate(t *testing.T) {
	got, err := Dates(simpledate.New(2, 9, 2023), Weekday, 3) // a Saturday
	if err != nil {
		t.Fatalf("dates: %v", err)
	}
	want := []string{"2023-09-02", "2023-09-04", "2023-09-05"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i].ISO() != want[i] {
			t.Fatalf("date %d: got %s want %s", i, got[i].ISO(), want[i])
		}
	}
	one, err := Dates(simpledate.New(3, 9, 2023), Weekday, 1)
	if err != nil || len(one) != 1 || one[0].ISO() != "2023-09-03" {
		t.Fatalf("got %v, %v", one, err)
	}
}

func TestDatesRejectsBadInput(t *testing.T) {
	if _, err := Dates(simpledate.New(31, 2, 2024), Daily, 2); err == nil {
		t.Fatalf("expected invalid start date error")
	}
	if _, err := Dates(simpledate.New(1, 2, 2024), "HOURLY", 2); err == nil {
		t.Fatalf("expected unknown frequency error")
	}
	if _, err := Dates(simpledate.New(1, 2, 2024), Daily, 0); err == nil {
		t.Fatalf("expected count error")
	}
}

func TestLastDate(t *testing.T) {
	last, err := LastDate(simpledate.New(1, 1, 2024), Weekly, 4)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if last.ISO() != "2024-01-22" {
		t.Fatalf("got %s", last.ISO())
	}
}

func TestCalendar(t *testing.T) {
	series := domain.AppointmentSeries{
		ID:               7,
		Category:         domain.AppointmentCategory{Code: "GYMW", Description: "Gym - Weights"},
		InternalLocation: &domain.Location{ID: 1, Description: "Gym"},
		Appointments: []domain.AppointmentSummary{
			{ID: 70, SequenceNumber: 1, StartDate: "2024-01-01", StartTime: "09:00", EndTime: "10:30"},
			{ID: 71, SequenceNumber: 2, StartDate: "2024-01-08", StartTime: "09:00", EndTime: "10:30", IsCancelled: true},
		},
	}
	now := time.Date(2023, 12, 1, 8, 0, 0, 0, time.UTC)
	out, err := Calendar(series, "activities.test", time.UTC, now)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	for _, want := range []string{"BEGIN:VCALENDAR", "appointment-70@activities.test", "appointment-71@activities.test", "SUMMARY:Gym - Weights", "STATUS:CANCELLED", "LOCATION:Gym"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Count(out, "BEGIN:VEVENT") != 2 {
		t.Fatalf("expected two events:\n%s", out)
	}

	series.Appointments[0].StartTime = "9am"
	if _, err := Calendar(series, "activities.test", time.UTC, now); err == nil {
		t.Fatalf("expected bad time error")
	}
}

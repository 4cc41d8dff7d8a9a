package applyto

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"activities/internal/simpledate"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func series(n int) []Occurrence {
	start := simpledate.New(4, 3, 2024)
	out := make([]Occurrence, n)
	for i := range out {
		out[i] = Occurrence{
			ID:        100 + i,
			Sequence:  i + 1,
			StartDate: start.AddDays(7 * i),
			StartTime: simpledate.SimpleTime{Hour: 9, Minute: 30},
		}
	}
	return out
}

func TestOptionsForFourOccurrences(t *testing.T) {
	remaining := Remaining(series(4), now, time.UTC)
	if len(remaining) != 4 {
		t.Fatalf("expected 4 remaining, got %d", len(remaining))
	}

	got := Options(remaining, 2, Change{Kind: KindEdit, Property: "location"})
	want := []Option{ThisOccurrence, ThisAndAllFuture, AllFuture}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("second occurrence: got %v want %v", got, want)
	}

	got = Options(remaining, 4, Change{Kind: KindEdit, Property: "location"})
	want = []Option{ThisOccurrence, AllFuture}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("last occurrence: got %v want %v", got, want)
	}

	got = Options(remaining, 1, Change{Kind: KindCancel})
	want = []Option{ThisOccurrence, ThisAndAllFuture}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("first occurrence: got %v want %v", got, want)
	}
}

func TestOptionsSingleRemaining(t *testing.T) {
	occ := series(4)
	occ[0].Expired = true
	occ[1].Expired = true
	occ[2].Expired = true
	remaining := Remaining(occ, now, time.UTC)
	got := Options(remaining, 4, Change{Kind: KindEdit, Property: "location"})
	if !reflect.DeepEqual(got, []Option{ThisOccurrence}) {
		t.Fatalf("got %v", got)
	}
	if NeedsDecision(got) {
		t.Fatalf("single remaining should not need a decision")
	}
}

func TestOptionsStartDateChangeDropsAllFuture(t *testing.T) {
	remaining := Remaining(series(4), now, time.UTC)
	got := Options(remaining, 3, Change{Kind: KindEdit, Property: "date", MovesStartDate: true})
	want := []Option{ThisOccurrence, ThisAndAllFuture}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestRemainingSkipsPast(t *testing.T) {
	occ := series(3)
	occ[0].StartDate = simpledate.New(1, 3, 2024)
	occ[0].StartTime = simpledate.SimpleTime{Hour: 9}
	remaining := Remaining(occ, now, time.UTC)
	if len(remaining) != 2 || remaining[0].Sequence != 2 {
		t.Fatalf("unexpected remaining %v", remaining)
	}
}

func TestScopeAndMessage(t *testing.T) {
	remaining := Remaining(series(4), now, time.UTC)
	change := Change{Kind: KindEdit, Property: "location"}

	scope := Scope(remaining, 2, ThisAndAllFuture)
	if Sequences(scope) != "2,3,4" {
		t.Fatalf("scope %s", Sequences(scope))
	}
	if got := Message(change, scope, ThisAndAllFuture, 4); got != "You've changed the location for appointments 2 to 4 in the series" {
		t.Fatalf("got %q", got)
	}

	scope = Scope(remaining, 2, ThisOccurrence)
	if got := Message(change, scope, ThisOccurrence, 4); got != "You've changed the location for this appointment" {
		t.Fatalf("got %q", got)
	}

	scope = Scope(remaining, 3, AllFuture)
	if len(scope) != 4 {
		t.Fatalf("all future should cover every remaining occurrence, got %d", len(scope))
	}
	if got := Message(Change{Kind: KindAddAttendees, Attendees: 2}, scope, AllFuture, 4); got != "You've added 2 people to appointments 1 to 4 in the series" {
		t.Fatalf("got %q", got)
	}
	if got := Confirmation(Change{Kind: KindCancel}, Scope(remaining, 4, ThisAndAllFuture), ThisAndAllFuture, 4); got != "Are you sure you want to cancel appointment 4 in the series?" {
		t.Fatalf("got %q", got)
	}
}

func TestCheckAttendeeCeiling(t *testing.T) {
	if err := CheckAttendeeCeiling(5, 4, 20); err != nil {
		t.Fatalf("exactly at the ceiling should pass: %v", err)
	}
	err := CheckAttendeeCeiling(6, 4, 20)
	var ce CeilingError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CeilingError, got %v", err)
	}
	if err.Error() != "You cannot add more than 5 attendees for this number of appointments." {
		t.Fatalf("got %q", err.Error())
	}
	if err := CheckAttendeeCeiling(1, 3, 0); err != nil {
		t.Fatalf("default ceiling should apply: %v", err)
	}
}

func TestValid(t *testing.T) {
	if !Valid("ALL_FUTURE_APPOINTMENTS") || Valid("SOMETIMES") {
		t.Fatalf("Valid mismatch")
	}
}

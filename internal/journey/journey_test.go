package journey

import (
	"errors"
	"testing"

	"activities/internal/applyto"
	"activities/internal/simpledate"
)

func boolPtr(b bool) *bool { return &b }

func TestLinearFlowCarriesRequirements(t *testing.T) {
	s := &Session{}
	err := CreateActivity.Check(s, "name")
	var missing *MissingStateError
	if !errors.As(err, &missing) || missing.Field != "createJourney" {
		t.Fatalf("expected missing createJourney, got %v", err)
	}
	if !errors.Is(err, ErrMissingState) {
		t.Fatalf("expected ErrMissingState in chain")
	}

	s.CreateJourney = &CreateActivityJourney{Category: &Category{ID: 1, Code: "SAA_EDUCATION", Name: "Education"}}
	if err := CreateActivity.Check(s, "name"); err != nil {
		t.Fatalf("name should be reachable: %v", err)
	}
	err = CreateActivity.Check(s, "start-date")
	if !errors.As(err, &missing) || missing.Field != "name" {
		t.Fatalf("expected missing name, got %v", err)
	}

	s.CreateJourney.Name = "Maths level 1"
	s.CreateJourney.TierCode = "TIER_1"
	s.CreateJourney.RiskLevel = "high"
	s.CreateJourney.Paid = boolPtr(false)
	if err := CreateActivity.Check(s, "start-date"); err != nil {
		t.Fatalf("unpaid activity skips pay: %v", err)
	}
	s.CreateJourney.Paid = boolPtr(true)
	if err := CreateActivity.Check(s, "start-date"); err == nil {
		t.Fatalf("paid activity needs a pay rate")
	}
}

func TestUnknownStep(t *testing.T) {
	if err := Allocate.Check(&Session{}, "nowhere"); err == nil || errors.Is(err, ErrMissingState) {
		t.Fatalf("unknown step should be a plain error, got %v", err)
	}
}

func TestFlowNext(t *testing.T) {
	if got := Deallocate.Next("date"); got != "reason" {
		t.Fatalf("got %q", got)
	}
	if got := Deallocate.Next("check-answers"); got != "" {
		t.Fatalf("got %q", got)
	}
	if !EditAppointment.Has("apply-to") || EditAppointment.Has("repeat") {
		t.Fatalf("Has mismatch")
	}
}

func TestEditAppointmentBranchesAreIndependent(t *testing.T) {
	s := &Session{EditAppointmentJourney: &EditAppointmentJourney{
		AppointmentID:  10,
		SequenceNumber: 1,
		Occurrences:    []applyto.Occurrence{{ID: 10, Sequence: 1}},
	}}
	if err := EditAppointment.Check(s, "uncancel"); err != nil {
		t.Fatalf("uncancel: %v", err)
	}
	if err := EditAppointment.Check(s, "apply-to"); err == nil {
		t.Fatalf("apply-to needs a pending property")
	}
}

func TestEncodeDecodeKeepsFlash(t *testing.T) {
	s := &Session{ID: "abc", User: User{Username: "jsmith"}}
	s.UnlockListJourney = &UnlockListJourney{Date: simpledate.New(1, 2, 2024), TimeSlot: "AM", LocationKey: "A"}
	s.SetFlash("Activity updated", "You've changed the name")
	body, err := s.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode("abc", body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.UnlockListJourney == nil || !got.UnlockListJourney.Date.Equal(simpledate.New(1, 2, 2024)) {
		t.Fatalf("unlock list lost: %+v", got.UnlockListJourney)
	}
	b := got.TakeFlash()
	if b == nil || b.Heading != "Activity updated" || got.Flash != nil {
		t.Fatalf("flash not taken once: %+v", b)
	}
	if _, err := Decode("x", []byte("{")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestEditChangeDetectsStartDateMove(t *testing.T) {
	j := &EditAppointmentJourney{
		SequenceNumber: 2,
		Occurrences: []applyto.Occurrence{
			{Sequence: 1, StartDate: simpledate.New(1, 3, 2024)},
			{Sequence: 2, StartDate: simpledate.New(8, 3, 2024)},
		},
		Property:  PropertyDateAndTime,
		StartDate: simpledate.New(8, 3, 2024),
	}
	if j.Change().MovesStartDate {
		t.Fatalf("same date is not a move")
	}
	j.StartDate = simpledate.New(9, 3, 2024)
	if !j.Change().MovesStartDate {
		t.Fatalf("expected a move")
	}
	j.Property = PropertyCancel
	j.CancellationReason = CancelCreatedInError
	if j.Change().Kind != applyto.KindDelete {
		t.Fatalf("created in error should delete")
	}
}

// Package journey holds the per-browser-session state of every multi-step wizard.
package journey

import (
	"encoding/json"
	"fmt"

	"activities/internal/applyto"
	"activities/internal/simpledate"
)

// User is the signed-in member of staff.
type User struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	PrisonCode  string `json:"prisonCode"`
}

// Banner is a success message shown once on the next rendered page.
type Banner struct {
	Heading string `json:"heading"`
	Message string `json:"message"`
}

// Session is everything persisted for one browser session. A nil journey pointer
// means that wizard has not been started (or has been finished).
type Session struct {
	ID   string `json:"-"`
	User User   `json:"user"`

	CreateJourney              *CreateActivityJourney      `json:"createJourney,omitempty"`
	AllocateJourney            *AllocateJourney            `json:"allocateJourney,omitempty"`
	DeallocateJourney          *DeallocateJourney          `json:"deallocateJourney,omitempty"`
	WaitlistApplicationJourney *WaitlistApplicationJourney `json:"waitListApplicationJourney,omitempty"`
	AppointmentJourney         *AppointmentJourney         `json:"appointmentJourney,omitempty"`
	EditAppointmentJourney     *EditAppointmentJourney     `json:"editAppointmentJourney,omitempty"`
	UnlockListJourney          *UnlockListJourney          `json:"unlockListJourney,omitempty"`

	Flash *Banner `json:"flash,omitempty"`
}

// Decode reads a session body stored by Encode.
func Decode(id string, body []byte) (*Session, error) {
	s := &Session{ID: id}
	if len(body) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(body, s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return s, nil
}

// Encode serialises the session for storage.
func (s *Session) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// SetFlash queues a banner for the next page.
func (s *Session) SetFlash(heading, message string) {
	s.Flash = &Banner{Heading: heading, Message: message}
}

// TakeFlash returns the queued banner and removes it.
func (s *Session) TakeFlash() *Banner {
	b := s.Flash
	s.Flash = nil
	return b
}

// ClearAppointmentJourneys ends both appointment wizards.
func (s *Session) ClearAppointmentJourneys() {
	s.AppointmentJourney = nil
	s.EditAppointmentJourney = nil
}

// Category is an activity category picked in the create wizard.
type Category struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Location is an internal prison location.
type Location struct {
	ID          int    `json:"id"`
	Code        string `json:"code,omitempty"`
	Description string `json:"description"`
}

// Pay is one pay rate for an incentive level and pay band. Rate is in pence.
type Pay struct {
	IncentiveCode  string `json:"incentiveNomisCode"`
	IncentiveLevel string `json:"incentiveLevel"`
	PayBandID      int    `json:"bandId"`
	PayBandAlias   string `json:"bandAlias"`
	Rate           int    `json:"rate"`
}

// Inmate is the part of a prisoner record a wizard needs to show and submit.
type Inmate struct {
	PrisonerNumber string `json:"prisonerNumber"`
	Name           string `json:"prisonerName"`
	CellLocation   string `json:"cellLocation,omitempty"`
	IncentiveCode  string `json:"incentiveLevelCode,omitempty"`
	IncentiveLevel string `json:"incentiveLevel,omitempty"`
}

// ActivityRef is the schedule an allocation, deallocation or waitlist application is for.
type ActivityRef struct {
	ActivityID int                   `json:"activityId"`
	ScheduleID int                   `json:"scheduleId"`
	Name       string                `json:"name"`
	StartDate  simpledate.SimpleDate `json:"startDate"`
	EndDate    simpledate.SimpleDate `json:"endDate"`
	Paid       bool                  `json:"paid"`
	Pays       []Pay                 `json:"pay,omitempty"`
}

// Days of the week in the order they are listed on the days-and-times page.
var Days = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// TimeSlots of the prison day.
var TimeSlots = []string{"AM", "PM", "ED"}

// CreateActivityJourney is the create (and edit) activity wizard.
type CreateActivityJourney struct {
	ActivityID        int                   `json:"activityId,omitempty"`
	ScheduleID        int                   `json:"scheduleId,omitempty"`
	Category          *Category             `json:"category,omitempty"`
	Name              string                `json:"name,omitempty"`
	TierCode          string                `json:"tierCode,omitempty"`
	RiskLevel         string                `json:"riskLevel,omitempty"`
	Paid              *bool                 `json:"paid,omitempty"`
	Pays              []Pay                 `json:"pay,omitempty"`
	StartDate         simpledate.SimpleDate `json:"startDate"`
	HasEndDate        *bool                 `json:"endDateOption,omitempty"`
	EndDate           simpledate.SimpleDate `json:"endDate"`
	Slots             map[string][]string   `json:"slots,omitempty"`
	RunsOnBankHoliday *bool                 `json:"runsOnBankHoliday,omitempty"`
	InCell            bool                  `json:"inCell,omitempty"`
	Location          *Location             `json:"location,omitempty"`
	Capacity          int                   `json:"capacity,omitempty"`
	AllocationCount   int                   `json:"allocationCount,omitempty"`
}

// Editing reports whether the wizard is changing an existing activity.
func (j *CreateActivityJourney) Editing() bool { return j.ActivityID != 0 }

// IsPaid reports whether the paid question was answered yes.
func (j *CreateActivityJourney) IsPaid() bool { return j.Paid != nil && *j.Paid }

// HasSlots reports whether at least one day has a time slot.
func (j *CreateActivityJourney) HasSlots() bool {
	for _, s := range j.Slots {
		if len(s) > 0 {
			return true
		}
	}
	return false
}

// PayFor returns the index of the rate for an incentive level and band, or -1.
func (j *CreateActivityJourney) PayFor(incentiveCode string, bandID int) int {
	for i, p := range j.Pays {
		if p.IncentiveCode == incentiveCode && p.PayBandID == bandID {
			return i
		}
	}
	return -1
}

// AllocateJourney is the allocate (and edit allocation) wizard.
type AllocateJourney struct {
	AllocationID int                   `json:"allocationId,omitempty"`
	Inmate       Inmate                `json:"inmate"`
	Activity     ActivityRef           `json:"activity"`
	StartDate    simpledate.SimpleDate `json:"startDate"`
	HasEndDate   *bool                 `json:"endDateOption,omitempty"`
	EndDate      simpledate.SimpleDate `json:"endDate"`
	PayBandID    int                   `json:"payBandId,omitempty"`
}

// Editing reports whether an existing allocation is being changed.
func (j *AllocateJourney) Editing() bool { return j.AllocationID != 0 }

// PayBandAlias names the chosen band from the activity pay rates.
func (j *AllocateJourney) PayBandAlias() string {
	for _, p := range j.Activity.Pays {
		if p.PayBandID == j.PayBandID {
			return p.PayBandAlias
		}
	}
	return ""
}

// AllocationRef is one allocation being ended.
type AllocationRef struct {
	AllocationID   int                   `json:"allocationId"`
	PrisonerNumber string                `json:"prisonerNumber"`
	Name           string                `json:"prisonerName"`
	StartDate      simpledate.SimpleDate `json:"startDate"`
}

// Deallocation date options.
const (
	DeallocateToday = "TODAY"
	DeallocateOther = "FUTURE_DATE"
)

// DeallocateJourney ends one or more allocations on a schedule.
type DeallocateJourney struct {
	Activity          ActivityRef           `json:"activity"`
	Allocations       []AllocationRef       `json:"allocations"`
	DateOption        string                `json:"deallocationDateOption,omitempty"`
	EndDate           simpledate.SimpleDate `json:"endDate"`
	ReasonCode        string                `json:"deallocationReason,omitempty"`
	ReasonDescription string                `json:"deallocationReasonDescription,omitempty"`
}

// WaitlistApplicationJourney logs a request for a prisoner to join an activity.
type WaitlistApplicationJourney struct {
	Prisoner    Inmate                `json:"prisoner"`
	Activity    ActivityRef           `json:"activity"`
	RequestDate simpledate.SimpleDate `json:"requestDate"`
	RequestedBy string                `json:"requester,omitempty"`
	Status      string                `json:"status,omitempty"`
	Comment     string                `json:"comment,omitempty"`
}

// Appointment modes and types.
const (
	ModeCreate     = "CREATE"
	ModeEdit       = "EDIT"
	TypeIndividual = "INDIVIDUAL"
	TypeGroup      = "GROUP"
)

// AppointmentCategory is the category picked for an appointment.
type AppointmentCategory struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// AppointmentJourney is the create appointment wizard.
type AppointmentJourney struct {
	Mode                 string                 `json:"mode"`
	Type                 string                 `json:"type"`
	Prisoners            []Inmate               `json:"prisoners,omitempty"`
	Category             *AppointmentCategory   `json:"category,omitempty"`
	Location             *Location              `json:"location,omitempty"`
	StartDate            simpledate.SimpleDate  `json:"startDate"`
	StartTime            *simpledate.SimpleTime `json:"startTime,omitempty"`
	EndTime              *simpledate.SimpleTime `json:"endTime,omitempty"`
	Repeat               *bool                  `json:"repeat,omitempty"`
	Frequency            string                 `json:"repeatFrequency,omitempty"`
	NumberOfAppointments int                    `json:"repeatCount,omitempty"`
	ExtraInformation     string                 `json:"extraInformation,omitempty"`
}

// Repeats reports whether a repeating series was asked for.
func (j *AppointmentJourney) Repeats() bool { return j.Repeat != nil && *j.Repeat }

// Properties an appointment edit can change.
const (
	PropertyLocation       = "location"
	PropertyDateAndTime    = "date-and-time"
	PropertyCancel         = "cancel"
	PropertyUncancel       = "uncancel"
	PropertyAddPrisoners   = "prisoners-add"
	PropertyRemovePrisoner = "prisoners-remove"
)

// Cancellation reasons as the API identifies them.
const (
	CancelCreatedInError = 1
	CancelCancelled      = 2
)

// EditAppointmentJourney is a pending change to one occurrence of a series.
type EditAppointmentJourney struct {
	AppointmentID      int                    `json:"appointmentId"`
	SeriesID           int                    `json:"appointmentSeriesId"`
	SequenceNumber     int                    `json:"sequenceNumber"`
	Occurrences        []applyto.Occurrence   `json:"appointments"`
	Property           string                 `json:"property,omitempty"`
	Location           *Location              `json:"location,omitempty"`
	StartDate          simpledate.SimpleDate  `json:"startDate"`
	StartTime          *simpledate.SimpleTime `json:"startTime,omitempty"`
	EndTime            *simpledate.SimpleTime `json:"endTime,omitempty"`
	CancellationReason int                    `json:"cancellationReason,omitempty"`
	AddPrisoners       []Inmate               `json:"addPrisoners,omitempty"`
	RemovePrisoner     *Inmate                `json:"removePrisoner,omitempty"`
	ApplyTo            string                 `json:"applyTo,omitempty"`
}

// Current returns the occurrence being edited.
func (j *EditAppointmentJourney) Current() (applyto.Occurrence, bool) {
	for _, o := range j.Occurrences {
		if o.Sequence == j.SequenceNumber {
			return o, true
		}
	}
	return applyto.Occurrence{}, false
}

// Change describes the pending edit for the apply-to engine.
func (j *EditAppointmentJourney) Change() applyto.Change {
	switch j.Property {
	case PropertyCancel:
		if j.CancellationReason == CancelCreatedInError {
			return applyto.Change{Kind: applyto.KindDelete}
		}
		return applyto.Change{Kind: applyto.KindCancel}
	case PropertyUncancel:
		return applyto.Change{Kind: applyto.KindUncancel}
	case PropertyAddPrisoners:
		return applyto.Change{Kind: applyto.KindAddAttendees, Attendees: len(j.AddPrisoners)}
	case PropertyRemovePrisoner:
		name := ""
		if j.RemovePrisoner != nil {
			name = j.RemovePrisoner.Name
		}
		return applyto.Change{Kind: applyto.KindRemoveAttendee, AttendeeName: name}
	case PropertyDateAndTime:
		moves := false
		if cur, ok := j.Current(); ok && !j.StartDate.IsZero() {
			moves = !j.StartDate.Equal(cur.StartDate)
		}
		return applyto.Change{Kind: applyto.KindEdit, Property: "date and time", MovesStartDate: moves}
	default:
		return applyto.Change{Kind: applyto.KindEdit, Property: j.Property}
	}
}

// UnlockListJourney remembers the last unlock list filters.
type UnlockListJourney struct {
	Date        simpledate.SimpleDate `json:"date"`
	TimeSlot    string                `json:"timeSlot"`
	LocationKey string                `json:"locationKey"`
}

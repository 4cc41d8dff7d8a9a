// Package domain holds the resources exchanged with the external APIs. Dates are
// yyyy-MM-dd strings and times HH:mm strings on the wire.
package domain

type ActivityCategory struct {
	ID          int    `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type PrisonPayBand struct {
	ID              int    `json:"id"`
	DisplaySequence int    `json:"displaySequence"`
	Alias           string `json:"alias"`
	Description     string `json:"description,omitempty"`
	NomisPayBand    int    `json:"nomisPayBand"`
	PrisonCode      string `json:"prisonCode"`
}

type ActivityPay struct {
	ID                 int           `json:"id,omitempty"`
	IncentiveNomisCode string        `json:"incentiveNomisCode"`
	IncentiveLevel     string        `json:"incentiveLevel"`
	PrisonPayBand      PrisonPayBand `json:"prisonPayBand"`
	Rate               int           `json:"rate"`
}

type Slot struct {
	WeekNumber int      `json:"weekNumber"`
	TimeSlot   string   `json:"timeSlot"`
	DaysOfWeek []string `json:"daysOfWeek"`
}

type Location struct {
	ID          int    `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

type LocationGroup struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type ActivitySchedule struct {
	ID                int       `json:"id"`
	Description       string    `json:"description"`
	Capacity          int       `json:"capacity"`
	Slots             []Slot    `json:"slots"`
	InternalLocation  *Location `json:"internalLocation,omitempty"`
	RunsOnBankHoliday bool      `json:"runsOnBankHoliday"`
	StartDate         string    `json:"startDate"`
	EndDate           *string   `json:"endDate,omitempty"`
	// Activity is only filled in when the schedule is fetched on its own.
	Activity *Activity `json:"activity,omitempty"`
}

type Activity struct {
	ID         int                `json:"id"`
	PrisonCode string             `json:"prisonCode"`
	Summary    string             `json:"summary"`
	Category   ActivityCategory   `json:"category"`
	TierCode   string             `json:"tierCode,omitempty"`
	RiskLevel  string             `json:"riskLevel"`
	Paid       bool               `json:"paid"`
	Pay        []ActivityPay      `json:"pay"`
	InCell     bool               `json:"inCell"`
	OnWing     bool               `json:"onWing"`
	OffWing    bool               `json:"offWing"`
	StartDate  string             `json:"startDate"`
	EndDate    *string            `json:"endDate,omitempty"`
	Schedules  []ActivitySchedule `json:"schedules"`
}

type SlotRequest struct {
	WeekNumber int    `json:"weekNumber"`
	TimeSlot   string `json:"timeSlot"`
	Monday     bool   `json:"monday"`
	Tuesday    bool   `json:"tuesday"`
	Wednesday  bool   `json:"wednesday"`
	Thursday   bool   `json:"thursday"`
	Friday     bool   `json:"friday"`
	Saturday   bool   `json:"saturday"`
	Sunday     bool   `json:"sunday"`
}

type ActivityPayRequest struct {
	IncentiveNomisCode string `json:"incentiveNomisCode"`
	IncentiveLevel     string `json:"incentiveLevel"`
	PayBandID          int    `json:"payBandId"`
	Rate               int    `json:"rate"`
}

type ActivityCreateRequest struct {
	PrisonCode         string               `json:"prisonCode"`
	Summary            string               `json:"summary"`
	CategoryID         int                  `json:"categoryId"`
	TierCode           string               `json:"tierCode,omitempty"`
	RiskLevel          string               `json:"riskLevel"`
	Paid               bool                 `json:"paid"`
	Pay                []ActivityPayRequest `json:"pay"`
	StartDate          string               `json:"startDate"`
	EndDate            *string              `json:"endDate,omitempty"`
	Slots              []SlotRequest        `json:"slots"`
	ScheduleWeeks      int                  `json:"scheduleWeeks"`
	RunsOnBankHoliday  bool                 `json:"runsOnBankHoliday"`
	InCell             bool                 `json:"inCell"`
	OnWing             bool                 `json:"onWing"`
	OffWing            bool                 `json:"offWing"`
	LocationID         *int                 `json:"locationId,omitempty"`
	Capacity           int                  `json:"capacity"`
	AttendanceRequired bool                 `json:"attendanceRequired"`
}

// ActivityUpdateRequest only carries the fields being changed.
type ActivityUpdateRequest struct {
	Summary           *string              `json:"summary,omitempty"`
	CategoryID        *int                 `json:"categoryId,omitempty"`
	TierCode          *string              `json:"tierCode,omitempty"`
	RiskLevel         *string              `json:"riskLevel,omitempty"`
	Pay               []ActivityPayRequest `json:"pay,omitempty"`
	StartDate         *string              `json:"startDate,omitempty"`
	EndDate           *string              `json:"endDate,omitempty"`
	RemoveEndDate     bool                 `json:"removeEndDate,omitempty"`
	Slots             []SlotRequest        `json:"slots,omitempty"`
	ScheduleWeeks     *int                 `json:"scheduleWeeks,omitempty"`
	RunsOnBankHoliday *bool                `json:"runsOnBankHoliday,omitempty"`
	InCell            *bool                `json:"inCell,omitempty"`
	OnWing            *bool                `json:"onWing,omitempty"`
	OffWing           *bool                `json:"offWing,omitempty"`
	LocationID        *int                 `json:"locationId,omitempty"`
	Capacity          *int                 `json:"capacity,omitempty"`
}

type Allocation struct {
	ID              int            `json:"id"`
	PrisonerNumber  string         `json:"prisonerNumber"`
	ActivityID      int            `json:"activityId"`
	ScheduleID      int            `json:"scheduleId"`
	ActivitySummary string         `json:"activitySummary"`
	StartDate       string         `json:"startDate"`
	EndDate         *string        `json:"endDate,omitempty"`
	PrisonPayBand   *PrisonPayBand `json:"prisonPayBand,omitempty"`
	Status          string         `json:"status"`
}

type AllocationRequest struct {
	PrisonerNumber string  `json:"prisonerNumber"`
	PayBandID      *int    `json:"payBandId,omitempty"`
	StartDate      string  `json:"startDate"`
	EndDate        *string `json:"endDate,omitempty"`
}

type AllocationUpdateRequest struct {
	StartDate     *string `json:"startDate,omitempty"`
	EndDate       *string `json:"endDate,omitempty"`
	RemoveEndDate bool    `json:"removeEndDate,omitempty"`
	PayBandID     *int    `json:"payBandId,omitempty"`
}

type DeallocationReason struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type DeallocationRequest struct {
	PrisonerNumbers []string `json:"prisonerNumbers"`
	ReasonCode      string   `json:"reasonCode"`
	EndDate         string   `json:"endDate"`
}

type WaitingListApplicationRequest struct {
	PrisonerNumber     string `json:"prisonerNumber"`
	ActivityScheduleID int    `json:"activityScheduleId"`
	ApplicationDate    string `json:"applicationDate"`
	RequestedBy        string `json:"requestedBy"`
	Comments           string `json:"comments,omitempty"`
	Status             string `json:"status"`
}

type WaitingListApplication struct {
	ID                 int    `json:"id"`
	PrisonerNumber     string `json:"prisonerNumber"`
	ActivityScheduleID int    `json:"activityScheduleId"`
	ApplicationDate    string `json:"applicationDate"`
	Status             string `json:"status"`
}

type Prisoner struct {
	PrisonerNumber   string     `json:"prisonerNumber"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	PrisonID         string     `json:"prisonId"`
	CellLocation     string     `json:"cellLocation"`
	CurrentIncentive *Incentive `json:"currentIncentive,omitempty"`
}

type Incentive struct {
	Level IncentiveLevelRef `json:"level"`
}

type IncentiveLevelRef struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type IncentiveLevel struct {
	LevelCode string `json:"levelCode"`
	LevelName string `json:"levelName"`
	Active    bool   `json:"active"`
}

type AppointmentCategory struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type AppointmentSchedule struct {
	Frequency            string `json:"frequency"`
	NumberOfAppointments int    `json:"numberOfAppointments"`
}

type AppointmentSummary struct {
	ID             int    `json:"id"`
	SequenceNumber int    `json:"sequenceNumber"`
	StartDate      string `json:"startDate"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime,omitempty"`
	IsCancelled    bool   `json:"isCancelled"`
	IsExpired      bool   `json:"isExpired"`
}

type AppointmentSeries struct {
	ID               int                  `json:"id"`
	AppointmentType  string               `json:"appointmentType"`
	PrisonCode       string               `json:"prisonCode"`
	Category         AppointmentCategory  `json:"category"`
	InternalLocation *Location            `json:"internalLocation,omitempty"`
	StartDate        string               `json:"startDate"`
	StartTime        string               `json:"startTime"`
	EndTime          string               `json:"endTime,omitempty"`
	Schedule         *AppointmentSchedule `json:"schedule,omitempty"`
	Appointments     []AppointmentSummary `json:"appointments"`
}

type AppointmentAttendee struct {
	PrisonerNumber string `json:"prisonerNumber"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
}

type AppointmentSeriesRef struct {
	ID       int                  `json:"id"`
	Schedule *AppointmentSchedule `json:"schedule,omitempty"`
}

type AppointmentDetails struct {
	ID                int                   `json:"id"`
	SequenceNumber    int                   `json:"sequenceNumber"`
	AppointmentSeries *AppointmentSeriesRef `json:"appointmentSeries,omitempty"`
	AppointmentType   string                `json:"appointmentType"`
	PrisonCode        string                `json:"prisonCode"`
	Category          AppointmentCategory   `json:"category"`
	InternalLocation  *Location             `json:"internalLocation,omitempty"`
	StartDate         string                `json:"startDate"`
	StartTime         string                `json:"startTime"`
	EndTime           string                `json:"endTime,omitempty"`
	Attendees         []AppointmentAttendee `json:"attendees"`
	ExtraInformation  string                `json:"extraInformation,omitempty"`
	IsCancelled       bool                  `json:"isCancelled"`
	IsExpired         bool                  `json:"isExpired"`
}

type AppointmentSeriesCreateRequest struct {
	AppointmentType    string               `json:"appointmentType"`
	PrisonCode         string               `json:"prisonCode"`
	PrisonerNumbers    []string             `json:"prisonerNumbers"`
	CategoryCode       string               `json:"categoryCode"`
	InternalLocationID int                  `json:"internalLocationId"`
	StartDate          string               `json:"startDate"`
	StartTime          string               `json:"startTime"`
	EndTime            string               `json:"endTime"`
	Schedule           *AppointmentSchedule `json:"schedule,omitempty"`
	ExtraInformation   string               `json:"extraInformation,omitempty"`
}

type AppointmentUpdateRequest struct {
	InternalLocationID    *int     `json:"internalLocationId,omitempty"`
	StartDate             *string  `json:"startDate,omitempty"`
	StartTime             *string  `json:"startTime,omitempty"`
	EndTime               *string  `json:"endTime,omitempty"`
	AddPrisonerNumbers    []string `json:"addPrisonerNumbers,omitempty"`
	RemovePrisonerNumbers []string `json:"removePrisonerNumbers,omitempty"`
	ApplyTo               string   `json:"applyTo"`
}

type AppointmentCancelRequest struct {
	CancellationReasonID int    `json:"cancellationReasonId"`
	ApplyTo              string `json:"applyTo"`
}

type AppointmentUncancelRequest struct {
	ApplyTo string `json:"applyTo"`
}

type UnlockListItem struct {
	PrisonerNumber string           `json:"prisonerNumber"`
	FirstName      string           `json:"firstName"`
	LastName       string           `json:"lastName"`
	CellLocation   string           `json:"cellLocation"`
	Events         []ScheduledEvent `json:"events"`
}

type ScheduledEvent struct {
	Summary   string `json:"summary"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime,omitempty"`
}

type AttendanceSummary struct {
	Date        string `json:"date"`
	Sessions    int    `json:"sessions"`
	Attended    int    `json:"attended"`
	Absent      int    `json:"absent"`
	NotRecorded int    `json:"notRecorded"`
}

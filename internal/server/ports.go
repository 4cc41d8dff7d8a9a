package server

import (
	"context"

	"activities/internal/domain"
)

// ActivitiesService is the subset of the activities API the pages use.
type ActivitiesService interface {
	Categories(ctx context.Context) ([]domain.ActivityCategory, error)
	PayBands(ctx context.Context, prisonCode string) ([]domain.PrisonPayBand, error)
	Activity(ctx context.Context, id int) (domain.Activity, error)
	CreateActivity(ctx context.Context, req domain.ActivityCreateRequest) (domain.Activity, error)
	UpdateActivity(ctx context.Context, prisonCode string, id int, req domain.ActivityUpdateRequest) (domain.Activity, error)
	Schedule(ctx context.Context, id int) (domain.ActivitySchedule, error)
	ScheduleAllocations(ctx context.Context, scheduleID int) ([]domain.Allocation, error)
	Allocate(ctx context.Context, scheduleID int, req domain.AllocationRequest) error
	Allocation(ctx context.Context, id int) (domain.Allocation, error)
	UpdateAllocation(ctx context.Context, prisonCode string, id int, req domain.AllocationUpdateRequest) (domain.Allocation, error)
	DeallocationReasons(ctx context.Context) ([]domain.DeallocationReason, error)
	Deallocate(ctx context.Context, scheduleID int, req domain.DeallocationRequest) error
	LogWaitlistApplication(ctx context.Context, prisonCode string, req domain.WaitingListApplicationRequest) error
	AppointmentCategories(ctx context.Context) ([]domain.AppointmentCategory, error)
	CreateAppointmentSeries(ctx context.Context, req domain.AppointmentSeriesCreateRequest) (domain.AppointmentSeries, error)
	AppointmentSeries(ctx context.Context, id int) (domain.AppointmentSeries, error)
	AppointmentDetails(ctx context.Context, id int) (domain.AppointmentDetails, error)
	UpdateAppointment(ctx context.Context, id int, req domain.AppointmentUpdateRequest) error
	CancelAppointment(ctx context.Context, id int, req domain.AppointmentCancelRequest) error
	UncancelAppointment(ctx context.Context, id int, req domain.AppointmentUncancelRequest) error
	LocationGroups(ctx context.Context, prisonCode string) ([]domain.LocationGroup, error)
	UnlockList(ctx context.Context, prisonCode, date, timeSlot, locationKey string) ([]domain.UnlockListItem, error)
	AttendanceSummary(ctx context.Context, prisonCode, date string) (domain.AttendanceSummary, error)
}

// PrisonerSearch finds prisoners.
type PrisonerSearch interface {
	Prisoner(ctx context.Context, prisonerNumber string) (domain.Prisoner, error)
	Search(ctx context.Context, prisonCode, term string) ([]domain.Prisoner, error)
}

// Incentives lists incentive levels.
type Incentives interface {
	Levels(ctx context.Context, prisonCode string) ([]domain.IncentiveLevel, error)
}

// Locations lists internal locations for an event type.
type Locations interface {
	Locations(ctx context.Context, prisonCode, eventType string) ([]domain.Location, error)
}

// Pinger is an upstream with a liveness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

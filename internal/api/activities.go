package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"activities/internal/domain"
)

// ActivitiesAPI is the activities and appointments service.
type ActivitiesAPI struct {
	*Client
}

// NewActivitiesAPI wraps c.
func NewActivitiesAPI(c *Client) *ActivitiesAPI { return &ActivitiesAPI{Client: c} }

// Categories lists activity categories.
func (a *ActivitiesAPI) Categories(ctx context.Context) ([]domain.ActivityCategory, error) {
	var resp []domain.ActivityCategory
	err := a.do(ctx, http.MethodGet, "activity-categories", nil, &resp)
	return resp, err
}

// PayBands lists the pay bands configured for a prison.
func (a *ActivitiesAPI) PayBands(ctx context.Context, prisonCode string) ([]domain.PrisonPayBand, error) {
	var resp []domain.PrisonPayBand
	err := a.do(ctx, http.MethodGet, fmt.Sprintf("prison/%s/prison-pay-bands", url.PathEscape(prisonCode)), nil, &resp)
	return resp, err
}

// Activity fetches an activity with its schedules.
func (a *ActivitiesAPI) Activity(ctx context.Context, id int) (domain.Activity, error) {
	var resp domain.Activity
	err := a.do(ctx, http.MethodGet, fmt.Sprintf("activities/%d/filtered", id), nil, &resp)
	return resp, err
}

// CreateActivity creates an activity and its single schedule.
func (a *ActivitiesAPI) CreateActivity(ctx context.Context, req domain.ActivityCreateRequest) (domain.Activity, error) {
	var resp domain.Activity
	err := a.do(ctx, http.MethodPost, "activities", req, &resp)
	return resp, err
}

// UpdateActivity changes the fields set in req.
func (a *ActivitiesAPI) UpdateActivity(ctx context.Context, prisonCode string, id int, req domain.ActivityUpdateRequest) (domain.Activity, error) {
	var resp domain.Activity
	endpoint := fmt.Sprintf("activities/%s/activityId/%d", url.PathEscape(prisonCode), id)
	err := a.do(ctx, http.MethodPatch, endpoint, req, &resp)
	return resp, err
}

// Schedule fetches an activity schedule.
func (a *ActivitiesAPI) Schedule(ctx context.Context, id int) (domain.ActivitySchedule, error) {
	var resp domain.ActivitySchedule
	err := a.do(ctx, http.MethodGet, fmt.Sprintf("schedules/%d", id), nil, &resp)
	return resp, err
}

// ScheduleAllocations lists the active allocations on a schedule.
func (a *ActivitiesAPI) ScheduleAllocations(ctx context.Context, scheduleID int) ([]domain.Allocation, error) {
	var resp []domain.Allocation
	err := a.do(ctx, http.MethodGet, fmt.Sprintf("schedules/%d/allocations?activeOnly=true", scheduleID), nil, &resp)
	return resp, err
}

// Allocate allocates a prisoner to a schedule.
func (a *ActivitiesAPI) Allocate(ctx context.Context, scheduleID int, req domain.AllocationRequest) error {
	return a.do(ctx, http.MethodPost, fmt.Sprintf("schedules/%d/allocations", scheduleID), req, nil)
}

// Allocation fetches an allocation.
func (a *ActivitiesAPI) Allocation(ctx context.Context, id int) (domain.Allocation, error) {
	var resp domain.Allocation
	err := a.do(ctx, http.MethodGet, fmt.Sprintf("allocations/id/%d", id), nil, &resp)
	return resp, err
}

// UpdateAllocation changes the fields set in req.
func (a *ActivitiesAPI) UpdateAllocation(ctx context.Context, prisonCode string, id int, req domain.AllocationUpdateRequest) (domain.Allocation, error) {
	var resp domain.Allocation
	endpoint := fmt.Sprintf("allocations/%s/allocationId/%d", url.PathEscape(prisonCode), id)
	err := a.do(ctx, http.MethodPatch, endpoint, req, &resp)
	return resp, err
}

// DeallocationReasons lists the reasons an allocation can end.
func (a *ActivitiesAPI) DeallocationReasons(ctx context.Context) ([]domain.DeallocationReason, error) {
	var resp []domain.DeallocationReason
	err := a.do(ctx, http.MethodGet, "allocations/deallocation-reasons", nil, &resp)
	return resp, err
}

// Deallocate ends allocations on a schedule.
func (a *ActivitiesAPI) Deallocate(ctx context.Context, scheduleID int, req domain.DeallocationRequest) error {
	return a.do(ctx, http.MethodPut, fmt.Sprintf("schedules/%d/deallocate", scheduleID), req, nil)
}

// LogWaitlistApplication records a waiting list application.
func (a *ActivitiesAPI) LogWaitlistApplication(ctx context.Context, prisonCode string, req domain.WaitingListApplicationRequest) error {
	endpoint := fmt.Sprintf("allocations/%s/waiting-list-application", url.PathEscape(prisonCode))
	return a.do(ctx, http.MethodPost, endpoint, req, nil)
}

// AppointmentCategories lists appointment categories.
func (a *ActivitiesAPI) AppointmentCategories(ctx context.Context) ([]domain.AppointmentCategory, error) {
	var resp []domain.AppointmentCategory
	err := a.do(ctx, http.MethodGet, "appointment-categories", nil, &resp)
	return resp, err
}

// CreateAppointmentSeries creates a (possibly repeating) appointment series.
func (a *ActivitiesAPI) CreateAppointmentSeries(ctx context.Context, req domain.AppointmentSeriesCreateRequest) (domain.AppointmentSeries, error) {
	var resp domain.AppointmentSeries
	err := a.do(ctx, http.MethodPost, "appointment-series", req, &resp)
	return resp, err
}

// AppointmentSeries fetches a series with every appointment in it.
func (a *ActivitiesAPI) AppointmentSeries(ctx context.Context, id int) (domain.AppointmentSeries, error) {
	var resp domain.AppointmentSeries
	err := a.do(ctx, http.MethodGet, fmt.Sprintf("appointment-series/%d", id), nil, &resp)
	return resp, err
}

// AppointmentDetails fetches one appointment.
func (a *ActivitiesAPI) AppointmentDetails(ctx context.Context, id int) (domain.AppointmentDetails, error) {
	var resp domain.AppointmentDetails
	err := a.do(ctx, http.MethodGet, fmt.Sprintf("appointments/%d/details", id), nil, &resp)
	return resp, err
}

// UpdateAppointment applies an edit to the occurrences chosen by req.ApplyTo.
func (a *ActivitiesAPI) UpdateAppointment(ctx context.Context, id int, req domain.AppointmentUpdateRequest) error {
	return a.do(ctx, http.MethodPatch, fmt.Sprintf("appointments/%d", id), req, nil)
}

// CancelAppointment cancels (or deletes, for reason 1) the chosen occurrences.
func (a *ActivitiesAPI) CancelAppointment(ctx context.Context, id int, req domain.AppointmentCancelRequest) error {
	return a.do(ctx, http.MethodPut, fmt.Sprintf("appointments/%d/cancel", id), req, nil)
}

// UncancelAppointment reinstates the chosen occurrences.
func (a *ActivitiesAPI) UncancelAppointment(ctx context.Context, id int, req domain.AppointmentUncancelRequest) error {
	return a.do(ctx, http.MethodPut, fmt.Sprintf("appointments/%d/uncancel", id), req, nil)
}

// LocationGroups lists the residential groupings used by the unlock list.
func (a *ActivitiesAPI) LocationGroups(ctx context.Context, prisonCode string) ([]domain.LocationGroup, error) {
	var resp []domain.LocationGroup
	err := a.do(ctx, http.MethodGet, fmt.Sprintf("locations/prison/%s/location-groups", url.PathEscape(prisonCode)), nil, &resp)
	return resp, err
}

// UnlockList lists prisoners in a location group with their events for a date and slot.
func (a *ActivitiesAPI) UnlockList(ctx context.Context, prisonCode, date, timeSlot, locationKey string) ([]domain.UnlockListItem, error) {
	q := url.Values{}
	q.Set("date", date)
	q.Set("slot", timeSlot)
	q.Set("locationKey", locationKey)
	var resp []domain.UnlockListItem
	endpoint := fmt.Sprintf("unlock-list/prison/%s?%s", url.PathEscape(prisonCode), q.Encode())
	err := a.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// AttendanceSummary totals attendance across all sessions on a date.
func (a *ActivitiesAPI) AttendanceSummary(ctx context.Context, prisonCode, date string) (domain.AttendanceSummary, error) {
	var resp domain.AttendanceSummary
	endpoint := fmt.Sprintf("attendance-summary/prison/%s?date=%s", url.PathEscape(prisonCode), url.QueryEscape(date))
	err := a.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

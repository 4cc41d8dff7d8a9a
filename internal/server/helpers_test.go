package server

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"activities/internal/api"
	"activities/internal/config"
	"activities/internal/db"
	"activities/internal/domain"
	"activities/internal/journey"
	"activities/internal/migrate"
	"activities/internal/repo"
)

// Tuesday, 22 August 2023.
var testNow = time.Date(2023, 8, 22, 10, 0, 0, 0, time.UTC)

type fakeActivities struct {
	mu sync.Mutex

	activities  map[int]domain.Activity
	schedules   map[int]domain.ActivitySchedule
	allocations map[int][]domain.Allocation
	series      map[int]domain.AppointmentSeries
	details     map[int]domain.AppointmentDetails

	createdActivities []domain.ActivityCreateRequest
	updatedActivities []domain.ActivityUpdateRequest
	deallocated       map[int][]domain.DeallocationRequest
	allocated         []domain.AllocationRequest
	waitlisted        []domain.WaitingListApplicationRequest
	created           []domain.AppointmentSeriesCreateRequest
	updates           []domain.AppointmentUpdateRequest
	cancels           []domain.AppointmentCancelRequest
	uncancels         []domain.AppointmentUncancelRequest
}

func newFakeActivities() *fakeActivities {
	return &fakeActivities{
		activities:  map[int]domain.Activity{},
		schedules:   map[int]domain.ActivitySchedule{},
		allocations: map[int][]domain.Allocation{},
		series:      map[int]domain.AppointmentSeries{},
		details:     map[int]domain.AppointmentDetails{},
		deallocated: map[int][]domain.DeallocationRequest{},
	}
}

func missing(what string, id int) error {
	return &api.Error{API: "activities", StatusCode: http.StatusNotFound, Body: fmt.Sprintf("%s %d not found", what, id)}
}

func (f *fakeActivities) Categories(context.Context) ([]domain.ActivityCategory, error) {
	return []domain.ActivityCategory{{ID: 1, Code: "SAA_EDUCATION", Name: "Education"}}, nil
}

func (f *fakeActivities) PayBands(context.Context, string) ([]domain.PrisonPayBand, error) {
	return []domain.PrisonPayBand{{ID: 1, Alias: "Low", DisplaySequence: 1}}, nil
}

func (f *fakeActivities) Activity(_ context.Context, id int) (domain.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.activities[id]
	if !ok {
		return domain.Activity{}, missing("activity", id)
	}
	return a, nil
}

func (f *fakeActivities) CreateActivity(_ context.Context, req domain.ActivityCreateRequest) (domain.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdActivities = append(f.createdActivities, req)
	return domain.Activity{ID: 99, Summary: req.Summary}, nil
}

func (f *fakeActivities) UpdateActivity(_ context.Context, _ string, id int, req domain.ActivityUpdateRequest) (domain.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updatedActivities = append(f.updatedActivities, req)
	a := f.activities[id]
	if req.Summary != nil {
		a.Summary = *req.Summary
	}
	f.activities[id] = a
	return a, nil
}

func (f *fakeActivities) Schedule(_ context.Context, id int) (domain.ActivitySchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok {
		return domain.ActivitySchedule{}, missing("schedule", id)
	}
	return s, nil
}

func (f *fakeActivities) ScheduleAllocations(_ context.Context, id int) ([]domain.Allocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allocations[id], nil
}

func (f *fakeActivities) Allocate(_ context.Context, _ int, req domain.AllocationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allocated = append(f.allocated, req)
	return nil
}

func (f *fakeActivities) Allocation(_ context.Context, id int) (domain.Allocation, error) {
	return domain.Allocation{}, missing("allocation", id)
}

func (f *fakeActivities) UpdateAllocation(_ context.Context, _ string, id int, _ domain.AllocationUpdateRequest) (domain.Allocation, error) {
	return domain.Allocation{ID: id}, nil
}

func (f *fakeActivities) DeallocationReasons(context.Context) ([]domain.DeallocationReason, error) {
	return []domain.DeallocationReason{{Code: "RELEASED", Description: "Released from prison"}}, nil
}

func (f *fakeActivities) Deallocate(_ context.Context, scheduleID int, req domain.DeallocationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deallocated[scheduleID] = append(f.deallocated[scheduleID], req)
	return nil
}

func (f *fakeActivities) LogWaitlistApplication(_ context.Context, _ string, req domain.WaitingListApplicationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waitlisted = append(f.waitlisted, req)
	return nil
}

func (f *fakeActivities) AppointmentCategories(context.Context) ([]domain.AppointmentCategory, error) {
	return []domain.AppointmentCategory{{Code: "GYMW", Description: "Gym - Weights"}, {Code: "CHAP", Description: "Chaplaincy"}}, nil
}

func (f *fakeActivities) CreateAppointmentSeries(_ context.Context, req domain.AppointmentSeriesCreateRequest) (domain.AppointmentSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	n := 1
	if req.Schedule != nil {
		n = req.Schedule.NumberOfAppointments
	}
	series := domain.AppointmentSeries{ID: 500, StartDate: req.StartDate, StartTime: req.StartTime, EndTime: req.EndTime}
	for i := 1; i <= n; i++ {
		series.Appointments = append(series.Appointments, domain.AppointmentSummary{ID: 5000 + i, SequenceNumber: i})
	}
	return series, nil
}

func (f *fakeActivities) AppointmentSeries(_ context.Context, id int) (domain.AppointmentSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.series[id]
	if !ok {
		return domain.AppointmentSeries{}, missing("appointment series", id)
	}
	return s, nil
}

func (f *fakeActivities) AppointmentDetails(_ context.Context, id int) (domain.AppointmentDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.details[id]
	if !ok {
		return domain.AppointmentDetails{}, missing("appointment", id)
	}
	return d, nil
}

func (f *fakeActivities) UpdateAppointment(_ context.Context, _ int, req domain.AppointmentUpdateRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, req)
	return nil
}

func (f *fakeActivities) CancelAppointment(_ context.Context, _ int, req domain.AppointmentCancelRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, req)
	return nil
}

func (f *fakeActivities) UncancelAppointment(_ context.Context, _ int, req domain.AppointmentUncancelRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uncancels = append(f.uncancels, req)
	return nil
}

func (f *fakeActivities) LocationGroups(context.Context, string) ([]domain.LocationGroup, error) {
	return []domain.LocationGroup{{Key: "Houseblock 1", Name: "Houseblock 1"}}, nil
}

func (f *fakeActivities) UnlockList(_ context.Context, _, date, slot, key string) ([]domain.UnlockListItem, error) {
	return []domain.UnlockListItem{{
		PrisonerNumber: "A1234BC", FirstName: "Joe", LastName: "Bloggs", CellLocation: "1-1-001",
		Events: []domain.ScheduledEvent{{Summary: "Maths", StartTime: "09:00", EndTime: "11:30"}},
	}}, nil
}

func (f *fakeActivities) AttendanceSummary(_ context.Context, _, date string) (domain.AttendanceSummary, error) {
	return domain.AttendanceSummary{Date: date, Sessions: 12, Attended: 9, Absent: 2, NotRecorded: 1}, nil
}

// addSeries stores a series of n appointments a week apart from start, with ids
// 100+sequence. The first expired appointments are marked as such.
func (f *fakeActivities) addSeries(id int, start string, n, expired int) {
	series := domain.AppointmentSeries{
		ID:               id,
		AppointmentType:  journey.TypeGroup,
		PrisonCode:       "MDI",
		Category:         domain.AppointmentCategory{Code: "GYMW", Description: "Gym - Weights"},
		InternalLocation: &domain.Location{ID: 11, Code: "GYM", Description: "Gym"},
		StartDate:        start,
		StartTime:        "09:00",
		EndTime:          "10:30",
		Schedule:         &domain.AppointmentSchedule{Frequency: "WEEKLY", NumberOfAppointments: n},
	}
	first, _ := time.Parse("2006-01-02", start)
	for i := 1; i <= n; i++ {
		series.Appointments = append(series.Appointments, domain.AppointmentSummary{
			ID:             100 + i,
			SequenceNumber: i,
			StartDate:      first.AddDate(0, 0, 7*(i-1)).Format("2006-01-02"),
			StartTime:      "09:00",
			EndTime:        "10:30",
			IsExpired:      i <= expired,
		})
	}
	f.series[id] = series
	for _, a := range series.Appointments {
		f.details[a.ID] = domain.AppointmentDetails{
			ID:                a.ID,
			SequenceNumber:    a.SequenceNumber,
			AppointmentSeries: &domain.AppointmentSeriesRef{ID: id, Schedule: series.Schedule},
			AppointmentType:   series.AppointmentType,
			PrisonCode:        series.PrisonCode,
			Category:          series.Category,
			InternalLocation:  series.InternalLocation,
			StartDate:         a.StartDate,
			StartTime:         a.StartTime,
			EndTime:           a.EndTime,
			Attendees:         []domain.AppointmentAttendee{{PrisonerNumber: "A1234BC", FirstName: "Joe", LastName: "Bloggs"}},
			IsExpired:         a.IsExpired,
		}
	}
}

func (f *fakeActivities) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

type fakePeople struct {
	prisoners map[string]domain.Prisoner
}

func newFakePeople() *fakePeople {
	p := &fakePeople{prisoners: map[string]domain.Prisoner{}}
	for _, pr := range []domain.Prisoner{
		{PrisonerNumber: "A1234BC", FirstName: "Joe", LastName: "Bloggs", PrisonID: "MDI", CellLocation: "1-1-001",
			CurrentIncentive: &domain.Incentive{Level: domain.IncentiveLevelRef{Code: "STD", Description: "Standard"}}},
		{PrisonerNumber: "B2345CD", FirstName: "Ann", LastName: "Smith", PrisonID: "MDI"},
		{PrisonerNumber: "C3456DE", FirstName: "Sam", LastName: "Jones", PrisonID: "MDI"},
		{PrisonerNumber: "Z9999ZZ", FirstName: "Elsewhere", LastName: "Person", PrisonID: "LEI"},
	} {
		p.prisoners[pr.PrisonerNumber] = pr
	}
	return p
}

func (p *fakePeople) Prisoner(_ context.Context, number string) (domain.Prisoner, error) {
	pr, ok := p.prisoners[number]
	if !ok {
		return domain.Prisoner{}, &api.Error{API: "prisoner-search", StatusCode: http.StatusNotFound}
	}
	return pr, nil
}

func (p *fakePeople) Search(_ context.Context, prison, term string) ([]domain.Prisoner, error) {
	var out []domain.Prisoner
	for _, pr := range p.prisoners {
		if pr.PrisonID == prison && strings.Contains(strings.ToLower(pr.FirstName+" "+pr.LastName), strings.ToLower(term)) {
			out = append(out, pr)
		}
	}
	return out, nil
}

func (p *fakePeople) Levels(context.Context, string) ([]domain.IncentiveLevel, error) {
	return []domain.IncentiveLevel{{LevelCode: "BAS", LevelName: "Basic", Active: true}, {LevelCode: "STD", LevelName: "Standard", Active: true}}, nil
}

func (p *fakePeople) Locations(_ context.Context, _, eventType string) ([]domain.Location, error) {
	if eventType == "APP" {
		return []domain.Location{{ID: 11, Code: "GYM", Description: "Gym"}, {ID: 12, Code: "CHAPEL", Description: "Chapel"}}, nil
	}
	return []domain.Location{{ID: 21, Code: "EDU1", Description: "Education room 1"}}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
	acts   *fakeActivities
	people *fakePeople
	repo   repo.Repo
}

func newEnv(t *testing.T, opts ...func(*Config)) *testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	acts := newFakeActivities()
	people := newFakePeople()
	cfg := Config{
		Activities:     acts,
		PrisonerSearch: people,
		Incentives:     people,
		Locations:      people,
		Upstreams:      map[string]Pinger{"activitiesApi": fakePinger{}},
		Repo:           repo.Repo{DB: conn},
		User:           journey.User{Username: "jsmith", DisplayName: "J Smith", PrisonCode: "MDI"},
		Location:       time.UTC,
		Now:            func() time.Time { return testNow },
		Limits:         config.Default("").Limits,
		SessionSecret:  "test-secret",
		BaseURL:        "https://activities.test",
		Version:        "test",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	h, err := New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{t: t, srv: srv, client: client, acts: acts, people: people, repo: repo.Repo{DB: conn}}
}

func (e *testEnv) do(req *http.Request) (*http.Response, string) {
	e.t.Helper()
	resp, err := e.client.Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		e.t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func (e *testEnv) get(path string) (*http.Response, string) {
	e.t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	if err != nil {
		e.t.Fatalf("new request: %v", err)
	}
	return e.do(req)
}

func (e *testEnv) post(path string, form url.Values) (*http.Response, string) {
	e.t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		e.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

// step posts form to path and expects a redirect to want.
func (e *testEnv) step(path string, form url.Values, want string) {
	e.t.Helper()
	resp, body := e.post(path, form)
	if resp.StatusCode != http.StatusSeeOther {
		e.t.Fatalf("POST %s: status %d, want 303\n%s", path, resp.StatusCode, body)
	}
	if got := resp.Header.Get("Location"); got != want {
		e.t.Fatalf("POST %s: redirected to %q, want %q", path, got, want)
	}
}

// enter follows an entry link and expects a redirect to want.
func (e *testEnv) enter(path, want string) {
	e.t.Helper()
	resp, body := e.get(path)
	if resp.StatusCode != http.StatusSeeOther {
		e.t.Fatalf("GET %s: status %d, want 303\n%s", path, resp.StatusCode, body)
	}
	if got := resp.Header.Get("Location"); got != want {
		e.t.Fatalf("GET %s: redirected to %q, want %q", path, got, want)
	}
}

func dateForm(prefix string, day, month, year int) url.Values {
	return url.Values{
		prefix + "-day":   {fmt.Sprint(day)},
		prefix + "-month": {fmt.Sprint(month)},
		prefix + "-year":  {fmt.Sprint(year)},
	}
}

func merge(forms ...url.Values) url.Values {
	out := url.Values{}
	for _, f := range forms {
		for k, v := range f {
			out[k] = append(out[k], v...)
		}
	}
	return out
}

// shows checks for text as html/template would escape it.
func shows(body, text string) bool {
	return strings.Contains(body, html.EscapeString(text))
}

var errUpstreamDown = errors.New("connection refused")

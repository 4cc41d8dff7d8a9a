package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"activities/internal/events"
)

func editLocation(env *testEnv, id string) {
	env.t.Helper()
	env.enter("/appointments/"+id+"/edit/start/location", "/appointments/"+id+"/edit/location")
}

func TestApplyToOptions(t *testing.T) {
	cases := []struct {
		name    string
		id      string
		form    url.Values
		step    string
		want    []string
		notWant []string
	}{
		{
			name: "second of four",
			id:   "102",
			form: url.Values{"locationId": {"12"}},
			step: "location",
			want: []string{"THIS_APPOINTMENT", "THIS_AND_ALL_FUTURE_APPOINTMENTS", "ALL_FUTURE_APPOINTMENTS"},
		},
		{
			name:    "last of four",
			id:      "104",
			form:    url.Values{"locationId": {"12"}},
			step:    "location",
			want:    []string{"THIS_APPOINTMENT", "ALL_FUTURE_APPOINTMENTS"},
			notWant: []string{"THIS_AND_ALL_FUTURE_APPOINTMENTS"},
		},
		{
			name:    "first of four",
			id:      "101",
			form:    url.Values{"locationId": {"12"}},
			step:    "location",
			want:    []string{"THIS_APPOINTMENT", "THIS_AND_ALL_FUTURE_APPOINTMENTS"},
			notWant: []string{"ALL_FUTURE_APPOINTMENTS"},
		},
		{
			name: "second of four moved to another day",
			id:   "102",
			form: merge(dateForm("startDate", 5, 9, 2023), url.Values{
				"startTime-hour": {"09"}, "startTime-minute": {"00"},
				"endTime-hour": {"10"}, "endTime-minute": {"30"},
			}),
			step:    "date-and-time",
			want:    []string{"THIS_APPOINTMENT", "THIS_AND_ALL_FUTURE_APPOINTMENTS"},
			notWant: []string{"ALL_FUTURE_APPOINTMENTS"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newEnv(t)
			env.acts.addSeries(1, "2023-08-28", 4, 0)
			base := "/appointments/" + tc.id + "/edit/"
			env.enter(base+"start/"+tc.step, base+tc.step)
			env.step(base+tc.step, tc.form, base+"apply-to")

			_, body := env.get(base + "apply-to")
			for _, v := range tc.want {
				if !strings.Contains(body, `value="`+v+`"`) {
					t.Errorf("option %s not offered", v)
				}
			}
			for _, v := range tc.notWant {
				if strings.Contains(body, `value="`+v+`"`) {
					t.Errorf("option %s offered", v)
				}
			}
		})
	}
}

func TestApplyToUpdatesChosenAppointments(t *testing.T) {
	env := newEnv(t)
	env.acts.addSeries(1, "2023-08-28", 4, 0)
	editLocation(env, "102")
	env.step("/appointments/102/edit/location", url.Values{"locationId": {"12"}}, "/appointments/102/edit/apply-to")

	resp, body := env.post("/appointments/102/edit/apply-to", url.Values{"applyTo": {"SOMETHING_ELSE"}})
	if resp.StatusCode != http.StatusUnprocessableEntity || !shows(body, "Select which appointments you want to change") {
		t.Fatalf("status %d\n%s", resp.StatusCode, body)
	}

	env.step("/appointments/102/edit/apply-to", url.Values{"applyTo": {"THIS_AND_ALL_FUTURE_APPOINTMENTS"}}, "/appointments/102")
	if len(env.acts.updates) != 1 {
		t.Fatalf("updates: %d", len(env.acts.updates))
	}
	got := env.acts.updates[0]
	if got.ApplyTo != "THIS_AND_ALL_FUTURE_APPOINTMENTS" || got.InternalLocationID == nil || *got.InternalLocationID != 12 {
		t.Fatalf("unexpected update %+v", got)
	}
	_, body = env.get("/appointments/102")
	if !shows(body, "You've changed the location for appointments 2 to 4 in the series") {
		t.Fatalf("missing banner:\n%s", body)
	}
	// The journey is finished, so apply-to is no longer reachable.
	env.enter("/appointments/102/edit/apply-to", "/appointments/102")
}

func TestSingleRemainingAppointmentSkipsApplyTo(t *testing.T) {
	env := newEnv(t)
	// 1, 8 and 15 August have expired and 22 August at 09:00 has started.
	env.acts.addSeries(1, "2023-08-01", 5, 3)
	editLocation(env, "105")
	env.step("/appointments/105/edit/location", url.Values{"locationId": {"12"}}, "/appointments/105")

	if len(env.acts.updates) != 1 || env.acts.updates[0].ApplyTo != "THIS_APPOINTMENT" {
		t.Fatalf("unexpected updates %+v", env.acts.updates)
	}
	_, body := env.get("/appointments/105")
	if !shows(body, "You've changed the location for this appointment") {
		t.Fatalf("missing banner:\n%s", body)
	}
}

func TestEditingAStartedAppointmentIsRefused(t *testing.T) {
	env := newEnv(t)
	env.acts.addSeries(1, "2023-08-01", 5, 3)
	resp, _ := env.get("/appointments/104/edit/start/location")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
}

func TestAddAttendeesCeiling(t *testing.T) {
	env := newEnv(t, func(c *Config) { c.Limits.MaxAppointmentInstances = 5 })
	env.acts.addSeries(1, "2023-08-28", 4, 0)
	env.enter("/appointments/101/edit/start/prisoners-add", "/appointments/101/edit/prisoners/add")
	env.step("/appointments/101/edit/prisoners/add", url.Values{"prisonerNumbers": {"B2345CD\nC3456DE"}}, "/appointments/101/edit/apply-to")

	resp, body := env.post("/appointments/101/edit/apply-to", url.Values{"applyTo": {"THIS_AND_ALL_FUTURE_APPOINTMENTS"}})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422", resp.StatusCode)
	}
	if !shows(body, "You cannot add more than 1 attendees for this number of appointments.") {
		t.Fatalf("missing ceiling message:\n%s", body)
	}
	if n := env.acts.updateCount(); n != 0 {
		t.Fatalf("api called %d times", n)
	}

	env.step("/appointments/101/edit/apply-to", url.Values{"applyTo": {"THIS_APPOINTMENT"}}, "/appointments/101")
	got := env.acts.updates[0].AddPrisonerNumbers
	if len(got) != 2 || got[0] != "B2345CD" || got[1] != "C3456DE" {
		t.Fatalf("unexpected attendees %v", got)
	}
	_, body = env.get("/appointments/101")
	if !shows(body, "You've added 2 people to this appointment") {
		t.Fatalf("missing banner:\n%s", body)
	}
}

func TestRejectedAddAttendeesKeepsEarlierChoice(t *testing.T) {
	env := newEnv(t)
	env.acts.addSeries(1, "2023-08-28", 4, 0)
	env.enter("/appointments/101/edit/start/prisoners-add", "/appointments/101/edit/prisoners/add")
	env.step("/appointments/101/edit/prisoners/add", url.Values{"prisonerNumbers": {"B2345CD"}}, "/appointments/101/edit/apply-to")

	resp, body := env.post("/appointments/101/edit/prisoners/add", url.Values{"prisonerNumbers": {"Z9999ZZ"}})
	if resp.StatusCode != http.StatusUnprocessableEntity || !shows(body, "There is no one in this prison with prison number Z9999ZZ") {
		t.Fatalf("status %d\n%s", resp.StatusCode, body)
	}

	env.step("/appointments/101/edit/apply-to", url.Values{"applyTo": {"THIS_APPOINTMENT"}}, "/appointments/101")
	got := env.acts.updates[0].AddPrisonerNumbers
	if len(got) != 1 || got[0] != "B2345CD" {
		t.Fatalf("unexpected attendees %v", got)
	}
	_, body = env.get("/appointments/101")
	if !shows(body, "You've added 1 person to this appointment") {
		t.Fatalf("missing banner:\n%s", body)
	}
}

func TestCancelAndDeleteAppointments(t *testing.T) {
	env := newEnv(t)
	env.acts.addSeries(1, "2023-08-28", 4, 0)

	env.enter("/appointments/103/edit/start/cancel", "/appointments/103/edit/cancel/reason")
	env.step("/appointments/103/edit/cancel/reason", url.Values{"reason": {"2"}}, "/appointments/103/edit/apply-to")
	env.step("/appointments/103/edit/apply-to", url.Values{"applyTo": {"ALL_FUTURE_APPOINTMENTS"}}, "/appointments/103")
	if len(env.acts.cancels) != 1 || env.acts.cancels[0].CancellationReasonID != 2 || env.acts.cancels[0].ApplyTo != "ALL_FUTURE_APPOINTMENTS" {
		t.Fatalf("unexpected cancels %+v", env.acts.cancels)
	}
	_, body := env.get("/appointments/103")
	if !shows(body, "You've cancelled appointments 1 to 4 in the series") {
		t.Fatalf("missing banner:\n%s", body)
	}

	env.enter("/appointments/104/edit/start/cancel", "/appointments/104/edit/cancel/reason")
	env.step("/appointments/104/edit/cancel/reason", url.Values{"reason": {"1"}}, "/appointments/104/edit/apply-to")
	env.step("/appointments/104/edit/apply-to", url.Values{"applyTo": {"THIS_APPOINTMENT"}}, "/")
	_, body = env.get("/")
	if !shows(body, "You've deleted this appointment") {
		t.Fatalf("missing banner:\n%s", body)
	}

	evts, err := env.repo.LatestEvents(context.Background(), 10, 0, "", "appointment")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(evts) != 2 || evts[0].Type != events.AppointmentDeleted || evts[1].Type != events.AppointmentCancelled {
		t.Fatalf("unexpected audit trail %+v", evts)
	}
}

func TestEditJourneyForAnotherAppointmentIsIgnored(t *testing.T) {
	env := newEnv(t)
	env.acts.addSeries(1, "2023-08-28", 4, 0)
	editLocation(env, "102")
	env.enter("/appointments/103/edit/location", "/appointments/103")
}

func TestCreateRepeatingAppointment(t *testing.T) {
	env := newEnv(t)
	const base = "/appointments/create/"
	env.enter(base+"start?type=INDIVIDUAL", base+"prisoners")

	resp, body := env.post(base+"prisoners", url.Values{"prisoner": {"Z9999ZZ"}})
	if resp.StatusCode != http.StatusUnprocessableEntity || !shows(body, "There is no one in this prison with prison number Z9999ZZ") {
		t.Fatalf("status %d\n%s", resp.StatusCode, body)
	}
	env.step(base+"prisoners", url.Values{"prisoner": {"bloggs"}}, base+"category")
	env.step(base+"category", url.Values{"categoryCode": {"GYMW"}}, base+"location")
	env.step(base+"location", url.Values{"locationId": {"11"}}, base+"date-and-time")

	times := url.Values{"startTime-hour": {"09"}, "startTime-minute": {"00"}, "endTime-hour": {"08"}, "endTime-minute": {"30"}}
	resp, body = env.post(base+"date-and-time", merge(dateForm("startDate", 29, 8, 2023), times))
	if resp.StatusCode != http.StatusUnprocessableEntity || !shows(body, "Select an end time after the start time") {
		t.Fatalf("status %d\n%s", resp.StatusCode, body)
	}
	times.Set("endTime-hour", "10")
	env.step(base+"date-and-time", merge(dateForm("startDate", 29, 8, 2023), times), base+"repeat")
	env.step(base+"repeat", url.Values{"repeat": {"yes"}}, base+"repeat-frequency-and-count")

	resp, body = env.post(base+"repeat-frequency-and-count", url.Values{"repeatPeriod": {"WEEKLY"}, "repeatCount": {"53"}})
	if resp.StatusCode != http.StatusUnprocessableEntity || !shows(body, "Number of appointments must be 52 or fewer") {
		t.Fatalf("status %d\n%s", resp.StatusCode, body)
	}
	env.step(base+"repeat-frequency-and-count", url.Values{"repeatPeriod": {"WEEKLY"}, "repeatCount": {"3"}}, base+"comment")
	env.step(base+"comment", url.Values{"extraInformation": {"Bring *trainers*"}}, base+"check-answers")

	_, body = env.get(base + "check-answers")
	for _, want := range []string{"Joe Bloggs (A1234BC)", "Gym - Weights", "Tuesday, 29 August 2023, 09:00 to 10:30", "Tuesday, 12 September 2023", "<em>trainers</em>"} {
		if !strings.Contains(body, want) {
			t.Errorf("check answers missing %q", want)
		}
	}

	env.step(base+"check-answers", url.Values{}, "/appointments/5001")
	if len(env.acts.created) != 1 {
		t.Fatalf("created: %d", len(env.acts.created))
	}
	req := env.acts.created[0]
	if req.PrisonCode != "MDI" || req.StartTime != "09:00" || req.EndTime != "10:30" || req.Schedule == nil || req.Schedule.NumberOfAppointments != 3 {
		t.Fatalf("unexpected request %+v", req)
	}
	evts, err := env.repo.LatestEvents(context.Background(), 10, 0, events.AppointmentSeriesCreated, "")
	if err != nil || len(evts) != 1 {
		t.Fatalf("events %+v err %v", evts, err)
	}
}

func TestSeriesCalendarExport(t *testing.T) {
	env := newEnv(t)
	env.acts.addSeries(1, "2023-08-28", 4, 0)

	resp, body := env.get("/appointments/102/series.ics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d\n%s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("content type %q", ct)
	}
	if !strings.Contains(body, "BEGIN:VCALENDAR") || !strings.Contains(body, "appointment-101@activities.test") {
		t.Fatalf("unexpected calendar:\n%s", body)
	}
	if n := strings.Count(body, "BEGIN:VEVENT"); n != 4 {
		t.Fatalf("events: %d", n)
	}

	resp, _ = env.get("/appointments/999/series.ics")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown appointment: status %d", resp.StatusCode)
	}
}

var csrfInput = regexp.MustCompile(`name="_csrf" value="([^"]+)"`)

func TestCSRFProtectsPosts(t *testing.T) {
	env := newEnv(t, func(c *Config) {
		c.CSRFEnabled = true
		c.CSRFKey = strings.Repeat("k", 32)
	})
	form := url.Values{"datePresetOption": {"today"}}

	resp, body := env.post("/attendance-summary/select-period", form)
	if resp.StatusCode != http.StatusForbidden || !shows(body, "Your form could not be submitted") {
		t.Fatalf("status %d\n%s", resp.StatusCode, body)
	}

	_, body = env.get("/attendance-summary/select-period")
	m := csrfInput.FindStringSubmatch(body)
	if m == nil {
		t.Fatalf("no token in form:\n%s", body)
	}
	form.Set("_csrf", m[1])
	env.step("/attendance-summary/select-period", form, "/attendance-summary/summary?date=2023-08-22")
}

func TestHealthReportsUpstreams(t *testing.T) {
	env := newEnv(t, func(c *Config) {
		c.Upstreams = map[string]Pinger{
			"activitiesApi":     fakePinger{},
			"prisonerSearchApi": fakePinger{err: errUpstreamDown},
		}
	})
	resp, body := env.get("/health")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503\n%s", resp.StatusCode, body)
	}
	var got HealthBody
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, body)
	}
	if got.Status != "DOWN" || got.Components["activitiesApi"].Status != "UP" || got.Components["prisonerSearchApi"].Error != "connection refused" {
		t.Fatalf("unexpected health %+v", got)
	}

	resp, body = env.get("/ping")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "UP") {
		t.Fatalf("ping: status %d\n%s", resp.StatusCode, body)
	}
}

func TestHealthUpWhenEveryUpstreamAnswers(t *testing.T) {
	env := newEnv(t)
	resp, body := env.get("/health")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"status":"UP"`) {
		t.Fatalf("status %d\n%s", resp.StatusCode, body)
	}
}

func TestRoutesListsJourneySteps(t *testing.T) {
	env := newEnv(t)
	h, err := New(Config{
		Activities:     env.acts,
		PrisonerSearch: env.people,
		Incentives:     env.people,
		Locations:      env.people,
		Repo:           env.repo,
		SessionSecret:  "s",
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	routes, err := Routes(h)
	if err != nil {
		t.Fatalf("routes: %v", err)
	}
	want := map[Route]bool{
		{Method: http.MethodGet, Pattern: "/appointments/{appointmentId}/series.ics"}:     false,
		{Method: http.MethodPost, Pattern: "/appointments/{appointmentId}/edit/apply-to"}: false,
		{Method: http.MethodPost, Pattern: "/activities/create/check-answers"}:            false,
		{Method: http.MethodGet, Pattern: "/health"}:                                      false,
	}
	for _, r := range routes {
		if _, ok := want[r]; ok {
			want[r] = true
		}
	}
	for r, seen := range want {
		if !seen {
			t.Errorf("route %s %s not listed", r.Method, r.Pattern)
		}
	}
}

func TestNewRejectsIncompleteConfig(t *testing.T) {
	env := newEnv(t)
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without clients")
	}
	_, err := New(Config{
		Activities: env.acts, PrisonerSearch: env.people, Incentives: env.people, Locations: env.people,
		Repo: env.repo, SessionSecret: "s", CSRFEnabled: true, CSRFKey: "short",
	})
	if err == nil {
		t.Fatal("expected error for short csrf key")
	}
}

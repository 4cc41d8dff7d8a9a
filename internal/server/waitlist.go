package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"activities/internal/domain"
	"activities/internal/events"
	"activities/internal/journey"
	"activities/internal/validate"
)

var requesters = []Option{
	{Value: "PRISONER", Text: "Self-requested"},
	{Value: "GUIDANCE_STAFF", Text: "Careers information, advice and guidance staff"},
	{Value: "EDUCATION_STAFF", Text: "Education staff"},
	{Value: "WORKSHOP_STAFF", Text: "Workshop staff"},
	{Value: "ACTIVITY_LEADER", Text: "Activity leader"},
	{Value: "MENTAL_HEALTH_STAFF", Text: "Mental health staff"},
	{Value: "OFFENDER_MANAGER", Text: "Offender manager"},
	{Value: "OTHER", Text: "Someone else"},
}

var waitlistStatuses = []Option{
	{Value: "PENDING", Text: "Pending"},
	{Value: "APPROVED", Text: "Approved"},
	{Value: "DECLINED", Text: "Declined"},
}

func (s *server) waitlistRoutes(r chi.Router) {
	r.Get("/confirmation", s.waitlistLogged)
	s.mountFlow(r, journey.Waitlist, toHome, map[string]step{
		"request-date":  {get: s.getRequestDate, post: s.postRequestDate},
		"requester":     {get: s.getRequester, post: s.postRequester},
		"status":        {get: s.getWaitlistStatus, post: s.postWaitlistStatus},
		"check-answers": {get: s.getWaitlistCheckAnswers, post: s.postWaitlistCheckAnswers},
	})
	r.Get("/{scheduleId}/{prisonerNumber}", s.startWaitlist)
}

func waitlistJourney(r *http.Request) *journey.WaitlistApplicationJourney {
	return sessionFrom(r).WaitlistApplicationJourney
}

func (s *server) startWaitlist(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := strconv.Atoi(chi.URLParam(r, "scheduleId"))
	if err != nil {
		s.notFound(w, r)
		return
	}
	prisoner, err := s.PrisonerSearch.Prisoner(r.Context(), chi.URLParam(r, "prisonerNumber"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ref, err := s.activityRef(r.Context(), scheduleID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sessionFrom(r).WaitlistApplicationJourney = &journey.WaitlistApplicationJourney{Prisoner: inmateFrom(prisoner), Activity: ref}
	redirect(w, r, "/waitlist/request-date")
}

func waitlistPage(j *journey.WaitlistApplicationJourney, title string, fields ...*Field) Page {
	return Page{
		Title:      title,
		Caption:    "Log an application",
		Paragraphs: []string{fmt.Sprintf("%s (%s): %s", j.Prisoner.Name, j.Prisoner.PrisonerNumber, j.Activity.Name)},
		Form:       &Form{Fields: fields},
	}
}

func requestDatePage(j *journey.WaitlistApplicationJourney) Page {
	return waitlistPage(j, "When was the application made?", dateField("requestDate", "Request date", "For example, 27 3 2024", j.RequestDate))
}

func (s *server) getRequestDate(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, requestDatePage(waitlistJourney(r)))
}

func (s *server) postRequestDate(w http.ResponseWriter, r *http.Request) {
	j := waitlistJourney(r)
	today := s.today()
	days := s.Limits.WaitlistRequestDays
	v := validate.New()
	date, _ := validate.Date(v, r.PostForm, "requestDate", "Enter a valid request date",
		validate.DateIsSameOrBefore(today, "Enter a date on or before today"),
		validate.DateWithinDaysPast(today, days, fmt.Sprintf("Enter a date within the last %d days", days)))
	if !v.Valid() {
		s.invalid(w, r, requestDatePage(j), v.Errors())
		return
	}
	j.RequestDate = date
	redirect(w, r, nextStep(r, "requester"))
}

func requesterPage(j *journey.WaitlistApplicationJourney) Page {
	return waitlistPage(j, "Who made the application?",
		&Field{Name: "requester", Label: "Requested by", Kind: KindRadios, Options: requesters, Value: j.RequestedBy})
}

func (s *server) getRequester(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, requesterPage(waitlistJourney(r)))
}

func (s *server) postRequester(w http.ResponseWriter, r *http.Request) {
	j := waitlistJourney(r)
	v := validate.New()
	who, _ := validate.Text(v, r.PostForm, "requester", validate.OneOf("Select who requested the place", optionValues(requesters)...))
	if !v.Valid() {
		s.invalid(w, r, requesterPage(j), v.Errors())
		return
	}
	j.RequestedBy = who
	redirect(w, r, nextStep(r, "status"))
}

func waitlistStatusPage(j *journey.WaitlistApplicationJourney) Page {
	return waitlistPage(j, "What is the status of the application?",
		&Field{Name: "status", Label: "Status", Kind: KindRadios, Options: waitlistStatuses, Value: j.Status},
		&Field{Name: "comment", Label: "Comment (optional)", Hint: "You can use markdown, for example **bold** text", Kind: KindTextarea, Value: j.Comment})
}

func (s *server) getWaitlistStatus(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, waitlistStatusPage(waitlistJourney(r)))
}

func (s *server) postWaitlistStatus(w http.ResponseWriter, r *http.Request) {
	j := waitlistJourney(r)
	v := validate.New()
	status, _ := validate.Text(v, r.PostForm, "status", validate.OneOf("Select a status for the application", optionValues(waitlistStatuses)...))
	comment, _ := validate.Text(v, r.PostForm, "comment", validate.MaxLength(500, "You must enter a comment which has no more than 500 characters"))
	if !v.Valid() {
		s.invalid(w, r, waitlistStatusPage(j), v.Errors())
		return
	}
	j.Status = status
	j.Comment = comment
	redirect(w, r, "check-answers")
}

func (s *server) getWaitlistCheckAnswers(w http.ResponseWriter, r *http.Request) {
	j := waitlistJourney(r)
	page := waitlistPage(j, "Check and confirm the application details")
	page.Summary = []Row{
		{Key: "Activity", Value: j.Activity.Name},
		{Key: "Request date", Value: j.RequestDate.Display(), Href: "request-date?preserveHistory=true"},
		{Key: "Requested by", Value: optionText(requesters, j.RequestedBy), Href: "requester?preserveHistory=true"},
		{Key: "Status", Value: optionText(waitlistStatuses, j.Status), Href: "status?preserveHistory=true"},
	}
	page.Markdown = j.Comment
	page.Form.Submit = "Confirm and log the application"
	s.render(w, r, http.StatusOK, page)
}

func (s *server) postWaitlistCheckAnswers(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	j := sess.WaitlistApplicationJourney
	req := domain.WaitingListApplicationRequest{
		PrisonerNumber:     j.Prisoner.PrisonerNumber,
		ActivityScheduleID: j.Activity.ScheduleID,
		ApplicationDate:    j.RequestDate.ISO(),
		RequestedBy:        optionText(requesters, j.RequestedBy),
		Comments:           j.Comment,
		Status:             j.Status,
	}
	if err := s.Activities.LogWaitlistApplication(r.Context(), s.prison(r), req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.audit(r, events.Entry{
		Type:       events.WaitlistApplicationAdded,
		EntityKind: "schedule",
		EntityID:   strconv.Itoa(j.Activity.ScheduleID),
		Payload:    events.EventPayload{"prisonerNumber": req.PrisonerNumber, "status": req.Status},
	})
	sess.WaitlistApplicationJourney = nil
	sess.SetFlash("Application logged", fmt.Sprintf("You've logged an application for %s to join %s", j.Prisoner.Name, j.Activity.Name))
	redirect(w, r, "confirmation")
}

func (s *server) waitlistLogged(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, Page{
		Title: "Application logged",
		Links: []Link{{Text: "Go to the home page", Href: "/"}},
	})
}

package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"activities/internal/domain"
	"activities/internal/events"
	"activities/internal/journey"
	"activities/internal/simpledate"
	"activities/internal/validate"
)

func (s *server) deallocateRoutes(r chi.Router) {
	r.Get("/confirmation", s.deallocated)
	s.mountFlow(r, journey.Deallocate, toHome, map[string]step{
		"date":          {get: s.getDeallocateDate, post: s.postDeallocateDate},
		"reason":        {get: s.getDeallocateReason, post: s.postDeallocateReason},
		"check-answers": {get: s.getDeallocateCheckAnswers, post: s.postDeallocateCheckAnswers},
	})
	r.Get("/{scheduleId}", s.startDeallocate)
}

func deallocateJourney(r *http.Request) *journey.DeallocateJourney {
	return sessionFrom(r).DeallocateJourney
}

func (s *server) startDeallocate(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := strconv.Atoi(chi.URLParam(r, "scheduleId"))
	if err != nil {
		s.notFound(w, r)
		return
	}
	selected := map[int]bool{}
	for _, raw := range strings.Split(r.URL.Query().Get("selectedAllocations"), ",") {
		if id, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			selected[id] = true
		}
	}
	if len(selected) == 0 {
		s.badRequest(w, r, "Select at least one allocation to end")
		return
	}
	ref, err := s.activityRef(r.Context(), scheduleID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	allocs, err := s.Activities.ScheduleAllocations(r.Context(), scheduleID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	j := &journey.DeallocateJourney{Activity: ref}
	for _, a := range allocs {
		if !selected[a.ID] {
			continue
		}
		p, err := s.PrisonerSearch.Prisoner(r.Context(), a.PrisonerNumber)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		start, _ := simpledate.ParseISO(a.StartDate)
		j.Allocations = append(j.Allocations, journey.AllocationRef{
			AllocationID:   a.ID,
			PrisonerNumber: a.PrisonerNumber,
			Name:           inmateFrom(p).Name,
			StartDate:      start,
		})
	}
	if len(j.Allocations) == 0 {
		s.badRequest(w, r, "None of the selected allocations are active on this activity")
		return
	}
	sessionFrom(r).DeallocateJourney = j
	redirect(w, r, "/deallocate/date")
}

func deallocatePage(j *journey.DeallocateJourney, title string, fields ...*Field) Page {
	who := fmt.Sprintf("%d people", len(j.Allocations))
	if len(j.Allocations) == 1 {
		who = j.Allocations[0].Name
	}
	return Page{
		Title:      title,
		Caption:    "End allocations",
		Paragraphs: []string{fmt.Sprintf("%s: %s", who, j.Activity.Name)},
		Form:       &Form{Fields: fields},
	}
}

func deallocateDatePage(j *journey.DeallocateJourney) Page {
	option := &Field{Name: "deallocationDateOption", Label: "End date", Kind: KindRadios, Value: j.DateOption, Options: []Option{
		{Value: journey.DeallocateToday, Text: "Today"},
		{Value: journey.DeallocateOther, Text: "A different date"},
	}}
	date := dateField("endDate", "Date", "Only needed for a different date, for example 27 3 2024", simpledate.SimpleDate{})
	if j.DateOption == journey.DeallocateOther {
		date = dateField("endDate", "Date", "For example, 27 3 2024", j.EndDate)
	}
	return deallocatePage(j, "When do you want the allocation to end?", option, date)
}

func (s *server) getDeallocateDate(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, deallocateDatePage(deallocateJourney(r)))
}

func (s *server) postDeallocateDate(w http.ResponseWriter, r *http.Request) {
	j := deallocateJourney(r)
	today := s.today()
	v := validate.New()
	option, _ := validate.Text(v, r.PostForm, "deallocationDateOption",
		validate.OneOf("Select when the allocation should end", journey.DeallocateToday, journey.DeallocateOther))
	end := today
	v.When(option == journey.DeallocateOther, func(v *validate.Validator) {
		rules := []validate.Rule[simpledate.SimpleDate]{
			validate.DateIsAfter(today, "Enter a date in the future"),
		}
		latest := simpledate.SimpleDate{}
		for _, a := range j.Allocations {
			if a.StartDate.After(latest) {
				latest = a.StartDate
			}
		}
		if !latest.IsZero() {
			rules = append(rules, validate.DateIsSameOrAfter(latest, "Enter a date on or after the allocation start date, "+latest.Display()))
		}
		if !j.Activity.EndDate.IsZero() {
			rules = append(rules, validate.DateIsSameOrBefore(j.Activity.EndDate, "Enter a date on or before the activity's end date, "+j.Activity.EndDate.Display()))
		}
		end, _ = validate.Date(v, r.PostForm, "endDate", "Enter a valid date", rules...)
	})
	if !v.Valid() {
		s.invalid(w, r, deallocateDatePage(j), v.Errors())
		return
	}
	j.DateOption = option
	j.EndDate = end
	redirect(w, r, nextStep(r, "reason"))
}

func (s *server) deallocateReasonPage(r *http.Request, j *journey.DeallocateJourney) (Page, []domain.DeallocationReason, error) {
	reasons, err := s.Activities.DeallocationReasons(r.Context())
	if err != nil {
		return Page{}, nil, err
	}
	f := &Field{Name: "deallocationReason", Label: "Reason", Kind: KindRadios, Value: j.ReasonCode}
	for _, reason := range reasons {
		f.Options = append(f.Options, Option{Value: reason.Code, Text: reason.Description})
	}
	return deallocatePage(j, "Why is this allocation ending?", f), reasons, nil
}

func (s *server) getDeallocateReason(w http.ResponseWriter, r *http.Request) {
	page, _, err := s.deallocateReasonPage(r, deallocateJourney(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, page)
}

func (s *server) postDeallocateReason(w http.ResponseWriter, r *http.Request) {
	j := deallocateJourney(r)
	page, reasons, err := s.deallocateReasonPage(r, j)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v := validate.New()
	code, _ := validate.Text(v, r.PostForm, "deallocationReason",
		validate.OneOf("Select a reason for ending the allocation", optionValues(page.Form.Fields[0].Options)...))
	if !v.Valid() {
		s.invalid(w, r, page, v.Errors())
		return
	}
	j.ReasonCode = code
	for _, reason := range reasons {
		if reason.Code == code {
			j.ReasonDescription = reason.Description
		}
	}
	redirect(w, r, "check-answers")
}

func (s *server) getDeallocateCheckAnswers(w http.ResponseWriter, r *http.Request) {
	j := deallocateJourney(r)
	page := deallocatePage(j, "Check and confirm ending the allocation")
	page.Table = &Table{Head: []string{"Name", "Prison number", "Allocated from"}}
	for _, a := range j.Allocations {
		page.Table.Rows = append(page.Table.Rows, []string{a.Name, a.PrisonerNumber, a.StartDate.Display()})
	}
	page.Summary = []Row{
		{Key: "Activity", Value: j.Activity.Name},
		{Key: "End date", Value: j.EndDate.Display(), Href: "date?preserveHistory=true"},
		{Key: "Reason", Value: j.ReasonDescription, Href: "reason?preserveHistory=true"},
	}
	page.Form.Submit = "Confirm and end allocation"
	s.render(w, r, http.StatusOK, page)
}

func (s *server) postDeallocateCheckAnswers(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	j := sess.DeallocateJourney
	req := domain.DeallocationRequest{ReasonCode: j.ReasonCode, EndDate: j.EndDate.ISO()}
	for _, a := range j.Allocations {
		req.PrisonerNumbers = append(req.PrisonerNumbers, a.PrisonerNumber)
	}
	if err := s.Activities.Deallocate(r.Context(), j.Activity.ScheduleID, req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.audit(r, events.Entry{
		Type:       events.AllocationsEnded,
		EntityKind: "schedule",
		EntityID:   strconv.Itoa(j.Activity.ScheduleID),
		Payload:    events.EventPayload{"prisonerNumbers": req.PrisonerNumbers, "reason": req.ReasonCode, "endDate": req.EndDate},
	})
	sess.DeallocateJourney = nil
	sess.SetFlash("Allocation ended", fmt.Sprintf("You've ended %s on %s from %s", allocationCount(len(req.PrisonerNumbers)), j.Activity.Name, j.EndDate.Display()))
	redirect(w, r, "confirmation")
}

func (s *server) deallocated(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, Page{
		Title: "Allocations ended",
		Links: []Link{{Text: "Go to the home page", Href: "/"}},
	})
}

func allocationCount(n int) string {
	if n == 1 {
		return "1 allocation"
	}
	return fmt.Sprintf("%d allocations", n)
}

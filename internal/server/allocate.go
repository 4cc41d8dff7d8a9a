package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"activities/internal/domain"
	"activities/internal/events"
	"activities/internal/journey"
	"activities/internal/simpledate"
	"activities/internal/validate"
)

func (s *server) allocateRoutes(r chi.Router) {
	r.Get("/prisoner/{prisonerNumber}", s.startAllocate)
	r.Get("/confirmation", s.allocated)
	s.mountFlow(r, journey.Allocate, toHome, map[string]step{
		"start-date":      {get: s.getAllocationStartDate, post: s.postAllocationStartDate},
		"end-date-option": {get: s.getAllocationEndDateOption, post: s.postAllocationEndDateOption},
		"end-date":        {get: s.getAllocationEndDate, post: s.postAllocationEndDate},
		"pay-band":        {get: s.getPayBand, post: s.postPayBand},
		"check-answers":   {get: s.getAllocationCheckAnswers, post: s.postAllocationCheckAnswers},
	})
}

func allocateJourney(r *http.Request) *journey.AllocateJourney {
	return sessionFrom(r).AllocateJourney
}

func inmateFrom(p domain.Prisoner) journey.Inmate {
	in := journey.Inmate{
		PrisonerNumber: p.PrisonerNumber,
		Name:           joinNonEmpty(" ", p.FirstName, p.LastName),
		CellLocation:   p.CellLocation,
	}
	if p.CurrentIncentive != nil {
		in.IncentiveCode = p.CurrentIncentive.Level.Code
		in.IncentiveLevel = p.CurrentIncentive.Level.Description
	}
	return in
}

// activityRef describes the schedule a prisoner is being allocated to or removed from.
func (s *server) activityRef(ctx context.Context, scheduleID int) (journey.ActivityRef, error) {
	sch, err := s.Activities.Schedule(ctx, scheduleID)
	if err != nil {
		return journey.ActivityRef{}, err
	}
	ref := journey.ActivityRef{ScheduleID: sch.ID, Name: sch.Description}
	ref.StartDate, _ = simpledate.ParseISO(sch.StartDate)
	if sch.EndDate != nil {
		ref.EndDate, _ = simpledate.ParseISO(*sch.EndDate)
	}
	if act := sch.Activity; act != nil {
		ref.ActivityID = act.ID
		ref.Name = act.Summary
		ref.Paid = act.Paid
		for _, p := range act.Pay {
			ref.Pays = append(ref.Pays, journey.Pay{
				IncentiveCode:  p.IncentiveNomisCode,
				IncentiveLevel: p.IncentiveLevel,
				PayBandID:      p.PrisonPayBand.ID,
				PayBandAlias:   p.PrisonPayBand.Alias,
				Rate:           p.Rate,
			})
		}
	}
	return ref, nil
}

func (s *server) startAllocate(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := strconv.Atoi(r.URL.Query().Get("scheduleId"))
	if err != nil {
		s.badRequest(w, r, "A schedule must be chosen before allocating")
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
	sessionFrom(r).AllocateJourney = &journey.AllocateJourney{Inmate: inmateFrom(prisoner), Activity: ref}
	redirect(w, r, "/allocate/start-date")
}

func allocatePage(j *journey.AllocateJourney, title string, fields ...*Field) Page {
	caption := "Allocate to an activity"
	if j.Editing() {
		caption = "Change an allocation"
	}
	return Page{
		Title:      title,
		Caption:    caption,
		Paragraphs: []string{fmt.Sprintf("%s (%s): %s", j.Inmate.Name, j.Inmate.PrisonerNumber, j.Activity.Name)},
		Form:       &Form{Fields: fields},
	}
}

// updateAllocation persists a single edited answer and returns to the allocation.
func (s *server) updateAllocation(w http.ResponseWriter, r *http.Request, what string, req domain.AllocationUpdateRequest) {
	sess := sessionFrom(r)
	j := sess.AllocateJourney
	if _, err := s.Activities.UpdateAllocation(r.Context(), s.prison(r), j.AllocationID, req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.audit(r, events.Entry{
		Type:       events.AllocationUpdated,
		EntityKind: "allocation",
		EntityID:   strconv.Itoa(j.AllocationID),
		Payload:    events.EventPayload{"changed": what, "prisonerNumber": j.Inmate.PrisonerNumber},
	})
	sess.AllocateJourney = nil
	sess.SetFlash("Allocation updated", fmt.Sprintf("You've changed the %s for this allocation", what))
	redirect(w, r, fmt.Sprintf("/allocations/view/%d", j.AllocationID))
}

func allocationStartDatePage(j *journey.AllocateJourney) Page {
	return allocatePage(j, "When do you want this allocation to start?",
		dateField("startDate", "Start date", "For example, 27 3 2024", j.StartDate))
}

func (s *server) getAllocationStartDate(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, allocationStartDatePage(allocateJourney(r)))
}

func (s *server) postAllocationStartDate(w http.ResponseWriter, r *http.Request) {
	j := allocateJourney(r)
	rules := []validate.Rule[simpledate.SimpleDate]{
		validate.DateIsSameOrAfter(s.today(), "Enter a date on or after today"),
	}
	if !j.Activity.StartDate.IsZero() {
		rules = append(rules, validate.DateIsSameOrAfter(j.Activity.StartDate, "Enter a date on or after the activity's start date, "+j.Activity.StartDate.Display()))
	}
	if !j.Activity.EndDate.IsZero() {
		rules = append(rules, validate.DateIsSameOrBefore(j.Activity.EndDate, "Enter a date on or before the activity's end date, "+j.Activity.EndDate.Display()))
	}
	if !j.EndDate.IsZero() {
		rules = append(rules, validate.DateIsSameOrBefore(j.EndDate, "Enter a date on or before the allocation end date, "+j.EndDate.Display()))
	}
	v := validate.New()
	start, _ := validate.Date(v, r.PostForm, "startDate", "Enter a valid start date", rules...)
	if !v.Valid() {
		s.invalid(w, r, allocationStartDatePage(j), v.Errors())
		return
	}
	j.StartDate = start
	if j.Editing() {
		s.updateAllocation(w, r, "start date", domain.AllocationUpdateRequest{StartDate: ptr(start.ISO())})
		return
	}
	redirect(w, r, nextStep(r, "end-date-option"))
}

func allocationEndDateOptionPage(j *journey.AllocateJourney) Page {
	return allocatePage(j, "Do you want to set an end date for this allocation?", yesNo("endDateOption", "End date", j.HasEndDate))
}

func (s *server) getAllocationEndDateOption(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, allocationEndDateOptionPage(allocateJourney(r)))
}

func (s *server) postAllocationEndDateOption(w http.ResponseWriter, r *http.Request) {
	j := allocateJourney(r)
	v := validate.New()
	answer, _ := validate.Text(v, r.PostForm, "endDateOption", validate.OneOf("Select if you want to enter an end date", "yes", "no"))
	if !v.Valid() {
		s.invalid(w, r, allocationEndDateOptionPage(j), v.Errors())
		return
	}
	hasEnd := answer == "yes"
	j.HasEndDate = &hasEnd
	if hasEnd {
		redirect(w, r, carry(r, "end-date"))
		return
	}
	j.EndDate = simpledate.SimpleDate{}
	if j.Editing() {
		s.updateAllocation(w, r, "end date", domain.AllocationUpdateRequest{RemoveEndDate: true})
		return
	}
	redirect(w, r, nextStep(r, "pay-band"))
}

func allocationEndDatePage(j *journey.AllocateJourney) Page {
	return allocatePage(j, "When do you want this allocation to end?",
		dateField("endDate", "End date", "For example, 27 3 2024", j.EndDate))
}

func (s *server) getAllocationEndDate(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, allocationEndDatePage(allocateJourney(r)))
}

// Ending on the start date is allowed: the person attends that one day.
func (s *server) postAllocationEndDate(w http.ResponseWriter, r *http.Request) {
	j := allocateJourney(r)
	rules := []validate.Rule[simpledate.SimpleDate]{
		validate.DateIsSameOrAfter(j.StartDate, "Enter a date on or after the allocation start date, "+j.StartDate.Display()),
	}
	if !j.Activity.EndDate.IsZero() {
		rules = append(rules, validate.DateIsSameOrBefore(j.Activity.EndDate, "Enter a date on or before the activity's end date, "+j.Activity.EndDate.Display()))
	}
	v := validate.New()
	end, _ := validate.Date(v, r.PostForm, "endDate", "Enter a valid end date", rules...)
	if !v.Valid() {
		s.invalid(w, r, allocationEndDatePage(j), v.Errors())
		return
	}
	j.EndDate = end
	j.HasEndDate = ptr(true)
	if j.Editing() {
		s.updateAllocation(w, r, "end date", domain.AllocationUpdateRequest{EndDate: ptr(end.ISO())})
		return
	}
	redirect(w, r, nextStep(r, "pay-band"))
}

// payBandOptions offers the bands paid at the prisoner's incentive level, or every
// band of the activity when none is set for that level.
func payBandOptions(j *journey.AllocateJourney) []Option {
	var opts []Option
	seen := map[int]bool{}
	add := func(p journey.Pay) {
		if !seen[p.PayBandID] {
			seen[p.PayBandID] = true
			opts = append(opts, Option{Value: strconv.Itoa(p.PayBandID), Text: fmt.Sprintf("%s: %s", p.PayBandAlias, pence(p.Rate))})
		}
	}
	for _, p := range j.Activity.Pays {
		if p.IncentiveCode == j.Inmate.IncentiveCode {
			add(p)
		}
	}
	if len(opts) == 0 {
		for _, p := range j.Activity.Pays {
			add(p)
		}
	}
	return opts
}

func payBandPage(j *journey.AllocateJourney) Page {
	f := &Field{Name: "payBand", Label: "Pay band", Kind: KindRadios, Options: payBandOptions(j)}
	if j.PayBandID != 0 {
		f.Value = strconv.Itoa(j.PayBandID)
	}
	return allocatePage(j, "Select a pay band", f)
}

func (s *server) getPayBand(w http.ResponseWriter, r *http.Request) {
	j := allocateJourney(r)
	if !j.Activity.Paid {
		redirect(w, r, "check-answers")
		return
	}
	s.render(w, r, http.StatusOK, payBandPage(j))
}

func (s *server) postPayBand(w http.ResponseWriter, r *http.Request) {
	j := allocateJourney(r)
	if !j.Activity.Paid {
		redirect(w, r, "check-answers")
		return
	}
	page := payBandPage(j)
	v := validate.New()
	picked, _ := validate.Text(v, r.PostForm, "payBand", validate.OneOf("Select a pay band", optionValues(page.Form.Fields[0].Options)...))
	if !v.Valid() {
		s.invalid(w, r, page, v.Errors())
		return
	}
	j.PayBandID = atoi(picked)
	if j.Editing() {
		s.updateAllocation(w, r, "pay band", domain.AllocationUpdateRequest{PayBandID: &j.PayBandID})
		return
	}
	redirect(w, r, "check-answers")
}

func allocationRows(j *journey.AllocateJourney, link func(step string) string) []Row {
	end := "None"
	if !j.EndDate.IsZero() {
		end = j.EndDate.Display()
	}
	rows := []Row{
		{Key: "Name", Value: j.Inmate.Name},
		{Key: "Prison number", Value: j.Inmate.PrisonerNumber},
		{Key: "Activity", Value: j.Activity.Name},
		{Key: "Start date", Value: j.StartDate.Display(), Href: link("start-date")},
		{Key: "End date", Value: end, Href: link("end-date-option")},
	}
	if j.Activity.Paid {
		rows = append(rows, Row{Key: "Pay band", Value: j.PayBandAlias(), Href: link("pay-band")})
	}
	return rows
}

func (s *server) getAllocationCheckAnswers(w http.ResponseWriter, r *http.Request) {
	j := allocateJourney(r)
	page := allocatePage(j, "Check and confirm the allocation")
	page.Summary = allocationRows(j, func(step string) string { return step + "?preserveHistory=true" })
	page.Form.Submit = "Confirm this allocation"
	s.render(w, r, http.StatusOK, page)
}

func (s *server) postAllocationCheckAnswers(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	j := sess.AllocateJourney
	req := domain.AllocationRequest{PrisonerNumber: j.Inmate.PrisonerNumber, StartDate: j.StartDate.ISO()}
	if j.PayBandID != 0 {
		req.PayBandID = ptr(j.PayBandID)
	}
	if !j.EndDate.IsZero() {
		req.EndDate = ptr(j.EndDate.ISO())
	}
	if err := s.Activities.Allocate(r.Context(), j.Activity.ScheduleID, req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.audit(r, events.Entry{
		Type:       events.AllocationCreated,
		EntityKind: "schedule",
		EntityID:   strconv.Itoa(j.Activity.ScheduleID),
		Payload:    events.EventPayload{"prisonerNumber": j.Inmate.PrisonerNumber, "startDate": req.StartDate},
	})
	sess.AllocateJourney = nil
	sess.SetFlash("Allocation complete", fmt.Sprintf("You've allocated %s to %s", j.Inmate.Name, j.Activity.Name))
	redirect(w, r, "confirmation")
}

func (s *server) allocated(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, Page{
		Title: "Allocation confirmed",
		Links: []Link{{Text: "Go to the home page", Href: "/"}},
	})
}

// allocateJourneyFor loads an existing allocation into the allocate wizard.
func (s *server) allocateJourneyFor(ctx context.Context, id int) (*journey.AllocateJourney, error) {
	alloc, err := s.Activities.Allocation(ctx, id)
	if err != nil {
		return nil, err
	}
	prisoner, err := s.PrisonerSearch.Prisoner(ctx, alloc.PrisonerNumber)
	if err != nil {
		return nil, err
	}
	ref, err := s.activityRef(ctx, alloc.ScheduleID)
	if err != nil {
		return nil, err
	}
	j := &journey.AllocateJourney{AllocationID: alloc.ID, Inmate: inmateFrom(prisoner), Activity: ref}
	j.StartDate, _ = simpledate.ParseISO(alloc.StartDate)
	if alloc.EndDate != nil {
		j.EndDate, _ = simpledate.ParseISO(*alloc.EndDate)
	}
	j.HasEndDate = ptr(!j.EndDate.IsZero())
	if alloc.PrisonPayBand != nil {
		j.PayBandID = alloc.PrisonPayBand.ID
	}
	return j, nil
}

func (s *server) editAllocation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "allocationId"))
	stepName := chi.URLParam(r, "step")
	if err != nil || !journey.Allocate.Has(stepName) || stepName == "check-answers" {
		s.notFound(w, r)
		return
	}
	j, err := s.allocateJourneyFor(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sessionFrom(r).AllocateJourney = j
	redirect(w, r, "/allocate/"+stepName)
}

func (s *server) viewAllocation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "allocationId"))
	if err != nil {
		s.notFound(w, r)
		return
	}
	j, err := s.allocateJourneyFor(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, Page{
		Title:   "Allocation details",
		Caption: j.Activity.Name,
		Summary: allocationRows(j, func(step string) string { return fmt.Sprintf("/allocations/%d/edit/%s", id, step) }),
		Links: []Link{
			{Text: "End this allocation", Href: fmt.Sprintf("/deallocate/%d?selectedAllocations=%d", j.Activity.ScheduleID, id)},
			{Text: "View the activity", Href: fmt.Sprintf("/activities/view/%d", j.Activity.ActivityID)},
		},
	})
}

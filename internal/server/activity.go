package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"activities/internal/domain"
	"activities/internal/events"
	"activities/internal/journey"
	"activities/internal/simpledate"
	"activities/internal/validate"
)

var tiers = []Option{
	{Value: "TIER_1", Text: "Tier 1"},
	{Value: "TIER_2", Text: "Tier 2"},
	{Value: "FOUNDATION", Text: "Routine activities also called 'Foundation'"},
}

var riskLevels = []Option{
	{Value: "high", Text: "Prisoners with a high, medium or low workplace risk assessment"},
	{Value: "medium", Text: "Prisoners with a medium or low workplace risk assessment"},
	{Value: "low", Text: "Only prisoners with a low workplace risk assessment"},
}

var timeSlotNames = map[string]string{"AM": "Morning (AM)", "PM": "Afternoon (PM)", "ED": "Evening (ED)"}

const inCellLocation = "in-cell"

func (s *server) activityRoutes(r chi.Router) {
	r.Get("/view/{activityId}", s.viewActivity)
	r.Get("/edit/{activityId}/{step}", s.editActivity)
	r.Route("/create", func(r chi.Router) {
		r.Get("/start", s.startCreateActivity)
		r.Get("/confirmation/{activityId}", s.activityCreated)
		s.mountFlow(r, journey.CreateActivity, toHome, map[string]step{
			"category":            {get: s.getActivityCategory, post: s.postActivityCategory},
			"name":                {get: s.getActivityName, post: s.postActivityName},
			"tier":                {get: s.getActivityTier, post: s.postActivityTier},
			"risk-level":          {get: s.getRiskLevel, post: s.postRiskLevel},
			"pay-option":          {get: s.getPayOption, post: s.postPayOption},
			"pay":                 {get: s.getPay, post: s.postPay},
			"check-pay":           {get: s.getCheckPay, post: s.postCheckPay},
			"start-date":          {get: s.getActivityStartDate, post: s.postActivityStartDate},
			"end-date-option":     {get: s.getActivityEndDateOption, post: s.postActivityEndDateOption},
			"end-date":            {get: s.getActivityEndDate, post: s.postActivityEndDate},
			"days-and-times":      {get: s.getDaysAndTimes, post: s.postDaysAndTimes},
			"bank-holiday-option": {get: s.getBankHoliday, post: s.postBankHoliday},
			"location":            {get: s.getActivityLocation, post: s.postActivityLocation},
			"capacity":            {get: s.getCapacity, post: s.postCapacity},
			"check-answers":       {get: s.getActivityCheckAnswers, post: s.postActivityCheckAnswers},
		})
	})
}

func createJourney(r *http.Request) *journey.CreateActivityJourney {
	return sessionFrom(r).CreateJourney
}

func activityPage(j *journey.CreateActivityJourney, title string, fields ...*Field) Page {
	caption := "Create an activity"
	if j.Editing() {
		caption = "Edit an activity"
	}
	return Page{Title: title, Caption: caption, Form: &Form{Fields: fields}}
}

func (s *server) startCreateActivity(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).CreateJourney = &journey.CreateActivityJourney{}
	redirect(w, r, "category")
}

// updateActivity persists a single edited answer and returns to the activity.
func (s *server) updateActivity(w http.ResponseWriter, r *http.Request, what string, req domain.ActivityUpdateRequest) {
	sess := sessionFrom(r)
	j := sess.CreateJourney
	act, err := s.Activities.UpdateActivity(r.Context(), s.prison(r), j.ActivityID, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.audit(r, events.Entry{
		Type:       events.ActivityUpdated,
		EntityKind: "activity",
		EntityID:   strconv.Itoa(j.ActivityID),
		Payload:    events.EventPayload{"changed": what},
	})
	name := act.Summary
	if name == "" {
		name = j.Name
	}
	sess.CreateJourney = nil
	sess.SetFlash("Activity updated", fmt.Sprintf("You've changed the %s for %s", what, name))
	redirect(w, r, fmt.Sprintf("/activities/view/%d", j.ActivityID))
}

func categoryPage(j *journey.CreateActivityJourney, cats []domain.ActivityCategory) Page {
	f := &Field{Name: "category", Label: "Select the activity category", Kind: KindRadios}
	for _, c := range cats {
		f.Options = append(f.Options, Option{Value: strconv.Itoa(c.ID), Text: c.Name})
	}
	if j.Category != nil {
		f.Value = strconv.Itoa(j.Category.ID)
	}
	return activityPage(j, "What is the activity category?", f)
}

func (s *server) getActivityCategory(w http.ResponseWriter, r *http.Request) {
	cats, err := s.Activities.Categories(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, categoryPage(createJourney(r), cats))
}

func (s *server) postActivityCategory(w http.ResponseWriter, r *http.Request) {
	j := createJourney(r)
	cats, err := s.Activities.Categories(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	const msg = "Select an activity category"
	v := validate.New()
	id, ok := validate.Int(v, r.PostForm, "category", msg, msg)
	var picked *journey.Category
	for _, c := range cats {
		if c.ID == id {
			picked = &journey.Category{ID: c.ID, Code: c.Code, Name: c.Name}
		}
	}
	if ok && picked == nil {
		v.Add("category", msg)
	}
	if !v.Valid() {
		s.invalid(w, r, categoryPage(j, cats), v.Errors())
		return
	}
	j.Category = picked
	if j.Editing() {
		s.updateActivity(w, r, "category", domain.ActivityUpdateRequest{CategoryID: &picked.ID})
		return
	}
	redirect(w, r, nextStep(r, "name"))
}

func namePage(j *journey.CreateActivityJourney) Page {
	return activityPage(j, "Enter an activity name",
		&Field{Name: "name", Label: "Activity name", Hint: "This will be shown to staff and prisoners.", Kind: KindText, Value: j.Name})
}

func (s *server) getActivityName(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, namePage(createJourney(r)))
}

func (s *server) postActivityName(w http.ResponseWriter, r *http.Request) {
	j := createJourney(r)
	v := validate.New()
	name, _ := validate.Text(v, r.PostForm, "name",
		validate.Required("Enter an activity name"),
		validate.MaxLength(40, "You must enter a name which has no more than 40 characters"))
	if !v.Valid() {
		s.invalid(w, r, namePage(j), v.Errors())
		return
	}
	j.Name = name
	if j.Editing() {
		s.updateActivity(w, r, "activity name", domain.ActivityUpdateRequest{Summary: &name})
		return
	}
	redirect(w, r, nextStep(r, "tier"))
}

func tierPage(j *journey.CreateActivityJourney) Page {
	return activityPage(j, "Select the activity tier",
		&Field{Name: "tier", Label: "Activity tier", Kind: KindRadios, Options: tiers, Value: j.TierCode})
}

func (s *server) getActivityTier(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, tierPage(createJourney(r)))
}

func (s *server) postActivityTier(w http.ResponseWriter, r *http.Request) {
	j := createJourney(r)
	v := validate.New()
	tier, _ := validate.Text(v, r.PostForm, "tier", validate.OneOf("Select an activity tier", optionValues(tiers)...))
	if !v.Valid() {
		s.invalid(w, r, tierPage(j), v.Errors())
		return
	}
	j.TierCode = tier
	if j.Editing() {
		s.updateActivity(w, r, "activity tier", domain.ActivityUpdateRequest{TierCode: &tier})
		return
	}
	redirect(w, r, nextStep(r, "risk-level"))
}

func riskPage(j *journey.CreateActivityJourney) Page {
	return activityPage(j, "Who is suitable for this activity based on workplace risk assessment?",
		&Field{Name: "riskLevel", Label: "Workplace risk assessment", Kind: KindRadios, Options: riskLevels, Value: j.RiskLevel})
}

func (s *server) getRiskLevel(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, riskPage(createJourney(r)))
}

func (s *server) postRiskLevel(w http.ResponseWriter, r *http.Request) {
	j := createJourney(r)
	v := validate.New()
	risk, _ := validate.Text(v, r.PostForm, "riskLevel",
		validate.OneOf("Select whether prisoners with a high, medium or low workplace risk assessment are suitable", optionValues(riskLevels)...))
	if !v.Valid() {
		s.invalid(w, r, riskPage(j), v.Errors())
		return
	}
	j.RiskLevel = risk
	if j.Editing() {
		s.updateActivity(w, r, "workplace risk assessment level", domain.ActivityUpdateRequest{RiskLevel: &risk})
		return
	}
	redirect(w, r, nextStep(r, "pay-option"))
}

func payOptionPage(j *journey.CreateActivityJourney) Page {
	return activityPage(j, "Will people be paid for attending this activity?", yesNo("paid", "Paid activity", j.Paid))
}

// Whether an existing activity is paid cannot change; edits go straight to its rates.
func (s *server) getPayOption(w http.ResponseWriter, r *http.Request) {
	j := createJourney(r)
	if j.Editing() {
		redirect(w, r, "check-pay")
		return
	}
	s.render(w, r, http.StatusOK, payOptionPage(j))
}

func (s *server) postPayOption(w http.ResponseWriter, r *http.Request) {
	j := createJourney(r)
	if j.Editing() {
		redirect(w, r, "check-pay")
		return
	}
	v := validate.New()
	answer, _ := validate.Text(v, r.PostForm, "paid", validate.OneOf("Select if the activity will be paid", "yes", "no"))
	if !v.Valid() {
		s.invalid(w, r, payOptionPage(j), v.Errors())
		return
	}
	paid := answer == "yes"
	j.Paid = &paid
	if !paid {
		j.Pays = nil
		redirect(w, r, nextStep(r, "start-date"))
		return
	}
	if len(j.Pays) > 0 {
		redirect(w, r, carry(r, "check-pay"))
		return
	}
	redirect(w, r, carry(r, "pay"))
}

func (s *server) payPage(r *http.Request, j *journey.CreateActivityJourney) (Page, error) {
	levels, err := s.Incentives.Levels(r.Context(), s.prison(r))
	if err != nil {
		return Page{}, err
	}
	bands, err := s.Activities.PayBands(r.Context(), s.prison(r))
	if err != nil {
		return Page{}, err
	}
	level := &Field{Name: "incentiveLevel", Label: "Incentive level", Kind: KindSelect}
	for _, l := range levels {
		level.Options = append(level.Options, Option{Value: l.LevelCode, Text: l.LevelName})
	}
	band := &Field{Name: "bandId", Label: "Pay band", Kind: KindSelect}
	for _, b := range bands {
		band.Options = append(band.Options, Option{Value: strconv.Itoa(b.ID), Text: b.Alias})
	}
	rate := &Field{Name: "rate", Label: "Daily pay rate", Hint: "Enter an amount in pounds and pence, for example 1.25", Kind: KindText}
	q := r.URL.Query()
	if code, id := q.Get("iep"), atoi(q.Get("bandId")); code != "" {
		if i := j.PayFor(code, id); i >= 0 {
			level.Value = code
			band.Value = strconv.Itoa(id)
			rate.Value = strings.TrimPrefix(pence(j.Pays[i].Rate), "£")
		}
	}
	return activityPage(j, "Add a pay rate", level, band, rate), nil
}

func (s *server) getPay(w http.ResponseWriter, r *http.Request) {
	page, err := s.payPage(r, createJourney(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, page)
}

func (s *server) postPay(w http.ResponseWriter, r *http.Request) {
	j := createJourney(r)
	page, err := s.payPage(r, j)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	levelNames := optionMap(page.Form.Fields[0].Options)
	bandNames := optionMap(page.Form.Fields[1].Options)

	v := validate.New()
	code, _ := validate.Text(v, r.PostForm, "incentiveLevel", validate.OneOf("Select an incentive level", keys(levelNames)...))
	bandID, _ := validate.Int(v, r.PostForm, "bandId", "Select a pay band", "Select a pay band",
		func(id int) string {
			if _, ok := bandNames[strconv.Itoa(id)]; !ok {
				return "Select a pay band"
			}
			return ""
		})
	rate, _ := validate.Pence(v, r.PostForm, "rate", "Enter a pay rate", "Pay rate must be a number, like 1.25",
		validate.IntAtMost(s.Limits.MaxPayRatePence, "Enter a pay rate that is "+pence(s.Limits.MaxPayRatePence)+" or less"))

	q := r.URL.Query()
	origCode, origBand := q.Get("iep"), atoi(q.Get("bandId"))
	if v.Valid() && (code != origCode || bandID != origBand) && j.PayFor(code, bandID) >= 0 {
		v.Add("bandId", fmt.Sprintf("A pay rate for %s and %s already exists", levelNames[code], bandNames[strconv.Itoa(bandID)]))
	}
	if !v.Valid() {
		s.invalid(w, r, page, v.Errors())
		return
	}
	if i := j.PayFor(origCode, origBand); i >= 0 {
		j.Pays = append(j.Pays[:i], j.Pays[i+1:]...)
	}
	j.Pays = append(j.Pays, journey.Pay{
		IncentiveCode:  code,
		IncentiveLevel: levelNames[code],
		PayBandID:      bandID,
		PayBandAlias:   bandNames[strconv.Itoa(bandID)],
		Rate:           rate,
	})
	redirect(w, r, carry(r, "check-pay"))
}

func checkPayPage(r *http.Request, j *journey.CreateActivityJourney) Page {
	page := activityPage(j, "Check the pay rates")
	page.Table = &Table{Head: []string{"Incentive level", "Pay band", "Daily rate"}}
	for _, p := range j.Pays {
		page.Table.Rows = append(page.Table.Rows, []string{p.IncentiveLevel, p.PayBandAlias, pence(p.Rate)})
		q := url.Values{"iep": {p.IncentiveCode}, "bandId": {strconv.Itoa(p.PayBandID)}}
		if r.URL.Query().Get("preserveHistory") == "true" {
			q.Set("preserveHistory", "true")
		}
		page.Links = append(page.Links, Link{Text: fmt.Sprintf("Change %s, %s", p.IncentiveLevel, p.PayBandAlias), Href: "pay?" + q.Encode()})
	}
	page.Links = append(page.Links, Link{Text: "Add another pay rate", Href: carry(r, "pay")})
	page.Form.Fields = []*Field{{Name: "pay", Kind: KindHidden}}
	if j.Editing() {
		page.Form.Submit = "Update pay rates"
	}
	return page
}

func (s *server) getCheckPay(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, checkPayPage(r, createJourney(r)))
}

func (s *server) postCheckPay(w http.ResponseWriter, r *http.Request) {
	j := createJourney(r)
	if j.IsPaid() && len(j.Pays) == 0 {
		s.invalid(w, r, checkPayPage(r, j), validate.Errors{{Property: "pay", Message: "Add at least one pay rate"}})
		return
	}
	if j.Editing() {
		s.updateActivity(w, r, "pay rates", domain.ActivityUpdateRequest{Pay: payRequests(j.Pays)})
		return
	}
	redirect(w, r, nextStep(r, "start-date"))
}

func activityStartDatePage(j *journey.CreateActivityJourney) Page {
	return activityPage(j, "When do you want the activity to start?",
		dateField("startDate", "Start date", "For example, 27 3 2024", j.StartDate))
}

func (s *server) getActivityStartDate(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, activityStartDatePage(createJourney(r)))
}

func (s *server) postActivityStartDate(w http.ResponseWriter, r *http.Request) {
	j := createJourney(r)
	v := validate.New()
	rules := []validate.Rule[simpledate.SimpleDate]{
		validate.DateIsAfter(s.today(), "Activity start date must be in the future"),
	}
	if !j.EndDate.IsZero() {
		rules = append(rules, validate.DateIsSameOrBefore(j.EndDate, "Enter a date on or before the activity's scheduled end date, "+j.EndDate.Display()))
	}
	start, _ := validate.Date(v, r.PostForm, "startDate", "Enter a valid start date", rules...)
	if !v.Valid() {
		s.invalid(w, r, activityStartDatePage(j), v.Errors())
		return
	}
	j.StartDate = start
	if j.Editing() {
		s.updateActivity(w, r, "start date", domain.ActivityUpdateRequest{StartDate: ptr(start.ISO())})
		return
	}
	redirect(w, r, nextStep(r, "end-date-option"))
}

func activityEndDateOptionPage(j *journey.CreateActivityJourney) Page {
	return activityPage(j, "Do you want to set an end date for this activity?", yesNo("endDateOption", "End date", j.HasEndDate))
}

func (s *server) getActivityEndDateOption(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, activityEndDateOptionPage(createJourney(r)))
}

func (s *server) postActivityEndDateOption(w http.ResponseWriter, r *http.Request) {
	j := createJourney(r)
	v := validate.New()
	answer, _ := validate.Text(v, r.PostForm, "endDateOption", validate.OneOf("Select if you want to add an end date", "yes", "no"))
	if !v.Valid() {
		s.invalid(w, r, activityEndDateOptionPage(j), v.Errors())
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
		s.updateActivity(w, r, "end date", domain.ActivityUpdateRequest{RemoveEndDate: true})
		return
	}
	redirect(w, r, nextStep(r, "days-and-times"))
}

func activityEndDatePage(j *journey.CreateActivityJourney) Page {
	return activityPage(j, "When do you want the activity to end?",
		dateField("endDate", "End date", "For example, 27 3 2024", j.EndDate))
}

func (s *server) getActivityEndDate(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, activityEndDatePage(createJourney(r)))
}

func (s *server) postActivityEndDate(w http.ResponseWriter, r *http.Request) {
	j := createJourney(r)
	v := validate.New()
	end, _ := validate.Date(v, r.PostForm, "endDate", "Enter a valid end date",
		validate.DateIsAfter(j.StartDate, "Enter a date after the activity start date, "+j.StartDate.Display()))
	if !v.Valid() {
		s.invalid(w, r, activityEndDatePage(j), v.Errors())
		return
	}
	j.EndDate = end
	j.HasEndDate = ptr(true)
	if j.Editing() {
		s.updateActivity(w, r, "end date", domain.ActivityUpdateRequest{EndDate: ptr(end.ISO())})
		return
	}
	redirect(w, r, nextStep(r, "days-and-times"))
}

func daysAndTimesPage(j *journey.CreateActivityJourney) Page {
	days := &Field{Name: "days", Label: "Days", Kind: KindCheckboxes}
	fields := []*Field{days}
	for _, d := range journey.Days {
		days.Options = append(days.Options, Option{Value: d, Text: title(d)})
		if len(j.Slots[d]) > 0 {
			days.Values = append(days.Values, d)
		}
		slot := &Field{Name: "timeSlots-" + d, Label: "Times for " + title(d), Kind: KindCheckboxes, Values: j.Slots[d]}
		for _, ts := range journey.TimeSlots {
			slot.Options = append(slot.Options, Option{Value: ts, Text: timeSlotNames[ts]})
		}
		fields = append(fields, slot)
	}
	return activityPage(j, "Select the days and times this activity runs", fields...)
}

func (s *server) getDaysAndTimes(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, daysAndTimesPage(createJourney(r)))
}

// postDaysAndTimes is the first half of a schedule edit; the bank holiday answer
// that follows is saved with it.
func (s *server) postDaysAndTimes(w http.ResponseWriter, r *http.Request) {
	j := createJourney(r)
	v := validate.New()
	slots := map[string][]string{}
	if days, ok := validate.Values(v, r.PostForm, "days", "Select at least one day", journey.Days); ok {
		for _, d := range days {
			if ts, ok := validate.Values(v, r.PostForm, "timeSlots-"+d, "Select at least one time slot for "+title(d), journey.TimeSlots); ok {
				slots[d] = ts
			}
		}
	}
	if !v.Valid() {
		s.invalid(w, r, daysAndTimesPage(j), v.Errors())
		return
	}
	j.Slots = slots
	if j.Editing() {
		redirect(w, r, "bank-holiday-option?fromEditActivity=true")
		return
	}
	redirect(w, r, nextStep(r, "bank-holiday-option"))
}

func bankHolidayPage(j *journey.CreateActivityJourney) Page {
	return activityPage(j, "Does this activity run on bank holidays?", yesNo("runsOnBankHoliday", "Runs on bank holidays", j.RunsOnBankHoliday))
}

func (s *server) getBankHoliday(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, bankHolidayPage(createJourney(r)))
}

func (s *server) postBankHoliday(w http.ResponseWriter, r *http.Request) {
	j := createJourney(r)
	v := validate.New()
	answer, _ := validate.Text(v, r.PostForm, "runsOnBankHoliday", validate.OneOf("Select if the activity will run on a bank holiday", "yes", "no"))
	if !v.Valid() {
		s.invalid(w, r, bankHolidayPage(j), v.Errors())
		return
	}
	j.RunsOnBankHoliday = ptr(answer == "yes")
	if j.Editing() {
		what := "bank holiday option"
		if r.URL.Query().Get("fromEditActivity") == "true" {
			what = "days and times"
		}
		s.updateActivity(w, r, what, domain.ActivityUpdateRequest{
			Slots:             slotRequests(j.Slots),
			ScheduleWeeks:     ptr(1),
			RunsOnBankHoliday: j.RunsOnBankHoliday,
		})
		return
	}
	redirect(w, r, nextStep(r, "location"))
}

func (s *server) activityLocationPage(r *http.Request, j *journey.CreateActivityJourney) (Page, []domain.Location, error) {
	locs, err := s.Locations.Locations(r.Context(), s.prison(r), "PROG")
	if err != nil {
		return Page{}, nil, err
	}
	f := &Field{Name: "location", Label: "Location", Kind: KindSelect, Options: []Option{{Value: inCellLocation, Text: "In cell"}}}
	for _, l := range locs {
		f.Options = append(f.Options, Option{Value: strconv.Itoa(l.ID), Text: l.Description})
	}
	switch {
	case j.InCell:
		f.Value = inCellLocation
	case j.Location != nil:
		f.Value = strconv.Itoa(j.Location.ID)
	}
	return activityPage(j, "Where will the activity take place?", f), locs, nil
}

func (s *server) getActivityLocation(w http.ResponseWriter, r *http.Request) {
	page, _, err := s.activityLocationPage(r, createJourney(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, page)
}

func (s *server) postActivityLocation(w http.ResponseWriter, r *http.Request) {
	j := createJourney(r)
	page, locs, err := s.activityLocationPage(r, j)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v := validate.New()
	picked, _ := validate.Text(v, r.PostForm, "location",
		validate.OneOf("Select a location for the activity", optionValues(page.Form.Fields[0].Options)...))
	if !v.Valid() {
		s.invalid(w, r, page, v.Errors())
		return
	}
	j.InCell = picked == inCellLocation
	j.Location = nil
	for _, l := range locs {
		if strconv.Itoa(l.ID) == picked {
			j.Location = &journey.Location{ID: l.ID, Code: l.Code, Description: l.Description}
		}
	}
	if j.Editing() {
		req := domain.ActivityUpdateRequest{InCell: ptr(j.InCell), OffWing: ptr(!j.InCell)}
		if j.Location != nil {
			req.LocationID = &j.Location.ID
		}
		s.updateActivity(w, r, "location", req)
		return
	}
	redirect(w, r, nextStep(r, "capacity"))
}

func (s *server) capacityPage(j *journey.CreateActivityJourney) Page {
	f := &Field{Name: "capacity", Label: "Capacity", Hint: "The most people who can be allocated", Kind: KindNumber}
	if j.Capacity > 0 {
		f.Value = strconv.Itoa(j.Capacity)
	}
	return activityPage(j, "Enter the capacity for this activity", f)
}

func (s *server) getCapacity(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, s.capacityPage(createJourney(r)))
}

func (s *server) postCapacity(w http.ResponseWriter, r *http.Request) {
	j := createJourney(r)
	v := validate.New()
	rules := []validate.Rule[int]{
		validate.IntBetween(1, s.Limits.MaxCapacity, fmt.Sprintf("Enter a number between 1 and %d", s.Limits.MaxCapacity)),
	}
	if j.Editing() && j.AllocationCount > 0 {
		rules = append(rules, func(n int) string {
			if n < j.AllocationCount {
				return fmt.Sprintf("Enter a capacity of at least %d, the number of people currently allocated", j.AllocationCount)
			}
			return ""
		})
	}
	capacity, _ := validate.Int(v, r.PostForm, "capacity", "Enter a capacity for the activity", "Capacity must be a number", rules...)
	if !v.Valid() {
		s.invalid(w, r, s.capacityPage(j), v.Errors())
		return
	}
	j.Capacity = capacity
	if j.Editing() {
		s.updateActivity(w, r, "capacity", domain.ActivityUpdateRequest{Capacity: &capacity})
		return
	}
	redirect(w, r, "check-answers")
}

// activityRows summarises an activity; link builds the change link for a step.
func activityRows(j *journey.CreateActivityJourney, link func(step string) string) []Row {
	category := ""
	if j.Category != nil {
		category = j.Category.Name
	}
	end := "None"
	if !j.EndDate.IsZero() {
		end = j.EndDate.Display()
	}
	location := "In cell"
	if !j.InCell && j.Location != nil {
		location = j.Location.Description
	}
	bankHoliday := ""
	if j.RunsOnBankHoliday != nil {
		bankHoliday = yesNoText(*j.RunsOnBankHoliday)
	}
	var pays []string
	for _, p := range j.Pays {
		pays = append(pays, fmt.Sprintf("%s, %s: %s", p.IncentiveLevel, p.PayBandAlias, pence(p.Rate)))
	}
	payStep := "pay-option"
	if j.Editing() {
		payStep = "check-pay"
	}
	return []Row{
		{Key: "Category", Value: category, Href: link("category")},
		{Key: "Name", Value: j.Name, Href: link("name")},
		{Key: "Tier", Value: optionText(tiers, j.TierCode), Href: link("tier")},
		{Key: "Workplace risk assessment", Value: optionText(riskLevels, j.RiskLevel), Href: link("risk-level")},
		{Key: "Paid", Value: yesNoText(j.IsPaid()), Href: link(payStep)},
		{Key: "Pay rates", Value: joinNonEmpty("; ", pays...), Href: link(payStep)},
		{Key: "Start date", Value: j.StartDate.Display(), Href: link("start-date")},
		{Key: "End date", Value: end, Href: link("end-date-option")},
		{Key: "Days and times", Value: describeSlots(j.Slots), Href: link("days-and-times")},
		{Key: "Runs on bank holidays", Value: bankHoliday, Href: link("bank-holiday-option")},
		{Key: "Location", Value: location, Href: link("location")},
		{Key: "Capacity", Value: strconv.Itoa(j.Capacity), Href: link("capacity")},
	}
}

func describeSlots(slots map[string][]string) string {
	var out []string
	for _, d := range journey.Days {
		if ts := slots[d]; len(ts) > 0 {
			out = append(out, title(d)+" "+strings.Join(ts, ", "))
		}
	}
	return strings.Join(out, "; ")
}

func (s *server) getActivityCheckAnswers(w http.ResponseWriter, r *http.Request) {
	j := createJourney(r)
	page := activityPage(j, "Check your answers before creating this activity")
	page.Summary = activityRows(j, func(step string) string { return step + "?preserveHistory=true" })
	page.Form.Submit = "Create activity"
	s.render(w, r, http.StatusOK, page)
}

func (s *server) postActivityCheckAnswers(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	j := sess.CreateJourney
	act, err := s.Activities.CreateActivity(r.Context(), createActivityRequest(s.prison(r), j))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.audit(r, events.Entry{
		Type:       events.ActivityCreated,
		EntityKind: "activity",
		EntityID:   strconv.Itoa(act.ID),
		Payload:    events.EventPayload{"name": j.Name, "category": j.Category.Code, "startDate": j.StartDate.ISO()},
	})
	sess.CreateJourney = nil
	redirect(w, r, fmt.Sprintf("confirmation/%d", act.ID))
}

func (s *server) activityCreated(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "activityId")
	s.render(w, r, http.StatusOK, Page{
		Title:      "Activity created",
		Paragraphs: []string{"You can now allocate people to this activity."},
		Links:      []Link{{Text: "View the activity", Href: "/activities/view/" + id}},
	})
}

func createActivityRequest(prisonCode string, j *journey.CreateActivityJourney) domain.ActivityCreateRequest {
	req := domain.ActivityCreateRequest{
		PrisonCode:         prisonCode,
		Summary:            j.Name,
		CategoryID:         j.Category.ID,
		TierCode:           j.TierCode,
		RiskLevel:          j.RiskLevel,
		Paid:               j.IsPaid(),
		Pay:                payRequests(j.Pays),
		StartDate:          j.StartDate.ISO(),
		Slots:              slotRequests(j.Slots),
		ScheduleWeeks:      1,
		InCell:             j.InCell,
		OffWing:            !j.InCell,
		Capacity:           j.Capacity,
		AttendanceRequired: true,
	}
	if req.Pay == nil {
		req.Pay = []domain.ActivityPayRequest{}
	}
	if !j.EndDate.IsZero() {
		req.EndDate = ptr(j.EndDate.ISO())
	}
	if j.RunsOnBankHoliday != nil {
		req.RunsOnBankHoliday = *j.RunsOnBankHoliday
	}
	if j.Location != nil && !j.InCell {
		req.LocationID = &j.Location.ID
	}
	return req
}

func payRequests(pays []journey.Pay) []domain.ActivityPayRequest {
	var out []domain.ActivityPayRequest
	for _, p := range pays {
		out = append(out, domain.ActivityPayRequest{
			IncentiveNomisCode: p.IncentiveCode,
			IncentiveLevel:     p.IncentiveLevel,
			PayBandID:          p.PayBandID,
			Rate:               p.Rate,
		})
	}
	return out
}

// slotRequests turns day → time slots into one week-one slot per time of day.
func slotRequests(slots map[string][]string) []domain.SlotRequest {
	var out []domain.SlotRequest
	for _, ts := range journey.TimeSlots {
		req := domain.SlotRequest{WeekNumber: 1, TimeSlot: ts}
		used := false
		for _, d := range journey.Days {
			if !contains(slots[d], ts) {
				continue
			}
			used = true
			switch d {
			case "monday":
				req.Monday = true
			case "tuesday":
				req.Tuesday = true
			case "wednesday":
				req.Wednesday = true
			case "thursday":
				req.Thursday = true
			case "friday":
				req.Friday = true
			case "saturday":
				req.Saturday = true
			case "sunday":
				req.Sunday = true
			}
		}
		if used {
			out = append(out, req)
		}
	}
	return out
}

// slotsFromSchedule reads week-one slots back into day → time slots. The API names
// days in several ways ("Mon", "MONDAY"), so only the first three letters count.
func slotsFromSchedule(slots []domain.Slot) map[string][]string {
	out := map[string][]string{}
	for _, sl := range slots {
		if sl.WeekNumber > 1 {
			continue
		}
		for _, day := range sl.DaysOfWeek {
			a := strings.ToLower(day)
			for _, d := range journey.Days {
				if len(a) >= 3 && strings.HasPrefix(d, a[:3]) && !contains(out[d], sl.TimeSlot) {
					out[d] = append(out[d], sl.TimeSlot)
				}
			}
		}
	}
	return out
}

// journeyFromActivity loads an existing activity into the create wizard for editing.
func journeyFromActivity(act domain.Activity) *journey.CreateActivityJourney {
	j := &journey.CreateActivityJourney{
		ActivityID: act.ID,
		Category:   &journey.Category{ID: act.Category.ID, Code: act.Category.Code, Name: act.Category.Name},
		Name:       act.Summary,
		TierCode:   act.TierCode,
		RiskLevel:  act.RiskLevel,
		Paid:       ptr(act.Paid),
		InCell:     act.InCell,
	}
	j.StartDate, _ = simpledate.ParseISO(act.StartDate)
	if act.EndDate != nil {
		j.EndDate, _ = simpledate.ParseISO(*act.EndDate)
	}
	j.HasEndDate = ptr(!j.EndDate.IsZero())
	for _, p := range act.Pay {
		j.Pays = append(j.Pays, journey.Pay{
			IncentiveCode:  p.IncentiveNomisCode,
			IncentiveLevel: p.IncentiveLevel,
			PayBandID:      p.PrisonPayBand.ID,
			PayBandAlias:   p.PrisonPayBand.Alias,
			Rate:           p.Rate,
		})
	}
	if len(act.Schedules) > 0 {
		sch := act.Schedules[0]
		j.ScheduleID = sch.ID
		j.Capacity = sch.Capacity
		j.Slots = slotsFromSchedule(sch.Slots)
		j.RunsOnBankHoliday = ptr(sch.RunsOnBankHoliday)
		if sch.InternalLocation != nil {
			j.Location = &journey.Location{ID: sch.InternalLocation.ID, Code: sch.InternalLocation.Code, Description: sch.InternalLocation.Description}
		}
	}
	return j
}

// editActivity is the entry point of every activity edit: it loads the activity into
// the wizard and sends the user to the one step being changed.
func (s *server) editActivity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "activityId"))
	stepName := chi.URLParam(r, "step")
	if err != nil || !journey.CreateActivity.Has(stepName) || stepName == "check-answers" {
		s.notFound(w, r)
		return
	}
	act, err := s.Activities.Activity(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	j := journeyFromActivity(act)
	if stepName == "capacity" && j.ScheduleID != 0 {
		allocs, err := s.Activities.ScheduleAllocations(r.Context(), j.ScheduleID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		j.AllocationCount = len(allocs)
	}
	sessionFrom(r).CreateJourney = j
	redirect(w, r, "/activities/create/"+stepName)
}

func (s *server) viewActivity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "activityId"))
	if err != nil {
		s.notFound(w, r)
		return
	}
	act, err := s.Activities.Activity(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	j := journeyFromActivity(act)
	page := Page{Title: act.Summary, Caption: "Activity"}
	page.Summary = activityRows(j, func(step string) string { return fmt.Sprintf("/activities/edit/%d/%s", id, step) })
	if j.ScheduleID != 0 {
		allocs, err := s.Activities.ScheduleAllocations(r.Context(), j.ScheduleID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		page.Table = &Table{Head: []string{"Prison number", "Start date", "End date", "Pay band"}}
		for _, a := range allocs {
			page.Table.Rows = append(page.Table.Rows, allocationRow(a))
			page.Links = append(page.Links, Link{Text: "View allocation for " + a.PrisonerNumber, Href: fmt.Sprintf("/allocations/view/%d", a.ID)})
		}
		if len(allocs) > 0 {
			ids := make([]string, 0, len(allocs))
			for _, a := range allocs {
				ids = append(ids, strconv.Itoa(a.ID))
			}
			page.Links = append(page.Links, Link{
				Text: "End allocations",
				Href: fmt.Sprintf("/deallocate/%d?selectedAllocations=%s", j.ScheduleID, strings.Join(ids, ",")),
			})
		}
	}
	s.render(w, r, http.StatusOK, page)
}

func allocationRow(a domain.Allocation) []string {
	end := ""
	if a.EndDate != nil {
		end = displayISO(*a.EndDate)
	}
	band := ""
	if a.PrisonPayBand != nil {
		band = a.PrisonPayBand.Alias
	}
	return []string{a.PrisonerNumber, displayISO(a.StartDate), end, band}
}

func displayISO(iso string) string {
	d, err := simpledate.ParseISO(iso)
	if err != nil {
		return iso
	}
	return d.Display()
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func optionValues(opts []Option) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Value)
	}
	return out
}

func optionText(opts []Option, value string) string {
	for _, o := range opts {
		if o.Value == value {
			return o.Text
		}
	}
	return value
}

func optionMap(opts []Option) map[string]string {
	out := make(map[string]string, len(opts))
	for _, o := range opts {
		out[o.Value] = o.Text
	}
	return out
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

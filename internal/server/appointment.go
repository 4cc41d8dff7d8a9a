package server

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"activities/internal/api"
	"activities/internal/appointments"
	"activities/internal/applyto"
	"activities/internal/domain"
	"activities/internal/events"
	"activities/internal/journey"
	"activities/internal/simpledate"
	"activities/internal/validate"
)

var prisonerNumberPattern = regexp.MustCompile(`^[A-Z]\d{4}[A-Z]{2}$`)

func (s *server) appointmentRoutes(r chi.Router) {
	r.Route("/create", func(r chi.Router) {
		r.Get("/start", s.startAppointment)
		s.mountFlow(r, journey.CreateAppointment, toHome, map[string]step{
			"prisoners":                  {get: s.getAppointmentPrisoners, post: s.postAppointmentPrisoners},
			"category":                   {get: s.getAppointmentCategory, post: s.postAppointmentCategory},
			"location":                   {get: s.getAppointmentLocation, post: s.postAppointmentLocation},
			"date-and-time":              {get: s.getAppointmentDateAndTime, post: s.postAppointmentDateAndTime},
			"repeat":                     {get: s.getAppointmentRepeat, post: s.postAppointmentRepeat},
			"repeat-frequency-and-count": {get: s.getAppointmentFrequency, post: s.postAppointmentFrequency},
			"comment":                    {get: s.getAppointmentComment, post: s.postAppointmentComment},
			"check-answers":              {get: s.getAppointmentCheckAnswers, post: s.postAppointmentCheckAnswers},
		})
	})
	r.Route("/{appointmentId}", func(r chi.Router) {
		r.Get("/", s.viewAppointment)
		r.Get("/series.ics", s.appointmentCalendar)
		r.Route("/edit", s.editAppointmentRoutes)
	})
}

func appointmentJourney(r *http.Request) *journey.AppointmentJourney {
	return sessionFrom(r).AppointmentJourney
}

func (s *server) startAppointment(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("type")
	if kind == "" {
		kind = journey.TypeIndividual
	}
	if kind != journey.TypeIndividual && kind != journey.TypeGroup {
		s.badRequest(w, r, "Unknown appointment type "+kind)
		return
	}
	sess := sessionFrom(r)
	sess.ClearAppointmentJourneys()
	sess.AppointmentJourney = &journey.AppointmentJourney{Mode: journey.ModeCreate, Type: kind}
	redirect(w, r, "prisoners")
}

func appointmentPage(j *journey.AppointmentJourney, title string, fields ...*Field) Page {
	caption := "Schedule an appointment"
	if j.Type == journey.TypeGroup {
		caption = "Schedule a group appointment"
	}
	return Page{Title: title, Caption: caption, Form: &Form{Fields: fields}}
}

func appointmentPrisonersPage(j *journey.AppointmentJourney) Page {
	if j.Type == journey.TypeGroup {
		numbers := make([]string, 0, len(j.Prisoners))
		for _, p := range j.Prisoners {
			numbers = append(numbers, p.PrisonerNumber)
		}
		return appointmentPage(j, "Who is attending this appointment?",
			&Field{Name: "prisonerNumbers", Label: "Prison numbers", Hint: "Enter one prison number per line", Kind: KindTextarea, Value: strings.Join(numbers, "\n")})
	}
	value := ""
	if len(j.Prisoners) > 0 {
		value = j.Prisoners[0].PrisonerNumber
	}
	return appointmentPage(j, "Select someone to schedule an appointment for",
		&Field{Name: "prisoner", Label: "Search by name or prison number", Kind: KindText, Value: value})
}

func (s *server) getAppointmentPrisoners(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, appointmentPrisonersPage(appointmentJourney(r)))
}

func (s *server) postAppointmentPrisoners(w http.ResponseWriter, r *http.Request) {
	j := appointmentJourney(r)
	v := validate.New()
	var found []journey.Inmate
	var err error
	if j.Type == journey.TypeGroup {
		found, err = s.groupAttendees(r, v)
	} else {
		found, err = s.individualAttendee(r, v)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !v.Valid() {
		s.invalid(w, r, appointmentPrisonersPage(j), v.Errors())
		return
	}
	j.Prisoners = found
	redirect(w, r, nextStep(r, "category"))
}

// individualAttendee resolves a name or prison number to exactly one person in this prison.
func (s *server) individualAttendee(r *http.Request, v *validate.Validator) ([]journey.Inmate, error) {
	term, ok := validate.Text(v, r.PostForm, "prisoner", validate.Required("Enter a person's name or prison number"))
	if !ok {
		return nil, nil
	}
	term = strings.TrimSpace(term)
	if prisonerNumberPattern.MatchString(strings.ToUpper(term)) {
		p, err := s.PrisonerSearch.Prisoner(r.Context(), strings.ToUpper(term))
		if api.IsNotFound(err) || (err == nil && p.PrisonID != s.prison(r)) {
			v.Add("prisoner", "There is no one in this prison with prison number "+strings.ToUpper(term))
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []journey.Inmate{inmateFrom(p)}, nil
	}
	matches, err := s.PrisonerSearch.Search(r.Context(), s.prison(r), term)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		v.Add("prisoner", "No one in this prison matches "+term)
		return nil, nil
	case 1:
		return []journey.Inmate{inmateFrom(matches[0])}, nil
	}
	v.Add("prisoner", fmt.Sprintf("%d people match %s, enter their prison number", len(matches), term))
	return nil, nil
}

func (s *server) groupAttendees(r *http.Request, v *validate.Validator) ([]journey.Inmate, error) {
	raw, ok := validate.Text(v, r.PostForm, "prisonerNumbers", validate.Required("Enter at least one prison number"))
	if !ok {
		return nil, nil
	}
	seen := map[string]bool{}
	var out []journey.Inmate
	var unknown []string
	for _, number := range strings.FieldsFunc(strings.ToUpper(raw), func(c rune) bool {
		return c == ',' || c == '\n' || c == '\r' || c == ' ' || c == '\t'
	}) {
		if seen[number] {
			continue
		}
		seen[number] = true
		p, err := s.PrisonerSearch.Prisoner(r.Context(), number)
		if api.IsNotFound(err) || (err == nil && p.PrisonID != s.prison(r)) {
			unknown = append(unknown, number)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, inmateFrom(p))
	}
	if len(unknown) > 0 {
		v.Add("prisonerNumbers", "There is no one in this prison with prison number "+strings.Join(unknown, ", "))
		return nil, nil
	}
	return out, nil
}

func (s *server) appointmentCategoryPage(r *http.Request, j *journey.AppointmentJourney) (Page, []domain.AppointmentCategory, error) {
	cats, err := s.Activities.AppointmentCategories(r.Context())
	if err != nil {
		return Page{}, nil, err
	}
	f := &Field{Name: "categoryCode", Label: "Category", Kind: KindSelect}
	for _, c := range cats {
		f.Options = append(f.Options, Option{Value: c.Code, Text: c.Description})
	}
	if j.Category != nil {
		f.Value = j.Category.Code
	}
	return appointmentPage(j, "What type of appointment is it?", f), cats, nil
}

func (s *server) getAppointmentCategory(w http.ResponseWriter, r *http.Request) {
	page, _, err := s.appointmentCategoryPage(r, appointmentJourney(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, page)
}

func (s *server) postAppointmentCategory(w http.ResponseWriter, r *http.Request) {
	j := appointmentJourney(r)
	page, cats, err := s.appointmentCategoryPage(r, j)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v := validate.New()
	code, _ := validate.Text(v, r.PostForm, "categoryCode",
		validate.OneOf("Select a category", optionValues(page.Form.Fields[0].Options)...))
	if !v.Valid() {
		s.invalid(w, r, page, v.Errors())
		return
	}
	for _, c := range cats {
		if c.Code == code {
			j.Category = &journey.AppointmentCategory{Code: c.Code, Description: c.Description}
		}
	}
	redirect(w, r, nextStep(r, "location"))
}

// appointmentLocations lists the rooms appointments can be held in.
func (s *server) appointmentLocations(r *http.Request, current *journey.Location) (*Field, []domain.Location, error) {
	locs, err := s.Locations.Locations(r.Context(), s.prison(r), "APP")
	if err != nil {
		return nil, nil, err
	}
	f := &Field{Name: "locationId", Label: "Location", Kind: KindSelect}
	for _, l := range locs {
		f.Options = append(f.Options, Option{Value: strconv.Itoa(l.ID), Text: l.Description})
	}
	if current != nil {
		f.Value = strconv.Itoa(current.ID)
	}
	return f, locs, nil
}

func pickLocation(v *validate.Validator, r *http.Request, f *Field, locs []domain.Location) *journey.Location {
	raw, ok := validate.Text(v, r.PostForm, "locationId", validate.OneOf("Select a location", optionValues(f.Options)...))
	if !ok {
		return nil
	}
	id := atoi(raw)
	for _, l := range locs {
		if l.ID == id {
			return &journey.Location{ID: l.ID, Code: l.Code, Description: l.Description}
		}
	}
	return nil
}

func (s *server) getAppointmentLocation(w http.ResponseWriter, r *http.Request) {
	j := appointmentJourney(r)
	f, _, err := s.appointmentLocations(r, j.Location)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, appointmentPage(j, "Select the appointment location", f))
}

func (s *server) postAppointmentLocation(w http.ResponseWriter, r *http.Request) {
	j := appointmentJourney(r)
	f, locs, err := s.appointmentLocations(r, j.Location)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v := validate.New()
	loc := pickLocation(v, r, f, locs)
	if !v.Valid() {
		s.invalid(w, r, appointmentPage(j, "Select the appointment location", f), v.Errors())
		return
	}
	j.Location = loc
	redirect(w, r, nextStep(r, "date-and-time"))
}

func dateAndTimeFields(date simpledate.SimpleDate, start, end *simpledate.SimpleTime) []*Field {
	return []*Field{
		dateField("startDate", "Date", "For example, 27 3 2024", date),
		timeField("startTime", "Start time", start),
		timeField("endTime", "End time", end),
	}
}

// appointmentTimes validates the date and time fields shared by create and edit.
func (s *server) appointmentTimes(r *http.Request, v *validate.Validator) (simpledate.SimpleDate, simpledate.SimpleTime, simpledate.SimpleTime) {
	today := s.today()
	date, dateOK := validate.Date(v, r.PostForm, "startDate", "Enter a date for the appointment",
		validate.DateIsSameOrAfter(today, "Enter a date that's today or in the future"))
	var startRules []validate.Rule[simpledate.SimpleTime]
	if dateOK && date.Equal(today) {
		now := simpledate.Clock(s.Now(), s.Location)
		startRules = append(startRules, validate.TimeIsAfter(now, "Select a start time that's in the future"))
	}
	start, startOK := validate.Time(v, r.PostForm, "startTime", "Select a start time for the appointment", startRules...)
	var endRules []validate.Rule[simpledate.SimpleTime]
	if startOK {
		endRules = append(endRules, validate.TimeIsAfter(start, "Select an end time after the start time"))
	}
	end, _ := validate.Time(v, r.PostForm, "endTime", "Select an end time for the appointment", endRules...)
	return date, start, end
}

func (s *server) getAppointmentDateAndTime(w http.ResponseWriter, r *http.Request) {
	j := appointmentJourney(r)
	s.render(w, r, http.StatusOK, appointmentPage(j, "Enter the date and time of the appointment", dateAndTimeFields(j.StartDate, j.StartTime, j.EndTime)...))
}

func (s *server) postAppointmentDateAndTime(w http.ResponseWriter, r *http.Request) {
	j := appointmentJourney(r)
	v := validate.New()
	date, start, end := s.appointmentTimes(r, v)
	if !v.Valid() {
		s.invalid(w, r, appointmentPage(j, "Enter the date and time of the appointment", dateAndTimeFields(j.StartDate, j.StartTime, j.EndTime)...), v.Errors())
		return
	}
	j.StartDate = date
	j.StartTime = &start
	j.EndTime = &end
	redirect(w, r, nextStep(r, "repeat"))
}

func appointmentRepeatPage(j *journey.AppointmentJourney) Page {
	return appointmentPage(j, "Does the appointment repeat?", yesNo("repeat", "Repeat", j.Repeat))
}

func (s *server) getAppointmentRepeat(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, appointmentRepeatPage(appointmentJourney(r)))
}

func (s *server) postAppointmentRepeat(w http.ResponseWriter, r *http.Request) {
	j := appointmentJourney(r)
	v := validate.New()
	answer, _ := validate.Text(v, r.PostForm, "repeat", validate.OneOf("Select if the appointment repeats or not", "yes", "no"))
	if !v.Valid() {
		s.invalid(w, r, appointmentRepeatPage(j), v.Errors())
		return
	}
	j.Repeat = ptr(answer == "yes")
	if !j.Repeats() {
		j.Frequency = ""
		j.NumberOfAppointments = 0
		redirect(w, r, nextStep(r, "comment"))
		return
	}
	redirect(w, r, carry(r, "repeat-frequency-and-count"))
}

func appointmentFrequencyPage(j *journey.AppointmentJourney) Page {
	freq := &Field{Name: "repeatPeriod", Label: "How often does it repeat?", Kind: KindRadios, Value: j.Frequency}
	for _, f := range appointments.Frequencies {
		freq.Options = append(freq.Options, Option{Value: string(f), Text: f.Label()})
	}
	count := &Field{Name: "repeatCount", Label: "How many appointments do you want to schedule?", Kind: KindNumber}
	if j.NumberOfAppointments > 0 {
		count.Value = strconv.Itoa(j.NumberOfAppointments)
	}
	return appointmentPage(j, "How often does the appointment repeat?", freq, count)
}

func (s *server) getAppointmentFrequency(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, appointmentFrequencyPage(appointmentJourney(r)))
}

func (s *server) postAppointmentFrequency(w http.ResponseWriter, r *http.Request) {
	j := appointmentJourney(r)
	v := validate.New()
	raw, ok := validate.Text(v, r.PostForm, "repeatPeriod", validate.OneOf("Select how often the appointments will repeat", optionValues(appointmentFrequencyPage(j).Form.Fields[0].Options)...))
	freq, _ := appointments.ParseFrequency(raw)
	rules := []validate.Rule[int]{validate.IntBetween(1, 1<<30, "Number of appointments must be 1 or more")}
	if ok {
		limit := appointments.MaxCount(freq)
		rules = append(rules, validate.IntAtMost(limit, fmt.Sprintf("Number of appointments must be %d or fewer", limit)))
	}
	count, countOK := validate.Int(v, r.PostForm, "repeatCount", "Enter how many appointments you want to schedule", "Number of appointments must be a whole number", rules...)
	if countOK {
		if err := applyto.CheckAttendeeCeiling(len(j.Prisoners), count, s.Limits.MaxAppointmentInstances); err != nil {
			v.Add("repeatCount", err.Error())
		}
	}
	if !v.Valid() {
		s.invalid(w, r, appointmentFrequencyPage(j), v.Errors())
		return
	}
	j.Frequency = string(freq)
	j.NumberOfAppointments = count
	redirect(w, r, nextStep(r, "comment"))
}

func appointmentCommentPage(j *journey.AppointmentJourney) Page {
	return appointmentPage(j, "Add extra information",
		&Field{Name: "extraInformation", Label: "Extra information (optional)", Hint: "This will be shown on the movement slip. You can use markdown, for example **bold** text", Kind: KindTextarea, Value: j.ExtraInformation})
}

func (s *server) getAppointmentComment(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, appointmentCommentPage(appointmentJourney(r)))
}

func (s *server) postAppointmentComment(w http.ResponseWriter, r *http.Request) {
	j := appointmentJourney(r)
	v := validate.New()
	text, _ := validate.Text(v, r.PostForm, "extraInformation", validate.MaxLength(4000, "You must enter extra information which has no more than 4,000 characters"))
	if !v.Valid() {
		s.invalid(w, r, appointmentCommentPage(j), v.Errors())
		return
	}
	j.ExtraInformation = strings.TrimSpace(text)
	redirect(w, r, "check-answers")
}

func appointmentWhen(date simpledate.SimpleDate, start, end *simpledate.SimpleTime) string {
	when := date.Display()
	if start != nil {
		when += ", " + start.String()
	}
	if end != nil {
		when += " to " + end.String()
	}
	return when
}

func (s *server) getAppointmentCheckAnswers(w http.ResponseWriter, r *http.Request) {
	j := appointmentJourney(r)
	page := appointmentPage(j, "Check and confirm the appointment details")
	names := make([]string, 0, len(j.Prisoners))
	for _, p := range j.Prisoners {
		names = append(names, fmt.Sprintf("%s (%s)", p.Name, p.PrisonerNumber))
	}
	page.Summary = []Row{
		{Key: "Attendees", Value: strings.Join(names, ", "), Href: "prisoners?preserveHistory=true"},
		{Key: "Category", Value: j.Category.Description, Href: "category?preserveHistory=true"},
		{Key: "Location", Value: j.Location.Description, Href: "location?preserveHistory=true"},
		{Key: "Date and time", Value: appointmentWhen(j.StartDate, j.StartTime, j.EndTime), Href: "date-and-time?preserveHistory=true"},
		{Key: "Repeats", Value: yesNoText(j.Repeats()), Href: "repeat?preserveHistory=true"},
	}
	if j.Repeats() {
		freq := appointments.Frequency(j.Frequency)
		page.Summary = append(page.Summary,
			Row{Key: "Frequency", Value: freq.Label(), Href: "repeat-frequency-and-count?preserveHistory=true"},
			Row{Key: "Number of appointments", Value: strconv.Itoa(j.NumberOfAppointments), Href: "repeat-frequency-and-count?preserveHistory=true"},
		)
		if last, err := appointments.LastDate(j.StartDate, freq, j.NumberOfAppointments); err == nil {
			page.Summary = append(page.Summary, Row{Key: "Last appointment", Value: last.Display()})
		}
	}
	page.Summary = append(page.Summary, Row{Key: "Extra information", Value: "", Href: "comment?preserveHistory=true"})
	page.Markdown = j.ExtraInformation
	page.Form.Submit = "Confirm and schedule"
	s.render(w, r, http.StatusOK, page)
}

func (s *server) postAppointmentCheckAnswers(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	j := sess.AppointmentJourney
	req := domain.AppointmentSeriesCreateRequest{
		AppointmentType:    j.Type,
		PrisonCode:         s.prison(r),
		CategoryCode:       j.Category.Code,
		InternalLocationID: j.Location.ID,
		StartDate:          j.StartDate.ISO(),
		StartTime:          j.StartTime.String(),
		EndTime:            j.EndTime.String(),
		ExtraInformation:   j.ExtraInformation,
	}
	for _, p := range j.Prisoners {
		req.PrisonerNumbers = append(req.PrisonerNumbers, p.PrisonerNumber)
	}
	if j.Repeats() {
		req.Schedule = &domain.AppointmentSchedule{Frequency: j.Frequency, NumberOfAppointments: j.NumberOfAppointments}
	}
	series, err := s.Activities.CreateAppointmentSeries(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(series.Appointments) == 0 {
		s.fail(w, r, fmt.Errorf("appointment series %d was created without appointments", series.ID))
		return
	}
	first := series.Appointments[0]
	for _, a := range series.Appointments {
		if a.SequenceNumber < first.SequenceNumber {
			first = a
		}
	}
	s.audit(r, events.Entry{
		Type:       events.AppointmentSeriesCreated,
		EntityKind: "appointmentSeries",
		EntityID:   strconv.Itoa(series.ID),
		Payload: events.EventPayload{
			"prisonerNumbers": req.PrisonerNumbers,
			"category":        req.CategoryCode,
			"appointments":    len(series.Appointments),
		},
	})
	sess.ClearAppointmentJourneys()
	sess.SetFlash("Appointment scheduled", fmt.Sprintf("You've scheduled %s for %s", j.Category.Description, appointmentWhen(j.StartDate, j.StartTime, j.EndTime)))
	redirect(w, r, fmt.Sprintf("/appointments/%d", first.ID))
}

func (s *server) appointmentID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "appointmentId"))
	if err != nil {
		s.notFound(w, r)
		return 0, false
	}
	return id, true
}

func (s *server) viewAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.appointmentID(w, r)
	if !ok {
		return
	}
	a, err := s.Activities.AppointmentDetails(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	date, _ := simpledate.ParseISO(a.StartDate)
	var start, end *simpledate.SimpleTime
	if t, err := simpledate.ParseTime(a.StartTime); err == nil {
		start = &t
	}
	if t, err := simpledate.ParseTime(a.EndTime); err == nil {
		end = &t
	}
	where := ""
	if a.InternalLocation != nil {
		where = a.InternalLocation.Description
	}
	base := fmt.Sprintf("/appointments/%d/edit/start/", id)
	page := Page{
		Title:   a.Category.Description,
		Caption: "Appointment",
		Summary: []Row{
			{Key: "Location", Value: where},
			{Key: "Date and time", Value: appointmentWhen(date, start, end)},
		},
		Markdown: a.ExtraInformation,
		Table:    &Table{Head: []string{"Name", "Prison number"}},
	}
	if a.AppointmentSeries != nil && a.AppointmentSeries.Schedule != nil {
		sch := a.AppointmentSeries.Schedule
		page.Summary = append(page.Summary,
			Row{Key: "Repeats", Value: appointments.Frequency(sch.Frequency).Label()},
			Row{Key: "Appointment", Value: fmt.Sprintf("%d of %d", a.SequenceNumber, sch.NumberOfAppointments)},
		)
	}
	if a.IsCancelled {
		page.Summary = append(page.Summary, Row{Key: "Status", Value: "Cancelled"})
	}
	for _, p := range a.Attendees {
		page.Table.Rows = append(page.Table.Rows, []string{joinNonEmpty(" ", p.FirstName, p.LastName), p.PrisonerNumber})
	}
	if !a.IsExpired {
		if a.IsCancelled {
			page.Links = append(page.Links, Link{Text: "Reinstate this appointment", Href: base + journey.PropertyUncancel})
		} else {
			page.Summary[0].Href = base + journey.PropertyLocation
			page.Summary[1].Href = base + journey.PropertyDateAndTime
			page.Links = append(page.Links,
				Link{Text: "Add people", Href: base + journey.PropertyAddPrisoners},
				Link{Text: "Cancel this appointment", Href: base + journey.PropertyCancel},
			)
			for _, p := range a.Attendees {
				page.Links = append(page.Links, Link{
					Text: "Remove " + joinNonEmpty(" ", p.FirstName, p.LastName),
					Href: fmt.Sprintf("/appointments/%d/edit/start/%s?prisonerNumber=%s", id, journey.PropertyRemovePrisoner, p.PrisonerNumber),
				})
			}
		}
	}
	if a.AppointmentSeries != nil {
		page.Links = append(page.Links, Link{Text: "Download the series as a calendar file", Href: fmt.Sprintf("/appointments/%d/series.ics", id)})
	}
	s.render(w, r, http.StatusOK, page)
}

func (s *server) appointmentCalendar(w http.ResponseWriter, r *http.Request) {
	id, ok := s.appointmentID(w, r)
	if !ok {
		return
	}
	a, err := s.Activities.AppointmentDetails(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if a.AppointmentSeries == nil {
		s.notFound(w, r)
		return
	}
	series, err := s.Activities.AppointmentSeries(r.Context(), a.AppointmentSeries.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	body, err := appointments.Calendar(series, s.calendarHost(), s.Location, s.Now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="appointment-series-%d.ics"`, series.ID))
	_, _ = w.Write([]byte(body))
}

func (s *server) calendarHost() string {
	host := strings.TrimPrefix(strings.TrimPrefix(s.BaseURL, "https://"), "http://")
	host = strings.TrimSuffix(host, "/")
	if host == "" {
		return "activities.local"
	}
	return host
}

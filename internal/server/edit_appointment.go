package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"activities/internal/applyto"
	"activities/internal/domain"
	"activities/internal/events"
	"activities/internal/journey"
	"activities/internal/simpledate"
	"activities/internal/validate"
)

var cancellationReasons = []Option{
	{Value: strconv.Itoa(journey.CancelCreatedInError), Text: "Created in error"},
	{Value: strconv.Itoa(journey.CancelCancelled), Text: "Cancelled"},
}

func (s *server) editAppointmentRoutes(r chi.Router) {
	r.Get("/start/{property}", s.startEditAppointment)
	r.Group(func(r chi.Router) {
		r.Use(s.sameAppointment)
		s.mountFlow(r, journey.EditAppointment, appointmentDetailPath, map[string]step{
			"location":         {get: s.getEditLocation, post: s.postEditLocation},
			"date-and-time":    {get: s.getEditDateAndTime, post: s.postEditDateAndTime},
			"cancel/reason":    {get: s.getCancelReason, post: s.postCancelReason},
			"uncancel":         {get: s.getUncancel, post: s.postUncancel},
			"prisoners/add":    {get: s.getAddPrisoners, post: s.postAddPrisoners},
			"prisoners/remove": {path: "/prisoners/remove/{prisonerNumber}", get: s.getRemovePrisoner, post: s.postRemovePrisoner},
			"apply-to":         {get: s.getApplyTo, post: s.postApplyTo},
		})
	})
}

func appointmentDetailPath(r *http.Request) string {
	return "/appointments/" + chi.URLParam(r, "appointmentId")
}

func editPath(id int, step string) string {
	return fmt.Sprintf("/appointments/%d/edit/%s", id, step)
}

func editAppointmentJourney(r *http.Request) *journey.EditAppointmentJourney {
	return sessionFrom(r).EditAppointmentJourney
}

// sameAppointment sends the user back to the appointment when the pending edit is for a
// different one.
func (s *server) sameAppointment(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		j := editAppointmentJourney(r)
		if j != nil && strconv.Itoa(j.AppointmentID) != chi.URLParam(r, "appointmentId") {
			redirect(w, r, appointmentDetailPath(r))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func occurrencesOf(series domain.AppointmentSeries) []applyto.Occurrence {
	out := make([]applyto.Occurrence, 0, len(series.Appointments))
	for _, a := range series.Appointments {
		o := applyto.Occurrence{ID: a.ID, Sequence: a.SequenceNumber, Cancelled: a.IsCancelled, Expired: a.IsExpired}
		o.StartDate, _ = simpledate.ParseISO(a.StartDate)
		o.StartTime, _ = simpledate.ParseTime(a.StartTime)
		out = append(out, o)
	}
	return out
}

func (s *server) startEditAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.appointmentID(w, r)
	if !ok {
		return
	}
	property := chi.URLParam(r, "property")
	steps := map[string]string{
		journey.PropertyLocation:     "location",
		journey.PropertyDateAndTime:  "date-and-time",
		journey.PropertyCancel:       "cancel/reason",
		journey.PropertyUncancel:     "uncancel",
		journey.PropertyAddPrisoners: "prisoners/add",
	}
	to, known := steps[property]
	if !known && property != journey.PropertyRemovePrisoner {
		s.notFound(w, r)
		return
	}
	a, err := s.Activities.AppointmentDetails(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	j := &journey.EditAppointmentJourney{AppointmentID: a.ID, SequenceNumber: a.SequenceNumber, Property: property}
	if a.AppointmentSeries != nil {
		series, err := s.Activities.AppointmentSeries(r.Context(), a.AppointmentSeries.ID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		j.SeriesID = series.ID
		j.Occurrences = occurrencesOf(series)
	}
	if len(j.Occurrences) == 0 {
		j.SequenceNumber = 1
		j.Occurrences = occurrencesOf(domain.AppointmentSeries{Appointments: []domain.AppointmentSummary{{
			ID: a.ID, SequenceNumber: 1, StartDate: a.StartDate, StartTime: a.StartTime,
			IsCancelled: a.IsCancelled, IsExpired: a.IsExpired,
		}}})
	}
	cur, found := j.Current()
	if !found || cur.Expired || cur.Started(s.Now(), s.Location) {
		s.badRequest(w, r, "This appointment has already taken place and cannot be changed")
		return
	}
	if a.InternalLocation != nil {
		j.Location = &journey.Location{ID: a.InternalLocation.ID, Code: a.InternalLocation.Code, Description: a.InternalLocation.Description}
	}
	j.StartDate = cur.StartDate
	if t, err := simpledate.ParseTime(a.StartTime); err == nil {
		j.StartTime = &t
	}
	if t, err := simpledate.ParseTime(a.EndTime); err == nil {
		j.EndTime = &t
	}
	if property == journey.PropertyRemovePrisoner {
		number := r.URL.Query().Get("prisonerNumber")
		for _, p := range a.Attendees {
			if p.PrisonerNumber == number {
				j.RemovePrisoner = &journey.Inmate{PrisonerNumber: number, Name: joinNonEmpty(" ", p.FirstName, p.LastName)}
			}
		}
		if j.RemovePrisoner == nil {
			s.badRequest(w, r, "That person is not attending this appointment")
			return
		}
		to = "prisoners/remove/" + number
	}
	sess := sessionFrom(r)
	sess.ClearAppointmentJourneys()
	sess.EditAppointmentJourney = j
	redirect(w, r, editPath(id, to))
}

func editPage(j *journey.EditAppointmentJourney, title string, fields ...*Field) Page {
	return Page{
		Title:   title,
		Caption: "Change an appointment",
		Back:    fmt.Sprintf("/appointments/%d", j.AppointmentID),
		Form:    &Form{Fields: fields},
	}
}

func (s *server) remaining(j *journey.EditAppointmentJourney) []applyto.Occurrence {
	return applyto.Remaining(j.Occurrences, s.Now(), s.Location)
}

// afterEdit either asks which appointments the change applies to or, with nothing to
// decide, applies it to this appointment.
func (s *server) afterEdit(w http.ResponseWriter, r *http.Request, j *journey.EditAppointmentJourney) {
	if applyto.NeedsDecision(applyto.Options(s.remaining(j), j.SequenceNumber, j.Change())) {
		redirect(w, r, editPath(j.AppointmentID, "apply-to"))
		return
	}
	s.applyEdit(w, r, j, applyto.ThisOccurrence)
}

func (s *server) getEditLocation(w http.ResponseWriter, r *http.Request) {
	j := editAppointmentJourney(r)
	f, _, err := s.appointmentLocations(r, j.Location)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, editPage(j, "Change the appointment location", f))
}

func (s *server) postEditLocation(w http.ResponseWriter, r *http.Request) {
	j := editAppointmentJourney(r)
	f, locs, err := s.appointmentLocations(r, j.Location)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v := validate.New()
	loc := pickLocation(v, r, f, locs)
	if !v.Valid() {
		s.invalid(w, r, editPage(j, "Change the appointment location", f), v.Errors())
		return
	}
	j.Location = loc
	j.Property = journey.PropertyLocation
	s.afterEdit(w, r, j)
}

func (s *server) getEditDateAndTime(w http.ResponseWriter, r *http.Request) {
	j := editAppointmentJourney(r)
	s.render(w, r, http.StatusOK, editPage(j, "Change the appointment date and time", dateAndTimeFields(j.StartDate, j.StartTime, j.EndTime)...))
}

func (s *server) postEditDateAndTime(w http.ResponseWriter, r *http.Request) {
	j := editAppointmentJourney(r)
	v := validate.New()
	date, start, end := s.appointmentTimes(r, v)
	if !v.Valid() {
		s.invalid(w, r, editPage(j, "Change the appointment date and time", dateAndTimeFields(j.StartDate, j.StartTime, j.EndTime)...), v.Errors())
		return
	}
	j.StartDate = date
	j.StartTime = &start
	j.EndTime = &end
	j.Property = journey.PropertyDateAndTime
	s.afterEdit(w, r, j)
}

func cancelReasonPage(j *journey.EditAppointmentJourney) Page {
	f := &Field{Name: "reason", Label: "Reason", Kind: KindRadios, Options: cancellationReasons}
	if j.CancellationReason != 0 {
		f.Value = strconv.Itoa(j.CancellationReason)
	}
	return editPage(j, "Why are you cancelling the appointment?", f)
}

func (s *server) getCancelReason(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, cancelReasonPage(editAppointmentJourney(r)))
}

func (s *server) postCancelReason(w http.ResponseWriter, r *http.Request) {
	j := editAppointmentJourney(r)
	v := validate.New()
	reason, _ := validate.Text(v, r.PostForm, "reason", validate.OneOf("Select why you're cancelling the appointment", optionValues(cancellationReasons)...))
	if !v.Valid() {
		s.invalid(w, r, cancelReasonPage(j), v.Errors())
		return
	}
	j.CancellationReason = atoi(reason)
	j.Property = journey.PropertyCancel
	s.afterEdit(w, r, j)
}

// confirmPage asks a yes-or-no question about a change that has nothing to fill in.
func (s *server) confirmPage(j *journey.EditAppointmentJourney) Page {
	opt := applyto.ThisOccurrence
	remaining := s.remaining(j)
	scope := applyto.Scope(remaining, j.SequenceNumber, opt)
	page := editPage(j, applyto.Confirmation(j.Change(), scope, opt, len(j.Occurrences)))
	page.Form.Submit = "Confirm"
	return page
}

func (s *server) getUncancel(w http.ResponseWriter, r *http.Request) {
	j := editAppointmentJourney(r)
	j.Property = journey.PropertyUncancel
	s.render(w, r, http.StatusOK, s.confirmPage(j))
}

func (s *server) postUncancel(w http.ResponseWriter, r *http.Request) {
	j := editAppointmentJourney(r)
	j.Property = journey.PropertyUncancel
	s.afterEdit(w, r, j)
}

func addPrisonersPage(j *journey.EditAppointmentJourney) Page {
	return editPage(j, "Add people to the appointment",
		&Field{Name: "prisonerNumbers", Label: "Prison numbers", Hint: "Enter one prison number per line", Kind: KindTextarea})
}

func (s *server) getAddPrisoners(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, addPrisonersPage(editAppointmentJourney(r)))
}

func (s *server) postAddPrisoners(w http.ResponseWriter, r *http.Request) {
	j := editAppointmentJourney(r)
	v := validate.New()
	found, err := s.groupAttendees(r, v)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if v.Valid() {
		change := applyto.Change{Kind: applyto.KindAddAttendees, Attendees: len(found)}
		opts := applyto.Options(s.remaining(j), j.SequenceNumber, change)
		if !applyto.NeedsDecision(opts) {
			if err := applyto.CheckAttendeeCeiling(len(found), 1, s.Limits.MaxAppointmentInstances); err != nil {
				v.Add("prisonerNumbers", err.Error())
			}
		}
	}
	if !v.Valid() {
		s.invalid(w, r, addPrisonersPage(j), v.Errors())
		return
	}
	j.AddPrisoners = found
	j.Property = journey.PropertyAddPrisoners
	s.afterEdit(w, r, j)
}

func (s *server) getRemovePrisoner(w http.ResponseWriter, r *http.Request) {
	j := editAppointmentJourney(r)
	if j.RemovePrisoner == nil || j.RemovePrisoner.PrisonerNumber != chi.URLParam(r, "prisonerNumber") {
		redirect(w, r, fmt.Sprintf("/appointments/%d", j.AppointmentID))
		return
	}
	j.Property = journey.PropertyRemovePrisoner
	s.render(w, r, http.StatusOK, s.confirmPage(j))
}

func (s *server) postRemovePrisoner(w http.ResponseWriter, r *http.Request) {
	j := editAppointmentJourney(r)
	if j.RemovePrisoner == nil || j.RemovePrisoner.PrisonerNumber != chi.URLParam(r, "prisonerNumber") {
		redirect(w, r, fmt.Sprintf("/appointments/%d", j.AppointmentID))
		return
	}
	j.Property = journey.PropertyRemovePrisoner
	s.afterEdit(w, r, j)
}

func (s *server) applyToPage(j *journey.EditAppointmentJourney) Page {
	remaining := s.remaining(j)
	change := j.Change()
	f := &Field{Name: "applyTo", Label: "Apply the change to", Kind: KindRadios, Value: j.ApplyTo}
	for _, opt := range applyto.Options(remaining, j.SequenceNumber, change) {
		f.Options = append(f.Options, Option{Value: string(opt), Text: opt.Label()})
	}
	page := editPage(j, "Which appointments do you want this change to apply to?", f)
	scope := applyto.Scope(remaining, j.SequenceNumber, applyto.ThisOccurrence)
	page.Paragraphs = []string{
		fmt.Sprintf("This is appointment %d of %d in the series.", j.SequenceNumber, len(j.Occurrences)),
		applyto.Confirmation(change, scope, applyto.ThisOccurrence, len(j.Occurrences)),
	}
	return page
}

func (s *server) getApplyTo(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, s.applyToPage(editAppointmentJourney(r)))
}

func (s *server) postApplyTo(w http.ResponseWriter, r *http.Request) {
	j := editAppointmentJourney(r)
	page := s.applyToPage(j)
	v := validate.New()
	raw, ok := validate.Text(v, r.PostForm, "applyTo",
		validate.OneOf("Select which appointments you want to change", optionValues(page.Form.Fields[0].Options)...))
	opt := applyto.Option(raw)
	if ok && j.Property == journey.PropertyAddPrisoners {
		scope := applyto.Scope(s.remaining(j), j.SequenceNumber, opt)
		if err := applyto.CheckAttendeeCeiling(len(j.AddPrisoners), len(scope), s.Limits.MaxAppointmentInstances); err != nil {
			v.Add("applyTo", err.Error())
		}
	}
	if !v.Valid() {
		s.invalid(w, r, page, v.Errors())
		return
	}
	j.ApplyTo = raw
	s.applyEdit(w, r, j, opt)
}

// applyEdit sends the pending change to the API for the chosen scope and returns to
// the appointment with a banner.
func (s *server) applyEdit(w http.ResponseWriter, r *http.Request, j *journey.EditAppointmentJourney, opt applyto.Option) {
	ctx := r.Context()
	remaining := s.remaining(j)
	scope := applyto.Scope(remaining, j.SequenceNumber, opt)
	change := j.Change()
	applyTo := string(opt)

	var err error
	eventType := events.AppointmentUpdated
	payload := events.EventPayload{"applyTo": applyTo, "sequences": applyto.Sequences(scope), "property": j.Property}
	switch change.Kind {
	case applyto.KindCancel, applyto.KindDelete:
		eventType = events.AppointmentCancelled
		if change.Kind == applyto.KindDelete {
			eventType = events.AppointmentDeleted
		}
		err = s.Activities.CancelAppointment(ctx, j.AppointmentID, domain.AppointmentCancelRequest{CancellationReasonID: j.CancellationReason, ApplyTo: applyTo})
	case applyto.KindUncancel:
		eventType = events.AppointmentUncancelled
		err = s.Activities.UncancelAppointment(ctx, j.AppointmentID, domain.AppointmentUncancelRequest{ApplyTo: applyTo})
	default:
		req := domain.AppointmentUpdateRequest{ApplyTo: applyTo}
		switch j.Property {
		case journey.PropertyLocation:
			req.InternalLocationID = ptr(j.Location.ID)
		case journey.PropertyDateAndTime:
			req.StartDate = ptr(j.StartDate.ISO())
			req.StartTime = ptr(j.StartTime.String())
			req.EndTime = ptr(j.EndTime.String())
		case journey.PropertyAddPrisoners:
			for _, p := range j.AddPrisoners {
				req.AddPrisonerNumbers = append(req.AddPrisonerNumbers, p.PrisonerNumber)
			}
			payload["prisonerNumbers"] = req.AddPrisonerNumbers
		case journey.PropertyRemovePrisoner:
			req.RemovePrisonerNumbers = []string{j.RemovePrisoner.PrisonerNumber}
			payload["prisonerNumbers"] = req.RemovePrisonerNumbers
		}
		err = s.Activities.UpdateAppointment(ctx, j.AppointmentID, req)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.audit(r, events.Entry{
		Type:       eventType,
		EntityKind: "appointment",
		EntityID:   strconv.Itoa(j.AppointmentID),
		Payload:    payload,
	})
	sess := sessionFrom(r)
	sess.ClearAppointmentJourneys()
	msg := applyto.Message(change, scope, opt, len(j.Occurrences))
	if change.Kind == applyto.KindDelete {
		sess.SetFlash("Appointment deleted", msg)
		redirect(w, r, "/")
		return
	}
	sess.SetFlash("Appointment updated", msg)
	redirect(w, r, fmt.Sprintf("/appointments/%d", j.AppointmentID))
}

package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"activities/internal/domain"
	"activities/internal/journey"
	"activities/internal/simpledate"
	"activities/internal/validate"
)

func (s *server) unlockListRoutes(r chi.Router) {
	r.Get("/select-date-and-location", s.getUnlockFilters)
	r.Post("/select-date-and-location", s.postUnlockFilters)
	r.Get("/planned-events", s.plannedEvents)
}

func (s *server) unlockFiltersPage(r *http.Request) (Page, []domain.LocationGroup, error) {
	groups, err := s.Activities.LocationGroups(r.Context(), s.prison(r))
	if err != nil {
		return Page{}, nil, err
	}
	slot := &Field{Name: "timeSlot", Label: "Time slot", Kind: KindRadios}
	for _, ts := range journey.TimeSlots {
		slot.Options = append(slot.Options, Option{Value: ts, Text: timeSlotNames[ts]})
	}
	where := &Field{Name: "locationKey", Label: "Location", Kind: KindSelect}
	for _, g := range groups {
		where.Options = append(where.Options, Option{Value: g.Key, Text: g.Name})
	}
	if j := sessionFrom(r).UnlockListJourney; j != nil {
		slot.Value = j.TimeSlot
		where.Value = j.LocationKey
	}
	return Page{
		Title:   "Select a date and location for the unlock list",
		Caption: "Unlock list",
		Form: &Form{Fields: []*Field{
			presetField("datePresetOption", "Date", Option{Value: presetToday, Text: "Today"}, Option{Value: presetTomorrow, Text: "Tomorrow"}),
			dateField("date", "Date", "Only needed for a different date, for example 27 3 2024", simpledate.SimpleDate{}),
			slot,
			where,
		}},
	}, groups, nil
}

func (s *server) getUnlockFilters(w http.ResponseWriter, r *http.Request) {
	page, _, err := s.unlockFiltersPage(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, page)
}

func (s *server) postUnlockFilters(w http.ResponseWriter, r *http.Request) {
	page, _, err := s.unlockFiltersPage(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	today := s.today()
	past, future := s.Limits.UnlockListPastDays, s.Limits.UnlockListFutureDays
	v := validate.New()
	date := s.pickDate(v, r.PostForm, map[string]int{presetToday: 0, presetTomorrow: 1},
		validate.DateWithinDaysPast(today, past, fmt.Sprintf("Enter a date within the last %d days", past)),
		validate.DateWithinDaysFuture(today, future, fmt.Sprintf("Enter a date within the next %d days", future)))
	slot, _ := validate.Text(v, r.PostForm, "timeSlot", validate.OneOf("Select a time slot", journey.TimeSlots...))
	key, _ := validate.Text(v, r.PostForm, "locationKey", validate.OneOf("Select a location", optionValues(page.Form.Fields[3].Options)...))
	if !v.Valid() {
		s.invalid(w, r, page, v.Errors())
		return
	}
	sessionFrom(r).UnlockListJourney = &journey.UnlockListJourney{Date: date, TimeSlot: slot, LocationKey: key}
	q := url.Values{}
	q.Set("date", date.ISO())
	q.Set("timeSlot", slot)
	q.Set("locationKey", key)
	redirect(w, r, "planned-events?"+q.Encode())
}

func (s *server) plannedEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, err := simpledate.ParseISO(q.Get("date"))
	slot, key := q.Get("timeSlot"), q.Get("locationKey")
	if err != nil || slot == "" || key == "" {
		redirect(w, r, "select-date-and-location")
		return
	}
	items, err := s.Activities.UnlockList(r.Context(), s.prison(r), date.ISO(), slot, key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	table := &Table{Head: []string{"Name", "Prison number", "Cell location", "Planned events"}}
	for _, it := range items {
		var planned []string
		for _, ev := range it.Events {
			planned = append(planned, joinNonEmpty(" ", ev.Summary, joinNonEmpty("-", ev.StartTime, ev.EndTime)))
		}
		table.Rows = append(table.Rows, []string{joinNonEmpty(" ", it.FirstName, it.LastName), it.PrisonerNumber, it.CellLocation, strings.Join(planned, "; ")})
	}
	s.render(w, r, http.StatusOK, Page{
		Title:      fmt.Sprintf("Unlock list for %s", date.Display()),
		Caption:    "Unlock list",
		Back:       "select-date-and-location",
		Paragraphs: []string{fmt.Sprintf("%s, %d people", timeSlotNames[slot], len(items))},
		Table:      table,
		Links:      []Link{{Text: "Change date or location", Href: "select-date-and-location"}},
	})
}

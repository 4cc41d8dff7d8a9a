package server

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"activities/internal/simpledate"
	"activities/internal/validate"
)

// Date presets offered where a single day is picked.
const (
	presetToday     = "today"
	presetYesterday = "yesterday"
	presetTomorrow  = "tomorrow"
	presetOther     = "other"
)

func (s *server) attendanceRoutes(r chi.Router) {
	r.Get("/select-period", s.getSelectPeriod)
	r.Post("/select-period", s.postSelectPeriod)
	r.Get("/summary", s.attendanceSummary)
}

func presetField(name, label string, presets ...Option) *Field {
	return &Field{Name: name, Label: label, Kind: KindRadios, Options: append(presets, Option{Value: presetOther, Text: "A different date"})}
}

// pickDate resolves a preset radio plus an optional explicit date to a single day.
func (s *server) pickDate(v *validate.Validator, values url.Values, offsets map[string]int, rules ...validate.Rule[simpledate.SimpleDate]) simpledate.SimpleDate {
	allowed := []string{presetOther}
	for k := range offsets {
		allowed = append(allowed, k)
	}
	preset, _ := validate.Text(v, values, "datePresetOption", validate.OneOf("Select a date", allowed...))
	today := s.today()
	if n, ok := offsets[preset]; ok {
		return today.AddDays(n)
	}
	var date simpledate.SimpleDate
	v.When(preset == presetOther, func(v *validate.Validator) {
		date, _ = validate.Date(v, values, "date", "Enter a valid date", rules...)
	})
	return date
}

func selectPeriodPage() Page {
	return Page{
		Title:   "Select a date to view the attendance summary",
		Caption: "Attendance summary",
		Form: &Form{Fields: []*Field{
			presetField("datePresetOption", "Date", Option{Value: presetToday, Text: "Today"}, Option{Value: presetYesterday, Text: "Yesterday"}),
			dateField("date", "Date", "Only needed for a different date, for example 27 3 2024", simpledate.SimpleDate{}),
		}},
	}
}

func (s *server) getSelectPeriod(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, selectPeriodPage())
}

func (s *server) postSelectPeriod(w http.ResponseWriter, r *http.Request) {
	v := validate.New()
	date := s.pickDate(v, r.PostForm, map[string]int{presetToday: 0, presetYesterday: -1},
		validate.DateIsSameOrBefore(s.today(), "Enter a date on or before today"))
	if !v.Valid() {
		s.invalid(w, r, selectPeriodPage(), v.Errors())
		return
	}
	redirect(w, r, "summary?date="+date.ISO())
}

func (s *server) attendanceSummary(w http.ResponseWriter, r *http.Request) {
	date, err := simpledate.ParseISO(r.URL.Query().Get("date"))
	if err != nil {
		redirect(w, r, "select-period")
		return
	}
	sum, err := s.Activities.AttendanceSummary(r.Context(), s.prison(r), date.ISO())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, Page{
		Title:   "Attendance summary for " + date.Display(),
		Caption: "Attendance summary",
		Back:    "select-period",
		Summary: []Row{
			{Key: "Sessions", Value: strconv.Itoa(sum.Sessions)},
			{Key: "Attended", Value: strconv.Itoa(sum.Attended)},
			{Key: "Absent", Value: strconv.Itoa(sum.Absent)},
			{Key: "Not recorded", Value: strconv.Itoa(sum.NotRecorded)},
		},
		Links: []Link{{Text: "Change date", Href: "select-period"}},
	})
}

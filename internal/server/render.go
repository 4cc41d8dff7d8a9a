package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"activities/internal/journey"
	"activities/internal/observability"
	"activities/internal/simpledate"
	"activities/internal/validate"
)

//go:embed templates/*.html
var templateFS embed.FS

// Raw HTML in comments is escaped because WithUnsafe is not set.
var markdown = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

func parsePages() (*template.Template, error) {
	return template.New("layout.html").Funcs(template.FuncMap{
		"markdown": renderMarkdown,
	}).ParseFS(templateFS, "templates/*.html")
}

// Page is the view model every template renders.
type Page struct {
	Title      string
	Caption    string
	Back       string
	Flash      *journey.Banner
	Errors     validate.Errors
	User       journey.User
	Paragraphs []string
	// Markdown is user-entered free text.
	Markdown string
	Summary  []Row
	Table    *Table
	Form     *Form
	Links    []Link
	CSRF     template.HTML
}

// Row is one line of a summary list with an optional change link.
type Row struct {
	Key   string
	Value string
	Href  string
}

type Table struct {
	Head []string
	Rows [][]string
}

type Link struct {
	Text string
	Href string
}

// Form is a single-question (or few-question) step form.
type Form struct {
	Action string
	Fields []*Field
	Submit string
}

// Field kinds understood by page.html.
const (
	KindText       = "text"
	KindNumber     = "number"
	KindTextarea   = "textarea"
	KindRadios     = "radios"
	KindCheckboxes = "checkboxes"
	KindSelect     = "select"
	KindDate       = "date"
	KindTime       = "time"
	KindHidden     = "hidden"
)

type Field struct {
	Name    string
	Label   string
	Hint    string
	Kind    string
	Value   string
	Values  []string
	Parts   map[string]string
	Options []Option
	Error   string
}

type Option struct {
	Value string
	Text  string
}

// Selected reports whether v is the current answer of a radio, select or checkbox field.
func (f *Field) Selected(v string) bool {
	if f.Kind == KindCheckboxes {
		for _, x := range f.Values {
			if x == v {
				return true
			}
		}
		return false
	}
	return f.Value == v
}

func (f *Field) partNames() []string {
	switch f.Kind {
	case KindDate:
		return []string{"day", "month", "year"}
	case KindTime:
		return []string{"hour", "minute"}
	}
	return nil
}

// refill puts the submitted answers back into the form and attaches messages.
func (f *Form) refill(values url.Values, errs validate.Errors) {
	for _, fld := range f.Fields {
		switch fld.Kind {
		case KindHidden:
		case KindDate, KindTime:
			fld.Parts = map[string]string{}
			for _, p := range fld.partNames() {
				fld.Parts[p] = values.Get(fld.Name + "-" + p)
			}
		case KindCheckboxes:
			fld.Values = values[fld.Name]
		default:
			fld.Value = values.Get(fld.Name)
		}
		fld.Error = errs.Message(fld.Name)
		for _, p := range fld.partNames() {
			if fld.Error == "" {
				fld.Error = errs.Message(fld.Name + "-" + p)
			}
		}
	}
}

func dateField(name, label, hint string, d simpledate.SimpleDate) *Field {
	f := &Field{Name: name, Label: label, Hint: hint, Kind: KindDate, Parts: map[string]string{}}
	if !d.IsZero() {
		f.Parts["day"] = strconv.Itoa(d.Day)
		f.Parts["month"] = strconv.Itoa(d.Month)
		f.Parts["year"] = strconv.Itoa(d.Year)
	}
	return f
}

func timeField(name, label string, t *simpledate.SimpleTime) *Field {
	f := &Field{Name: name, Label: label, Kind: KindTime, Parts: map[string]string{}}
	if t != nil {
		f.Parts["hour"] = twoDigits(t.Hour)
		f.Parts["minute"] = twoDigits(t.Minute)
	}
	return f
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func yesNo(name, label string, answer *bool) *Field {
	f := &Field{Name: name, Label: label, Kind: KindRadios, Options: []Option{{"yes", "Yes"}, {"no", "No"}}}
	if answer != nil {
		f.Value = "no"
		if *answer {
			f.Value = "yes"
		}
	}
	return f
}

func yesNoText(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func (s *server) render(w http.ResponseWriter, r *http.Request, status int, p Page) {
	if sess := sessionFrom(r); sess != nil {
		p.User = sess.User
		if p.Flash == nil {
			p.Flash = sess.TakeFlash()
		}
	}
	p.CSRF = csrf.TemplateField(r)
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, "layout.html", p); err != nil {
		observability.LoggerFromContext(r.Context()).Error("render page", "title", p.Title, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// invalid re-renders a step with the submitted answers and its messages.
func (s *server) invalid(w http.ResponseWriter, r *http.Request, p Page, errs validate.Errors) {
	p.Errors = errs
	if p.Form != nil {
		p.Form.refill(r.PostForm, errs)
	}
	s.render(w, r, http.StatusUnprocessableEntity, p)
}

func pence(rate int) string {
	return "£" + strconv.Itoa(rate/100) + "." + twoDigits(rate%100)
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

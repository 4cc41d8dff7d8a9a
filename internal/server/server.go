package server

import (
	"errors"
	"html/template"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"activities/internal/config"
	"activities/internal/events"
	"activities/internal/journey"
	"activities/internal/observability"
	"activities/internal/repo"
	"activities/internal/simpledate"
)

// Config for the web UI handler.
type Config struct {
	Activities     ActivitiesService
	PrisonerSearch PrisonerSearch
	Incentives     Incentives
	Locations      Locations
	// Upstreams are pinged by /health, keyed by component name.
	Upstreams map[string]Pinger

	Repo   repo.Repo
	Events events.Writer

	User     journey.User
	Location *time.Location
	Now      func() time.Time
	Limits   config.Limits

	SessionSecret string
	IdleTimeout   time.Duration
	SecureCookies bool
	CSRFEnabled   bool
	CSRFKey       string

	// BaseURL names this deployment in calendar exports.
	BaseURL string
	Version string
}

type server struct {
	Config
	pages *template.Template
}

// New returns the HTTP handler serving every journey plus the health operations.
func New(cfg Config) (http.Handler, error) {
	if cfg.Activities == nil || cfg.PrisonerSearch == nil || cfg.Incentives == nil || cfg.Locations == nil {
		return nil, errors.New("server: all api clients are required")
	}
	if cfg.Repo.DB == nil {
		return nil, errors.New("server: session store is required")
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("server: session secret is required")
	}
	if cfg.CSRFEnabled && len(cfg.CSRFKey) != 32 {
		return nil, errors.New("server: csrf key must be 32 bytes")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 2 * time.Hour
	}
	if cfg.Limits.MaxAppointmentInstances <= 0 {
		cfg.Limits.MaxAppointmentInstances = config.Default("").Limits.MaxAppointmentInstances
	}
	if cfg.Events.DB == nil {
		cfg.Events.DB = cfg.Repo.DB
	}
	if cfg.Events.Now == nil {
		cfg.Events.Now = cfg.Now
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	s := &server{Config: cfg, pages: pages}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(observability.RequestLogger)
	router.Use(middleware.Recoverer)

	hcfg := huma.DefaultConfig("Activities management", versionOr(cfg.Version))
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	s.registerHealth(api)

	router.Group(func(r chi.Router) {
		r.Use(s.sessions)
		r.Use(parseForms)
		if cfg.CSRFEnabled {
			r.Use(s.csrfProtect())
		}
		r.Get("/", s.home)
		r.Route("/activities", s.activityRoutes)
		r.Get("/allocations/view/{allocationId}", s.viewAllocation)
		r.Get("/allocations/{allocationId}/edit/{step}", s.editAllocation)
		r.Route("/allocate", s.allocateRoutes)
		r.Route("/deallocate", s.deallocateRoutes)
		r.Route("/waitlist", s.waitlistRoutes)
		r.Route("/appointments", s.appointmentRoutes)
		r.Route("/attendance-summary", s.attendanceRoutes)
		r.Route("/unlock-list", s.unlockListRoutes)
		r.NotFound(s.notFound)
	})
	return router, nil
}

func versionOr(v string) string {
	if v == "" {
		return "dev"
	}
	return v
}

// Route is one registered method and pattern.
type Route struct {
	Method  string
	Pattern string
}

// Routes lists the routes of a handler built by New.
func Routes(h http.Handler) ([]Route, error) {
	routes, ok := h.(chi.Routes)
	if !ok {
		return nil, errors.New("handler does not expose routes")
	}
	var out []Route
	err := chi.Walk(routes, func(method, pattern string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		out = append(out, Route{Method: method, Pattern: strings.ReplaceAll(pattern, "/*/", "/")})
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pattern == out[j].Pattern {
			return out[i].Method < out[j].Method
		}
		return out[i].Pattern < out[j].Pattern
	})
	return out, err
}

func (s *server) today() simpledate.SimpleDate {
	return simpledate.Today(s.Now(), s.Location)
}

func (s *server) prison(r *http.Request) string {
	if sess := sessionFrom(r); sess != nil && sess.User.PrisonCode != "" {
		return sess.User.PrisonCode
	}
	return s.User.PrisonCode
}

func (s *server) home(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, Page{
		Title: "Manage activities and appointments",
		Links: []Link{
			{Text: "Create an activity", Href: "/activities/create/start"},
			{Text: "Create an appointment", Href: "/appointments/create/start?type=INDIVIDUAL"},
			{Text: "Create a group appointment", Href: "/appointments/create/start?type=GROUP"},
			{Text: "Attendance summary", Href: "/attendance-summary/select-period"},
			{Text: "Unlock list", Href: "/unlock-list/select-date-and-location"},
		},
	})
}

func (s *server) notFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, Page{
		Title:      "Page not found",
		Paragraphs: []string{"If you typed the web address, check it is correct."},
	})
}

// redirect sends a 303 so the browser follows with a GET.
func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// nextStep keeps the user on check answers when they came from it.
func nextStep(r *http.Request, step string) string {
	if r.URL.Query().Get("preserveHistory") == "true" {
		return "check-answers"
	}
	return step
}

// Package app wires the configured store, API clients and web handler together.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"activities/internal/api"
	"activities/internal/config"
	"activities/internal/db"
	"activities/internal/journey"
	"activities/internal/migrate"
	"activities/internal/observability"
	"activities/internal/repo"
	"activities/internal/server"
)

// App is an opened workspace: config plus a migrated database.
type App struct {
	Config    *config.Config
	Workspace string
	DB        *sql.DB
	Repo      repo.Repo
	Now       func() time.Time
}

// Open opens and migrates the workspace database named by cfg.
func Open(ctx context.Context, workspace string, cfg *config.Config) (*App, error) {
	dbCfg := db.Config{Workspace: workspace, Path: cfg.Database.Path}
	conn, err := db.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate %s: %w", db.Path(dbCfg), err)
	}
	if v, err := migrate.Version(ctx, conn); err == nil {
		observability.Logger().Debug("database ready", "path", db.Path(dbCfg), "schema_version", v)
	}
	return &App{Config: cfg, Workspace: workspace, DB: conn, Repo: repo.Repo{DB: conn}, Now: time.Now}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

// Clients are the upstream APIs named in the config.
type Clients struct {
	Activities     *api.ActivitiesAPI
	PrisonerSearch *api.PrisonerSearchAPI
	Incentives     *api.IncentivesAPI
	Prison         *api.PrisonAPI
}

// NewClients builds one client per configured API.
func NewClients(cfg *config.Config) Clients {
	mk := func(name string, up config.Upstream) *api.Client {
		return api.New(name, up.URL, up.Token, up.Timeout)
	}
	return Clients{
		Activities:     api.NewActivitiesAPI(mk("activities", cfg.APIs.Activities)),
		PrisonerSearch: api.NewPrisonerSearchAPI(mk("prisoner-search", cfg.APIs.PrisonerSearch)),
		Incentives:     api.NewIncentivesAPI(mk("incentives", cfg.APIs.Incentives)),
		Prison:         api.NewPrisonAPI(mk("prison", cfg.APIs.Prison)),
	}
}

// Upstreams are the health components, keyed the way /health reports them.
func (c Clients) Upstreams() map[string]server.Pinger {
	return map[string]server.Pinger{
		"activitiesApi":     c.Activities.Client,
		"prisonerSearchApi": c.PrisonerSearch.Client,
		"incentivesApi":     c.Incentives.Client,
		"prisonApi":         c.Prison.Client,
	}
}

// Handler builds the web UI for the opened workspace.
func (a *App) Handler(version string) (http.Handler, error) {
	return a.HandlerWith(NewClients(a.Config), version)
}

// HandlerWith builds the web UI against the given clients.
func (a *App) HandlerWith(c Clients, version string) (http.Handler, error) {
	cfg := a.Config
	return server.New(server.Config{
		Activities:     c.Activities,
		PrisonerSearch: c.PrisonerSearch,
		Incentives:     c.Incentives,
		Locations:      c.Prison,
		Upstreams:      c.Upstreams(),
		Repo:           a.Repo,
		User: journey.User{
			Username:    cfg.User.Username,
			DisplayName: cfg.User.DisplayName,
			PrisonCode:  cfg.Service.PrisonCode,
		},
		Location:      cfg.Location(),
		Now:           a.Now,
		Limits:        cfg.Limits,
		SessionSecret: cfg.Session.Secret,
		IdleTimeout:   cfg.Session.IdleTimeout,
		SecureCookies: cfg.Server.SecureCookies,
		CSRFEnabled:   cfg.CSRF.Enabled,
		CSRFKey:       cfg.CSRF.Key,
		BaseURL:       cfg.Server.BaseURL,
		Version:       version,
	})
}

// PurgeSessions deletes sessions that have passed their idle expiry.
func (a *App) PurgeSessions(ctx context.Context) (int64, error) {
	n, err := a.Repo.PurgeExpiredSessions(ctx, a.Now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	if n > 0 {
		observability.WithFields("component", "sessions").Info("purged expired sessions", "count", n)
	}
	return n, nil
}

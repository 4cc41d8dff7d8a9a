package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"activities/internal/app"
	"activities/internal/config"
	"activities/internal/observability"
	"activities/internal/repo"
	"activities/internal/server"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "activities",
	Short: "Activities management web UI",
	Long: `Serves the prison activities and appointments journeys.
- Workspace: the directory holding activities.yml and the session database.
- Journeys: multi-step forms whose answers live in the server-side session until confirmed.
- Events: an audit row for every journey that reached an upstream API, view with 'activities events tail'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
		observability.SetOutput(os.Stderr, level)
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("ACTIVITIES")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().String("config", "", "config file (default <workspace>/activities.yml)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "info", "debug, info, warn or error")
	for _, name := range []string{"workspace", "config", "json", "log-level"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(sessionsCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(routesCmd())
}

// overrides maps viper keys (and so ACTIVITIES_* variables) onto config fields.
func overrides(cfg *config.Config) map[string]*string {
	return map[string]*string{
		"prison-code":           &cfg.Service.PrisonCode,
		"listen":                &cfg.Server.Listen,
		"base-url":              &cfg.Server.BaseURL,
		"username":              &cfg.User.Username,
		"session-secret":        &cfg.Session.Secret,
		"csrf-key":              &cfg.CSRF.Key,
		"activities-api-url":    &cfg.APIs.Activities.URL,
		"activities-api-token":  &cfg.APIs.Activities.Token,
		"prisoner-search-url":   &cfg.APIs.PrisonerSearch.URL,
		"prisoner-search-token": &cfg.APIs.PrisonerSearch.Token,
		"incentives-api-url":    &cfg.APIs.Incentives.URL,
		"incentives-api-token":  &cfg.APIs.Incentives.Token,
		"prison-api-url":        &cfg.APIs.Prison.URL,
		"prison-api-token":      &cfg.APIs.Prison.Token,
	}
}

func applyOverrides(cfg *config.Config) {
	for key, field := range overrides(cfg) {
		if v := viper.GetString(key); v != "" {
			*field = v
		}
	}
}

func configPath() string {
	if p := viper.GetString("config"); p != "" {
		return p
	}
	return config.Path(viper.GetString("workspace"))
}

// loadConfig reads the config file, applies environment overrides and validates the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Read(configPath())
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.Open(ctx, viper.GetString("workspace"), cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func serveCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if listen != "" {
					a.Config.Server.Listen = listen
				}
				handler, err := a.Handler(version)
				if err != nil {
					return err
				}
				log := observability.Logger()
				if spec := a.Config.Session.PurgeSchedule; spec != "" {
					c := cron.New()
					if _, err := c.AddFunc(spec, func() {
						if _, err := a.PurgeSessions(ctx); err != nil {
							log.Error("session purge failed", "error", err)
						}
					}); err != nil {
						return fmt.Errorf("session purge schedule: %w", err)
					}
					c.Start()
					defer c.Stop()
				}
				srv := &http.Server{Addr: a.Config.Server.Listen, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdown)
				}()
				log.Info("serving activities", "addr", a.Config.Server.Listen, "prison", a.Config.Service.PrisonCode, "version", version)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Create and inspect activities.yml",
		Long:  "Config holds the prison code, the upstream API addresses, session and csrf secrets and the form limits. ACTIVITIES_* environment variables override single values.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var prison string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.MkdirAll(viper.GetString("workspace"), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(prison)), 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&prison, "prison", "", "prison code")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	_ = cmd.MarkFlagRequired("prison")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective config with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			masked := cfg.Redacted()
			if viper.GetBool("json") {
				return printJSON(cmd, masked)
			}
			out, err := masked.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := loadConfig()
			if viper.GetBool("json") {
				return printJSON(cmd, map[string]any{"ok": err == nil, "error": errText(err)})
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "config OK")
			return nil
		},
	}
}

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and purge stored browser sessions",
	}
	cmd.AddCommand(sessionsListCmd())
	cmd.AddCommand(sessionsPurgeCmd())
	return cmd
}

func sessionsListCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recently used sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				rows, err := a.Repo.ListSessions(ctx, n)
				if err != nil {
					return err
				}
				now := a.Now()
				if viper.GetBool("json") {
					type item struct {
						ID        string `json:"id"`
						Username  string `json:"username"`
						UpdatedAt string `json:"updated_at"`
						ExpiresAt string `json:"expires_at"`
						Expired   bool   `json:"expired"`
						Bytes     int    `json:"bytes"`
					}
					items := make([]item, 0, len(rows))
					for _, s := range rows {
						items = append(items, item{s.ID, s.Username, s.UpdatedAt, s.ExpiresAt, s.Expired(now), len(s.Body)})
					}
					return printJSON(cmd, items)
				}
				tw := newTable(cmd, table.Row{"ID", "User", "Updated", "Expires", "Expired", "Bytes"})
				for _, s := range rows {
					tw.AppendRow(table.Row{s.ID, s.Username, s.UpdatedAt, s.ExpiresAt, s.Expired(now), len(s.Body)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 50, "number of sessions")
	return cmd
}

func sessionsPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete sessions past their idle expiry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				n, err := a.PurgeSessions(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd, map[string]int64{"purged": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d sessions\n", n)
				return nil
			})
		},
	}
}

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Audit events",
		Long:  "One event per journey that changed something upstream: who, which prison, what and when.",
	}
	cmd.AddCommand(eventsTailCmd())
	return cmd
}

func eventsTailCmd() *cobra.Command {
	var n int
	var cursor int64
	var evtType, entityKind string
	var follow bool
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the newest events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				evts, err := a.Repo.LatestEvents(ctx, n, cursor, evtType, entityKind)
				if err != nil {
					return err
				}
				if err := printEvents(cmd, evts); err != nil {
					return err
				}
				if !follow {
					return nil
				}
				last, err := a.Repo.LatestEventID(ctx)
				if err != nil {
					return err
				}
				tick := time.NewTicker(interval)
				defer tick.Stop()
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-tick.C:
					}
					evts, err := a.Repo.EventsAfter(ctx, 100, last)
					if err != nil {
						return err
					}
					if len(evts) == 0 {
						continue
					}
					last = evts[len(evts)-1].ID
					if err := printEvents(cmd, evts); err != nil {
						return err
					}
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new events")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "poll interval with --follow")
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().Int64Var(&cursor, "before", 0, "only events older than this id")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind filter")
	return cmd
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List every page and health route",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				h, err := a.Handler(version)
				if err != nil {
					return err
				}
				routes, err := server.Routes(h)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd, routes)
				}
				tw := newTable(cmd, table.Row{"Method", "Pattern"})
				for _, r := range routes {
					tw.AppendRow(table.Row{r.Method, r.Pattern})
				}
				tw.Render()
				return nil
			})
		},
	}
}

// --- helpers ---

func newTable(cmd *cobra.Command, header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.AppendHeader(header)
	return tw
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printEvents(cmd *cobra.Command, evts []repo.Event) error {
	if viper.GetBool("json") {
		return printJSON(cmd, evts)
	}
	tw := newTable(cmd, table.Row{"ID", "Time", "Type", "Prison", "Entity", "Actor", "Payload"})
	for _, e := range evts {
		tw.AppendRow(table.Row{e.ID, e.TS, e.Type, e.PrisonCode, e.EntityKind + " " + e.EntityID, e.ActorID, e.Payload})
	}
	tw.Render()
	return nil
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

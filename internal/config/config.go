package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config models activities.yml.
type Config struct {
	Service struct {
		PrisonCode string `yaml:"prison_code"`
		Timezone   string `yaml:"timezone"`
	} `yaml:"service"`
	Server struct {
		Listen        string `yaml:"listen"`
		BaseURL       string `yaml:"base_url"`
		SecureCookies bool   `yaml:"secure_cookies"`
	} `yaml:"server"`
	User struct {
		Username    string `yaml:"username"`
		DisplayName string `yaml:"display_name"`
	} `yaml:"user"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Session struct {
		Secret        string        `yaml:"secret"`
		IdleTimeout   time.Duration `yaml:"idle_timeout"`
		PurgeSchedule string        `yaml:"purge_schedule"`
	} `yaml:"session"`
	CSRF struct {
		Enabled bool   `yaml:"enabled"`
		Key     string `yaml:"key"`
	} `yaml:"csrf"`
	APIs struct {
		Activities     Upstream `yaml:"activities"`
		PrisonerSearch Upstream `yaml:"prisoner_search"`
		Incentives     Upstream `yaml:"incentives"`
		Prison         Upstream `yaml:"prison"`
	} `yaml:"apis"`
	Limits Limits `yaml:"limits"`
}

// Upstream is one external REST API.
type Upstream struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// Limits are business limits enforced by the forms.
type Limits struct {
	MaxAppointmentInstances int `yaml:"max_appointment_instances"`
	MaxPayRatePence         int `yaml:"max_pay_rate_pence"`
	MaxCapacity             int `yaml:"max_capacity"`
	UnlockListPastDays      int `yaml:"unlock_list_past_days"`
	UnlockListFutureDays    int `yaml:"unlock_list_future_days"`
	WaitlistRequestDays     int `yaml:"waitlist_request_days"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	cfg, err := Read(Path(workspace))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read overlays the file at path on the defaults without validating, so callers can
// apply overrides first.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with activities config init", path)
		}
		return nil, err
	}
	cfg := Default("")
	if err := cfg.Unmarshal(data); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Service.PrisonCode == "" {
		return fmt.Errorf("config.service.prison_code is required")
	}
	if _, err := time.LoadLocation(c.Service.Timezone); err != nil {
		return fmt.Errorf("config.service.timezone %q: %w", c.Service.Timezone, err)
	}
	if c.Server.Listen == "" {
		return fmt.Errorf("config.server.listen is required")
	}
	if c.User.Username == "" {
		return fmt.Errorf("config.user.username is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("config.database.path is required")
	}
	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("config.session.secret must be at least 32 characters")
	}
	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("config.session.idle_timeout must be positive")
	}
	if c.Session.PurgeSchedule != "" {
		if _, err := cron.ParseStandard(c.Session.PurgeSchedule); err != nil {
			return fmt.Errorf("config.session.purge_schedule: %w", err)
		}
	}
	if c.CSRF.Enabled && len(c.CSRF.Key) != 32 {
		return fmt.Errorf("config.csrf.key must be exactly 32 bytes when csrf is enabled")
	}
	for name, up := range c.upstreams() {
		if up.URL == "" {
			return fmt.Errorf("config.apis.%s.url is required", name)
		}
		u, err := url.Parse(up.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config.apis.%s.url %q is not an absolute url", name, up.URL)
		}
		if up.Timeout < 0 {
			return fmt.Errorf("config.apis.%s.timeout must not be negative", name)
		}
	}
	l := c.Limits
	if l.MaxAppointmentInstances <= 0 || l.MaxPayRatePence <= 0 || l.MaxCapacity <= 0 {
		return fmt.Errorf("config.limits values must be positive")
	}
	if l.UnlockListPastDays < 0 || l.UnlockListFutureDays < 0 || l.WaitlistRequestDays < 0 {
		return fmt.Errorf("config.limits date windows must not be negative")
	}
	return nil
}

func (c *Config) upstreams() map[string]Upstream {
	return map[string]Upstream{
		"activities":      c.APIs.Activities,
		"prisoner_search": c.APIs.PrisonerSearch,
		"incentives":      c.APIs.Incentives,
		"prison":          c.APIs.Prison,
	}
}

// Location returns the service time zone; "today" is always evaluated in it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Service.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "activities.yml")
}

// GenerateDefault returns default config YAML for a prison.
func GenerateDefault(prisonCode string) string {
	return fmt.Sprintf(defaultTemplate, prisonCode)
}

// Default returns the default Config struct for a prison.
func Default(prisonCode string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(prisonCode))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Values missing from data
// keep their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default("")
	if err := cfg.Unmarshal(data); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Unmarshal overlays YAML data on c without validating it.
func (c *Config) Unmarshal(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("invalid config yaml: %w", err)
	}
	return nil
}

// Redacted returns a copy of c with secrets and tokens masked.
func (c *Config) Redacted() *Config {
	out := *c
	mask := func(s *string) {
		if *s != "" {
			*s = "********"
		}
	}
	mask(&out.Session.Secret)
	mask(&out.CSRF.Key)
	mask(&out.APIs.Activities.Token)
	mask(&out.APIs.PrisonerSearch.Token)
	mask(&out.APIs.Incentives.Token)
	mask(&out.APIs.Prison.Token)
	return &out
}

// Marshal renders cfg as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

const defaultTemplate = `service:
  prison_code: "%s"
  timezone: Europe/London

server:
  listen: 127.0.0.1:3000
  base_url: http://localhost:3000
  secure_cookies: false

user:
  username: ACTIVITIES_USER
  display_name: Activities User

database:
  path: activities.db

session:
  secret: change-me-change-me-change-me-change-me
  idle_timeout: 2h
  purge_schedule: "*/15 * * * *"

csrf:
  enabled: true
  key: change-me-change-me-change-me-32

apis:
  activities:
    url: http://localhost:8080
    timeout: 10s
  prisoner_search:
    url: http://localhost:8081
    timeout: 10s
  incentives:
    url: http://localhost:8082
    timeout: 10s
  prison:
    url: http://localhost:8083
    timeout: 10s

limits:
  max_appointment_instances: 20000
  max_pay_rate_pence: 400
  max_capacity: 999
  unlock_list_past_days: 14
  unlock_list_future_days: 60
  waitlist_request_days: 30
`

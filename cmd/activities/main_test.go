package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"activities/internal/config"
)

func TestLoadConfigAppliesOverrides(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "activities.yml"), []byte(config.GenerateDefault("MDI")), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	viper.Set("workspace", dir)
	viper.Set("activities-api-url", "https://activities-api.test")
	viper.Set("session-secret", strings.Repeat("s", 40))

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIs.Activities.URL != "https://activities-api.test" || cfg.Session.Secret != strings.Repeat("s", 40) {
		t.Fatalf("overrides not applied: %+v", cfg.APIs.Activities)
	}
	if cfg.Service.PrisonCode != "MDI" {
		t.Fatalf("file value lost: %s", cfg.Service.PrisonCode)
	}
}

func TestLoadConfigValidatesAfterOverrides(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "activities.yml"), []byte(config.GenerateDefault("MDI")), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	viper.Set("workspace", dir)
	viper.Set("session-secret", "short")
	if _, err := loadConfig(); err == nil || !strings.Contains(err.Error(), "session.secret") {
		t.Fatalf("expected secret error, got %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("workspace", t.TempDir())
	if _, err := loadConfig(); err == nil || !strings.Contains(err.Error(), "config init") {
		t.Fatalf("expected hint, got %v", err)
	}
}

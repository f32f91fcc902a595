// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if !cfg.Runtime.RedirectOnMissingDesktop {
		t.Error("desktop redirect-on-missing should default on")
	}
	if cfg.Runtime.RedirectOnMissingWeb {
		t.Error("web redirect-on-missing should default off")
	}
	if !cfg.Chat.Streaming {
		t.Error("streaming should default on")
	}
}

func TestLoadFromPath_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
default_agent = "helper"

[runtime]
desktop_build = true
redirect_on_missing_web = true

[remote]
api_key = "dk-123"
timeout_secs = 5
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.DefaultAgent != "helper" {
		t.Errorf("DefaultAgent = %q", cfg.DefaultAgent)
	}
	if !cfg.Runtime.DesktopBuild || !cfg.Runtime.RedirectOnMissingWeb {
		t.Errorf("runtime = %+v", cfg.Runtime)
	}
	if cfg.Remote.APIKey != "dk-123" || cfg.Remote.TimeoutSecs != 5 {
		t.Errorf("remote = %+v", cfg.Remote)
	}
	// Unset fields fall back to defaults.
	if cfg.Remote.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want default 3", cfg.Remote.MaxRetries)
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("Theme = %q, want default dark", cfg.UI.Theme)
	}
}

func TestLoadFromPath_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"default_agent":"helper","ui":{"theme":"light"}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.DefaultAgent != "helper" || cfg.UI.Theme != "light" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadFromPath_InvalidTheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[ui]\ntheme = \"neon\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected validation error for invalid theme")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DEETING_API_KEY", "dk-env")
	t.Setenv("DEETING_DESKTOP", "true")
	t.Setenv("DEETING_THEME", "light")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Remote.APIKey != "dk-env" {
		t.Errorf("APIKey = %q", cfg.Remote.APIKey)
	}
	if !cfg.Runtime.DesktopBuild {
		t.Error("DesktopBuild should be true")
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
}

func TestStringRedactsAPIKey(t *testing.T) {
	cfg := Default()
	cfg.Remote.APIKey = "dk-secret"

	s := cfg.String()
	if strings.Contains(s, "dk-secret") {
		t.Error("String must not expose the API key")
	}
	if !strings.Contains(s, "[REDACTED]") {
		t.Error("String should mark the key as redacted")
	}
	// The original is untouched.
	if cfg.Remote.APIKey != "dk-secret" {
		t.Error("String must not mutate the config")
	}
}

func TestSaveTOMLRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := Default()
	cfg.DefaultAgent = "helper"
	path := filepath.Join(home, ".deeting", "config.toml")
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %o, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.DefaultAgent != "helper" {
		t.Errorf("round-trip DefaultAgent = %q", loaded.DefaultAgent)
	}
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("default_agent = \"one\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	loaded := make(chan *Config, 1)
	w, err := Watch(path, func(cfg *Config) {
		select {
		case loaded <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("default_agent = \"two\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-loaded:
		if cfg.DefaultAgent != "two" {
			t.Errorf("reloaded DefaultAgent = %q, want two", cfg.DefaultAgent)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

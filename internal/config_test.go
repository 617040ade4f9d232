package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgconfig "github.com/othalahq/othala/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestSettingsPath_DerivedFromVault(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Vault.Path = "/data/vault"
	want := filepath.Join("/data/vault", ".othala", "settings.yaml")
	if got := cfg.SettingsPath(); got != want {
		t.Errorf("SettingsPath() = %q, want %q", got, want)
	}

	cfg.Settings.Path = "/etc/othala/settings.yaml"
	if got := cfg.SettingsPath(); got != "/etc/othala/settings.yaml" {
		t.Errorf("explicit SettingsPath() = %q", got)
	}
}

func TestLoadConfig_YAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("OTHALA_TEST_TOKEN", "sekrit")

	yamlBody := `
app:
  log_level: -4
  http:
    port: 9090
vault:
  path: ./photos
scan:
  list_markers: true
auth:
  mode: token
  token: ${OTHALA_TEST_TOKEN}
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.HTTP.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.App.HTTP.Port)
	}
	if cfg.App.HTTP.Address() != ":9090" {
		t.Errorf("address = %q", cfg.App.HTTP.Address())
	}
	if cfg.Vault.Path != "./photos" {
		t.Errorf("vault path = %q", cfg.Vault.Path)
	}
	// Fields absent from the file keep their defaults.
	if cfg.SQLite.Path != "./othala.db" {
		t.Errorf("sqlite path = %q", cfg.SQLite.Path)
	}
	if !cfg.Scan.ListMarkers {
		t.Error("list_markers not loaded")
	}
	if cfg.Auth.Token != "sekrit" {
		t.Errorf("token = %q, env expansion failed", cfg.Auth.Token)
	}
	if !cfg.Auth.AuthEnabled() {
		t.Error("auth should be enabled")
	}
}

func TestLoadConfig_InvalidRejected(t *testing.T) {
	yamlBody := `
app:
  http:
    port: 70000
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err == nil {
		t.Fatal("out-of-range port should fail validation")
	}
}

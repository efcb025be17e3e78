package config

import (
	"os"
	"testing"
)

// writeTempConfig creates a minimal configuration file required for LoadConfig
// and returns its path.
func writeTempConfig(t *testing.T) string {
	t.Helper()
	content := `unifex:
  name: "TestApp"
  version: "1.0"
http:
  timeout: 10s
retry:
  max_attempts: 2
  delay: 100ms
exchanges:
  toobit:
    requests_per_second: 5
    burst_size: 2
  hollaex:
    sandbox: true
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Unifex.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Unifex.Name)
	}
	if cfg.Exchanges["toobit"].RequestsPerSecond != 5 {
		t.Errorf("unexpected rate limit: %v", cfg.Exchanges["toobit"].RequestsPerSecond)
	}
	if !cfg.Exchanges["hollaex"].Sandbox {
		t.Error("expected hollaex sandbox to be enabled")
	}
}

func TestLoadConfigCredentialOverride(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	t.Setenv("TOOBIT_API_KEY", "env-key")
	t.Setenv("TOOBIT_API_SECRET", " env-secret ")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Exchanges["toobit"].APIKey != "env-key" {
		t.Errorf("unexpected api key: %s", cfg.Exchanges["toobit"].APIKey)
	}
	if cfg.Exchanges["toobit"].Secret != "env-secret" {
		t.Errorf("secret not trimmed: %q", cfg.Exchanges["toobit"].Secret)
	}
}

func TestLoadConfigRejectsMissingName(t *testing.T) {
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString("unifex:\n  version: \"1.0\"\n"); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()

	if _, err := LoadConfig(f.Name()); err == nil {
		t.Fatal("expected validation error for missing name")
	}
}

func TestAppEnvironmentAliases(t *testing.T) {
	t.Setenv(appEnvVar, "prod")
	if env := AppEnvironment(); env != EnvironmentProduction {
		t.Errorf("unexpected environment: %s", env)
	}
	t.Setenv(appEnvVar, "")
	if env := AppEnvironment(); env != EnvironmentDevelopment {
		t.Errorf("unexpected default environment: %s", env)
	}
}

func TestResolveEnvSpecificPath(t *testing.T) {
	paths := map[string]string{
		EnvironmentProduction: "config/config.production.yml",
	}

	t.Setenv(appEnvVar, "production")
	if got := resolveEnvSpecificPath("", "config/config.yml", paths); got != "config/config.production.yml" {
		t.Errorf("expected production config, got %s", got)
	}
	if got := resolveEnvSpecificPath("custom.yml", "config/config.yml", paths); got != "custom.yml" {
		t.Errorf("explicit path must win, got %s", got)
	}

	t.Setenv(appEnvVar, "development")
	if got := resolveEnvSpecificPath("", "config/config.yml", paths); got != "config/config.yml" {
		t.Errorf("expected default config, got %s", got)
	}
}

// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"

database:
  path: "./livechat.db"

auth:
  jwt_secret: "super-secret"

presence:
  ttl: "30s"

assistant:
  api_key: "test-key"
  model: "gemini-pro"
  timeout: "30s"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("HTTPAddr = %q, want 0.0.0.0:8080", cfg.Server.HTTPAddr)
	}
	if cfg.Database.Path != "./livechat.db" {
		t.Errorf("Database.Path = %q, want ./livechat.db", cfg.Database.Path)
	}
	if cfg.Auth.JWTSecret != "super-secret" {
		t.Errorf("JWTSecret = %q, want super-secret", cfg.Auth.JWTSecret)
	}
	if cfg.Presence.TTL != 30*time.Second {
		t.Errorf("Presence.TTL = %v, want 30s", cfg.Presence.TTL)
	}
	if cfg.Assistant.Timeout != 30*time.Second {
		t.Errorf("Assistant.Timeout = %v, want 30s", cfg.Assistant.Timeout)
	}
	if cfg.Assistant.Model != "gemini-pro" {
		t.Errorf("Assistant.Model = %q, want gemini-pro", cfg.Assistant.Model)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("LIVECHAT_TEST_SECRET", "secret-from-env")
	t.Setenv("LIVECHAT_TEST_API_KEY", "key-from-env")

	configPath := writeConfig(t, `
server:
  http_addr: ":8080"

database:
  path: "./livechat.db"

auth:
  jwt_secret: "${LIVECHAT_TEST_SECRET}"

assistant:
  api_key: "${LIVECHAT_TEST_API_KEY}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Auth.JWTSecret != "secret-from-env" {
		t.Errorf("JWTSecret = %q, want secret-from-env", cfg.Auth.JWTSecret)
	}
	if cfg.Assistant.APIKey != "key-from-env" {
		t.Errorf("Assistant.APIKey = %q, want key-from-env", cfg.Assistant.APIKey)
	}
}

func TestLoad_UnsetEnvVarBecomesEmpty(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: ":8080"

database:
  path: "./livechat.db"

auth:
  jwt_secret: "${LIVECHAT_DEFINITELY_UNSET_VAR}"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected validation error for empty jwt_secret")
	}
	if !strings.Contains(err.Error(), "jwt_secret") {
		t.Errorf("error = %v, want mention of jwt_secret", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "server: [this is: not valid")
	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: ":8080"

database:
  path: "./livechat.db"

auth:
  jwt_secret: "secret"

presence:
  ttl: "soon"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "presence.ttl") {
		t.Errorf("error = %v, want mention of presence.ttl", err)
	}
}

func TestValidate_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "missing http addr",
			cfg:  Config{Database: DatabaseConfig{Path: "./db"}, Auth: AuthConfig{JWTSecret: "s"}},
			want: "http_addr",
		},
		{
			name: "missing database path",
			cfg:  Config{Server: ServerConfig{HTTPAddr: ":8080"}, Auth: AuthConfig{JWTSecret: "s"}},
			want: "database.path",
		},
		{
			name: "missing jwt secret",
			cfg:  Config{Server: ServerConfig{HTTPAddr: ":8080"}, Database: DatabaseConfig{Path: "./db"}},
			want: "jwt_secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

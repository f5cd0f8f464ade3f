package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg != Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if cfg.APIURL != "http://localhost:8000/api" || cfg.PollInterval != 30*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		EnvAPIURL:        "https://tools.example.com/api",
		EnvAddr:          "127.0.0.1:9000",
		EnvDB:            "/var/lib/toolshare.db",
		EnvLog:           "/var/log/toolshare.log",
		EnvPollInterval:  "1m",
		EnvIdleTimeout:   "90m",
		EnvSecureCookies: "true",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	expected := Config{
		APIURL:        "https://tools.example.com/api",
		Addr:          "127.0.0.1:9000",
		DBPath:        "/var/lib/toolshare.db",
		LogPath:       "/var/log/toolshare.log",
		PollInterval:  time.Minute,
		SecureCookies: true,
		IdleTimeout:   90 * time.Minute,
	}
	if cfg != expected {
		t.Errorf("got %+v, want %+v", cfg, expected)
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	tests := []map[string]string{
		{EnvPollInterval: "soon"},
		{EnvPollInterval: "0s"},
		{EnvPollInterval: "-5s"},
		{EnvIdleTimeout: "0"},
		{EnvSecureCookies: "maybe"},
	}
	for _, env := range tests {
		if _, err := FromEnv(envMap(env)); err == nil {
			t.Errorf("expected error for %v", env)
		}
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TOOLSHARE_ADDR=:4567\nTOOLSHARE_POLL_INTERVAL=45s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Registered so the variables godotenv sets are restored afterwards.
	t.Setenv(EnvAddr, "")
	os.Unsetenv(EnvAddr)
	t.Setenv(EnvPollInterval, "")
	os.Unsetenv(EnvPollInterval)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":4567" || cfg.PollInterval != 45*time.Second {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoadEnvironmentWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	os.WriteFile(path, []byte("TOOLSHARE_ADDR=:4567\n"), 0o644)
	t.Setenv(EnvAddr, ":1111")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":1111" {
		t.Errorf("expected environment to override .env, got %q", cfg.Addr)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("expected missing .env to be ignored, got %v", err)
	}
}

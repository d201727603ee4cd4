package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv(EnvHistoryDSN, "")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Check.DurationSec != nil || cfg.History.Driver != nil || cfg.Serve.Addr != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigDecodesTables(t *testing.T) {
	t.Setenv(EnvHistoryDSN, "")
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[check]
duration = 90
hesitation-ms = 1500
passage = "pinned"

[history]
driver = "postgres"
dsn = "postgres://localhost/stress"
curve-window = 5

[serve]
addr = ":9090"
retention = 120
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Check.DurationSec == nil || *cfg.Check.DurationSec != 90 {
		t.Fatalf("unexpected duration: %+v", cfg.Check)
	}
	if cfg.Check.HesitationMs == nil || *cfg.Check.HesitationMs != 1500 {
		t.Fatalf("unexpected hesitation: %+v", cfg.Check)
	}
	if cfg.Check.PassagesFile != nil {
		t.Fatalf("expected unset passages file")
	}
	if cfg.History.Driver == nil || *cfg.History.Driver != "postgres" {
		t.Fatalf("unexpected driver: %+v", cfg.History)
	}
	if cfg.Serve.RetentionSec == nil || *cfg.Serve.RetentionSec != 120 {
		t.Fatalf("unexpected retention: %+v", cfg.Serve)
	}
}

func TestLoadConfigEnvOverridesDSN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[history]\ndsn = \"from-file\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvHistoryDSN, "from-env")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.History.DSN == nil || *cfg.History.DSN != "from-env" {
		t.Fatalf("expected env dsn, got %v", cfg.History.DSN)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[check\nduration = "), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "decode") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestDefaultPathsUseXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "stresstype", "config.toml") {
		t.Fatalf("unexpected config path %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "stresstype", "stresstype.db") {
		t.Fatalf("unexpected db path %s", got)
	}
	if got := DefaultPassagesPath(); got != filepath.Join("/cfg", "stresstype", "passages.txt") {
		t.Fatalf("unexpected passages path %s", got)
	}
}

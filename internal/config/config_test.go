package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"notigate/pkg/logx"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadJSONWithDefaults(t *testing.T) {
	path := write(t, "config.json", `{
		"logging": {"level": "", "console": true, "file": {"enabled": false, "path": ""}}
	}`)

	m := NewManager(path, logx.Nop())
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:8080" {
		t.Fatalf("default addr = %q", cfg.Server.Addr)
	}
	if cfg.Logging.Level != "INFO" {
		t.Fatalf("default level = %q", cfg.Logging.Level)
	}
	if m.Get() != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestLoadYAML(t *testing.T) {
	path := write(t, "config.yaml", `
server:
  addr: "0.0.0.0:9090"
  rate_per_sec: 50
logging:
  level: DEBUG
  console: true
  file:
    enabled: false
    path: ""
rules:
  max_per_hour: 5
  quiet_hours:
    start: 23
`)

	m := NewManager(path, logx.Nop())
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:9090" || cfg.Server.RatePerSec != 50 {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if len(cfg.Rules) == 0 {
		t.Fatal("rules section should be captured raw")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := write(t, "config.json", `{"serverr": {"addr": "x"}}`)
	m := NewManager(path, logx.Nop())
	if _, err := m.Load(); err == nil {
		t.Fatal("expected unknown-field rejection")
	}
}

func TestLoadRejectsTrailingData(t *testing.T) {
	path := write(t, "config.json", `{"logging":{"level":"INFO","console":true,"file":{"enabled":false,"path":""}}} {"extra": 1}`)
	m := NewManager(path, logx.Nop())
	if _, err := m.Load(); err == nil {
		t.Fatal("expected trailing-data rejection")
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	d, err := ParseDurationOrDefault("x", "", 5*time.Minute)
	if err != nil || d != 5*time.Minute {
		t.Fatalf("empty: %v %v", d, err)
	}
	d, err = ParseDurationOrDefault("x", "90s", 0)
	if err != nil || d != 90*time.Second {
		t.Fatalf("parse: %v %v", d, err)
	}
	if _, err := ParseDurationOrDefault("x", "soon", 0); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := ParseDurationOrDefault("x", "-1s", 0); err == nil {
		t.Fatal("expected negative rejection")
	}
}

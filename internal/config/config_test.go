package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
telegram:
  token: "123:abc"
  admin_chat_id: 42
logging:
  level: info
  console: true
  file:
    enabled: false
    path: ""
  telegram:
    enabled: true
    min_level: warn
    rate_per_sec: 1
database:
  path: ./data/bot.db
  encryption_key: "%s"
elearn:
  base_url: https://learn.example.edu
  email_domain: example.edu
watcher:
  enabled: true
  interval_minutes: 30
`

func writeSample(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func testKey() string {
	return base64.StdEncoding.EncodeToString(make([]byte, 32))
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeSample(t, "config.yaml", strings.ReplaceAll(sampleYAML, "%s", testKey()))

	m := NewManager(path)
	m.SetValidator(Validate)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.AdminChatID != 42 {
		t.Fatalf("admin_chat_id = %d", cfg.Telegram.AdminChatID)
	}
	if cfg.Watcher.MinIntervalMinutes != DefaultMinIntervalMinutes {
		t.Fatalf("min interval default not applied: %d", cfg.Watcher.MinIntervalMinutes)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get did not return the committed config")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	content := strings.ReplaceAll(sampleYAML, "%s", testKey()) + "\nbogus_section:\n  x: 1\n"
	path := writeSample(t, "config.yaml", content)

	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestValidateIntervalFloor(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	cfg.Telegram.Token = "t"
	cfg.Telegram.AdminChatID = 1
	cfg.Elearn.BaseURL = "https://x"
	cfg.Database.Path = "db"
	cfg.Database.EncryptionKey = testKey()
	cfg.Watcher.IntervalMinutes = 3
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error: interval below floor")
	}
	cfg.Watcher.IntervalMinutes = 5
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestTimeoutOrDefault(t *testing.T) {
	t.Parallel()
	if d, err := TimeoutOrDefault("x", "", 10*time.Second); err != nil || d != 10*time.Second {
		t.Fatalf("empty field: d = %s err = %v", d, err)
	}
	if d, err := TimeoutOrDefault("x", "3m", 10*time.Second); err != nil || d != 3*time.Minute {
		t.Fatalf("set field: d = %s err = %v", d, err)
	}
	if _, err := TimeoutOrDefault("x", "soon", 10*time.Second); err == nil {
		t.Fatal("expected error for malformed duration")
	}
	if _, err := TimeoutOrDefault("x", "-5s", 10*time.Second); err == nil {
		t.Fatal("expected error for negative duration")
	}
}

func TestValidateEncryptionKey(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	cfg.Telegram.Token = "t"
	cfg.Telegram.AdminChatID = 1
	cfg.Elearn.BaseURL = "https://x"
	cfg.Database.Path = "db"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for missing key")
	}
	cfg.Database.EncryptionKey = "not-base64!!"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for bad key encoding")
	}
	cfg.Database.EncryptionKey = base64.StdEncoding.EncodeToString(make([]byte, 16))
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for short key")
	}
}

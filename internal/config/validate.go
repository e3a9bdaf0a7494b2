package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultIntervalMinutes    = 30
	DefaultMinIntervalMinutes = 5
)

// Validate checks invariants and fills defaults in place.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if cfg.Telegram.AdminChatID == 0 {
		return errors.New("telegram.admin_chat_id is required")
	}
	if strings.TrimSpace(cfg.Elearn.BaseURL) == "" {
		return errors.New("elearn.base_url is required")
	}
	if strings.TrimSpace(cfg.Database.Path) == "" {
		return errors.New("database.path is required")
	}
	key := strings.TrimSpace(cfg.Database.EncryptionKey)
	if key == "" {
		return errors.New("database.encryption_key is required")
	}
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return fmt.Errorf("database.encryption_key: not base64: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("database.encryption_key: need 32 bytes, got %d", len(raw))
	}

	if cfg.Watcher.MinIntervalMinutes <= 0 {
		cfg.Watcher.MinIntervalMinutes = DefaultMinIntervalMinutes
	}
	if cfg.Watcher.IntervalMinutes <= 0 {
		cfg.Watcher.IntervalMinutes = DefaultIntervalMinutes
	}
	if cfg.Watcher.IntervalMinutes < cfg.Watcher.MinIntervalMinutes {
		return fmt.Errorf("watcher.interval_minutes %d below floor %d",
			cfg.Watcher.IntervalMinutes, cfg.Watcher.MinIntervalMinutes)
	}

	for _, d := range []struct{ path, raw string }{
		{"telegram.poll_timeout", cfg.Telegram.PollTimeout},
		{"database.busy_timeout", cfg.Database.BusyTimeout},
		{"elearn.http_timeout", cfg.Elearn.HTTPTimeout},
		{"watcher.fetch_timeout", cfg.Watcher.FetchTimeout},
		{"maintenance.snapshot_max_age", cfg.Maintenance.SnapshotMaxAge},
	} {
		if _, err := parseTimeout(d.path, d.raw); err != nil {
			return err
		}
	}
	return nil
}

// Timeout fields are optional duration strings ("30s", "3m"). Empty means
// the component's built-in default applies; negative is always an error.
func parseTimeout(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// TimeoutOrDefault resolves an optional timeout field, substituting def when
// the field is empty.
func TimeoutOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := parseTimeout(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

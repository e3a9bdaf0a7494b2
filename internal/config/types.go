package config

// Config is the whole bot configuration. YAML and JSON are both accepted;
// unknown keys are rejected so typos surface at load time instead of being
// silently ignored.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Database DatabaseConfig `json:"database"`
	Elearn   ElearnConfig   `json:"elearn"`
	Watcher  WatcherConfig  `json:"watcher"`

	Maintenance MaintenanceConfig `json:"maintenance,omitempty"`
}

type TelegramConfig struct {
	Token       string `json:"token"`
	AdminChatID int64  `json:"admin_chat_id"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingTelegram mirrors log records at or above MinLevel to the admin chat.
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
	// BusyTimeout is a Go duration string (sqlite busy_timeout pragma).
	BusyTimeout string `json:"busy_timeout,omitempty"`
	// EncryptionKey protects stored credentials (base64, 32 bytes decoded).
	EncryptionKey string `json:"encryption_key"`
}

type ElearnConfig struct {
	// BaseURL is the root of the e-learning site, e.g. "https://learn.example.edu".
	BaseURL string `json:"base_url"`
	// EmailDomain restricts subscriber email addresses, e.g. "example.edu".
	EmailDomain string `json:"email_domain"`
	// SnapshotDir holds rendered activity snapshots attached to notifications.
	SnapshotDir string `json:"snapshot_dir,omitempty"`
	// HTTPTimeout is a Go duration string for individual HTTP requests.
	HTTPTimeout string `json:"http_timeout,omitempty"`
}

type WatcherConfig struct {
	Enabled bool `json:"enabled"`
	// IntervalMinutes is the initial polling interval.
	IntervalMinutes int `json:"interval_minutes"`
	// MinIntervalMinutes is the floor enforced on operator interval changes.
	MinIntervalMinutes int `json:"min_interval_minutes,omitempty"`
	// FetchTimeout bounds one subscriber's fetch+diff pass (Go duration string).
	FetchTimeout string `json:"fetch_timeout,omitempty"`
}

type MaintenanceConfig struct {
	Enabled bool `json:"enabled"`
	// PruneSpec is a cron spec for snapshot pruning (default "0 3 * * *").
	PruneSpec string `json:"prune_spec,omitempty"`
	// ReportSpec is a cron spec for the daily operator report (default "0 8 * * *").
	ReportSpec string `json:"report_spec,omitempty"`
	// SnapshotMaxAge prunes snapshot files older than this (Go duration string).
	SnapshotMaxAge string `json:"snapshot_max_age,omitempty"`
}

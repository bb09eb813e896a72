package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the root of the admind configuration file.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1h").
type Config struct {
	Listen    string          `json:"listen"`
	Telegram  TelegramConfig  `json:"telegram"`
	Auth      AuthConfig      `json:"auth"`
	Storage   StorageConfig   `json:"storage"`
	Logging   LoggingConfig   `json:"logging"`
	Broadcast BroadcastConfig `json:"broadcast,omitempty"`
	Janitor   JanitorConfig   `json:"janitor,omitempty"`
	Pprof     PprofConfig     `json:"pprof,omitempty"`
}

type TelegramConfig struct {
	// Token may be left empty in the file and supplied via the
	// TELEGRAM_BOT_TOKEN environment variable instead.
	Token string `json:"token,omitempty"`
	// SendTimeout bounds a single sendMessage call. Default "8s".
	SendTimeout string `json:"send_timeout,omitempty"`
}

type AuthConfig struct {
	Username string `json:"username"`
	// Password may be left empty in the file and supplied via the
	// ADMIN_PASSWORD environment variable instead.
	Password string `json:"password,omitempty"`
	// SessionTTL is how long a login cookie stays valid. Default "1h".
	SessionTTL string `json:"session_ttl,omitempty"`
}

type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// BroadcastConfig tunes the dispatch loop. Sends stay strictly
// sequential; RatePerSec only paces them.
type BroadcastConfig struct {
	RatePerSec       int `json:"rate_per_sec,omitempty"`       // default 10
	ActiveWindowDays int `json:"active_window_days,omitempty"` // default 3
	RecentWindowDays int `json:"recent_window_days,omitempty"` // default 30
}

// JanitorConfig controls background housekeeping.
type JanitorConfig struct {
	Enabled bool `json:"enabled"`
	// Schedule is a cron expression. Default "0 3 * * *" (03:00 daily).
	Schedule string `json:"schedule,omitempty"`
	// HistoryRetentionDays prunes message-log rows older than this.
	// 0 keeps everything.
	HistoryRetentionDays int `json:"history_retention_days,omitempty"`
}

// PprofConfig controls the optional pprof HTTP server.
//
// Security note: prefer binding to localhost (e.g. "127.0.0.1:6060").
type PprofConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:6060"
}

// ApplyEnv fills secrets from the environment when the file left them
// blank. Environment always wins over an empty field, never over an
// explicit one.
func (c *Config) ApplyEnv() {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		c.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if strings.TrimSpace(c.Auth.Password) == "" {
		c.Auth.Password = os.Getenv("ADMIN_PASSWORD")
	}
}

// Validate rejects configurations admind cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return errors.New("listen address is required")
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required (or set TELEGRAM_BOT_TOKEN)")
	}
	if strings.TrimSpace(c.Auth.Username) == "" || strings.TrimSpace(c.Auth.Password) == "" {
		return errors.New("auth.username and auth.password are required (or set ADMIN_PASSWORD)")
	}
	driver := strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if driver != "" && driver != "sqlite" && driver != "sqlite3" {
		return fmt.Errorf("unknown storage driver: %s", c.Storage.Driver)
	}
	for _, f := range []struct {
		path, raw string
	}{
		{"telegram.send_timeout", c.Telegram.SendTimeout},
		{"auth.session_ttl", c.Auth.SessionTTL},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	return nil
}

// SendTimeout returns telegram.send_timeout with its default applied.
func (c *Config) SendTimeout() time.Duration {
	d, err := ParseDurationOrDefault("telegram.send_timeout", c.Telegram.SendTimeout, 8*time.Second)
	if err != nil {
		return 8 * time.Second
	}
	return d
}

// SessionTTL returns auth.session_ttl with its default applied.
func (c *Config) SessionTTL() time.Duration {
	d, err := ParseDurationOrDefault("auth.session_ttl", c.Auth.SessionTTL, time.Hour)
	if err != nil {
		return time.Hour
	}
	return d
}

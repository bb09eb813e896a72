package storage

import (
	"context"
	"time"
)

// Config configures storage.
//
// Driver values:
//   - "sqlite" (or empty): SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// User is one directory entry, registered by the bot side.
type User struct {
	ID           int64
	TelegramID   string
	Username     string
	FirstName    string
	LastName     string
	LastActivity time.Time
	CreatedAt    time.Time
	TotalCoins   int64
}

// UserFilter narrows directory queries. Zero value matches everyone.
type UserFilter struct {
	// ActiveWithin keeps users whose last activity is within the window
	// of now. 0 disables the filter.
	ActiveWithin time.Duration
	// Search matches username, first or last name (substring,
	// case-insensitive).
	Search string
}

// Page bounds a listing. Limit 0 means no limit.
type Page struct {
	Limit  int
	Offset int
}

// MessageLog is one completed (or interrupted) broadcast, newest first
// in listings.
type MessageLog struct {
	ID              int64
	Message         string
	RecipientType   string
	TotalRecipients int
	SuccessCount    int
	FailedCount     int
	Status          string
	CreatedAt       time.Time
	CompletedAt     time.Time
}

const (
	MessageStatusCompleted   = "completed"
	MessageStatusInterrupted = "interrupted"
)

// Store is the persistence API used by the HTTP layer and the
// broadcast resolver.
type Store interface {
	ListUsers(ctx context.Context, f UserFilter, p Page) ([]User, error)
	CountUsers(ctx context.Context, f UserFilter) (int, error)
	UpsertUser(ctx context.Context, u User) error
	TouchActivity(ctx context.Context, telegramID string, at time.Time) error

	AppendMessageLog(ctx context.Context, m MessageLog) (int64, error)
	ListMessageLogs(ctx context.Context, limit int) ([]MessageLog, error)
	CountMessageLogs(ctx context.Context) (int, error)
	PruneMessageLogs(ctx context.Context, before time.Time) (int64, error)

	Close() error
}

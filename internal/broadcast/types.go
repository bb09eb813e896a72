package broadcast

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// RecipientType selects which directory entries a broadcast targets.
type RecipientType string

const (
	RecipientAll      RecipientType = "all"
	RecipientActive   RecipientType = "active"
	RecipientInactive RecipientType = "inactive"
	RecipientRecent   RecipientType = "recent"
	RecipientSpecific RecipientType = "specific"
)

// ParseRecipientType validates a wire-level recipient type.
func ParseRecipientType(s string) (RecipientType, error) {
	switch t := RecipientType(strings.ToLower(strings.TrimSpace(s))); t {
	case RecipientAll, RecipientActive, RecipientInactive, RecipientRecent, RecipientSpecific:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown recipient type %q", ErrInvalidRequest, s)
	}
}

// Selector is the immutable recipient-selection rule of one broadcast.
type Selector struct {
	Type RecipientType
	// SpecificIDs is consulted only when Type is RecipientSpecific.
	// IDs are passed through as-is; existence is not verified.
	SpecificIDs []string
	// Window overrides the "recent" activity window. 0 means the
	// resolver default (30 days).
	Window time.Duration
}

// Recipient is one resolved delivery target plus the profile fields
// used for personalization.
type Recipient struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
}

// Request describes one broadcast. Immutable for its lifetime.
type Request struct {
	Message  string
	Selector Selector
	Markdown bool
}

// Progress is emitted after every delivery attempt.
type Progress struct {
	Sent    int
	Total   int
	Percent int
}

// Result is the terminal tally of a broadcast.
// Success+Failed always equals Total.
type Result struct {
	Total   int
	Success int
	Failed  int
	// Errors holds up to maxRecordedErrors verbatim diagnostics;
	// further failures still count but are not recorded.
	Errors []string
}

type EventKind int

const (
	EventProgress EventKind = iota + 1
	EventResult
)

// Event is one record on the progress stream.
type Event struct {
	Kind     EventKind
	Progress *Progress
	Result   *Result
}

// maxRecordedErrors bounds the verbatim diagnostics kept per broadcast.
const maxRecordedErrors = 5

var (
	// ErrDirectoryUnavailable aborts a broadcast before any delivery
	// attempt when the user directory cannot be queried.
	ErrDirectoryUnavailable = errors.New("user directory unavailable")

	// ErrInvalidRequest rejects a malformed broadcast before resolution.
	ErrInvalidRequest = errors.New("invalid broadcast request")
)

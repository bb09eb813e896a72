package broadcast

import (
	"context"
	"fmt"
	"time"

	"tgadmin/internal/storage"
)

// Directory is the user-directory lookup the resolver consults.
// storage.Store satisfies it.
type Directory interface {
	ListUsers(ctx context.Context, f storage.UserFilter, p storage.Page) ([]storage.User, error)
}

// ResolverConfig tunes the activity windows. Zero fields take defaults.
type ResolverConfig struct {
	ActiveWindow time.Duration // default 3 days
	RecentWindow time.Duration // default 30 days
}

const (
	defaultActiveWindow = 3 * 24 * time.Hour
	defaultRecentWindow = 30 * 24 * time.Hour
)

// Resolver turns a Selector into a concrete, deduplicated recipient
// sequence in the directory's natural order.
type Resolver struct {
	dir          Directory
	activeWindow time.Duration
	recentWindow time.Duration

	now func() time.Time
}

func NewResolver(dir Directory, cfg ResolverConfig) *Resolver {
	aw := cfg.ActiveWindow
	if aw <= 0 {
		aw = defaultActiveWindow
	}
	rw := cfg.RecentWindow
	if rw <= 0 {
		rw = defaultRecentWindow
	}
	return &Resolver{dir: dir, activeWindow: aw, recentWindow: rw, now: time.Now}
}

// Resolve returns the recipients the selector names.
//
// Active and inactive are both derived from a single "all" snapshot so
// the two sets always partition it; issuing two filtered queries could
// see different "now"s and overlap or gap.
func (r *Resolver) Resolve(ctx context.Context, sel Selector) ([]Recipient, error) {
	if sel.Type == RecipientSpecific {
		out := make([]Recipient, 0, len(sel.SpecificIDs))
		seen := make(map[string]struct{}, len(sel.SpecificIDs))
		for _, id := range sel.SpecificIDs {
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, Recipient{ID: id})
		}
		return out, nil
	}

	users, err := r.dir.ListUsers(ctx, storage.UserFilter{}, storage.Page{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	now := r.now()
	window := r.recentWindow
	if sel.Window > 0 {
		window = sel.Window
	}

	out := make([]Recipient, 0, len(users))
	seen := make(map[string]struct{}, len(users))
	for _, u := range users {
		if u.TelegramID == "" {
			continue
		}
		if _, dup := seen[u.TelegramID]; dup {
			continue
		}

		active := now.Sub(u.LastActivity) <= r.activeWindow
		switch sel.Type {
		case RecipientAll:
		case RecipientActive:
			if !active {
				continue
			}
		case RecipientInactive:
			if active {
				continue
			}
		case RecipientRecent:
			if now.Sub(u.LastActivity) > window {
				continue
			}
		default:
			return nil, fmt.Errorf("%w: unknown recipient type %q", ErrInvalidRequest, sel.Type)
		}

		seen[u.TelegramID] = struct{}{}
		out = append(out, Recipient{
			ID:        u.TelegramID,
			Username:  u.Username,
			FirstName: u.FirstName,
			LastName:  u.LastName,
		})
	}
	return out, nil
}

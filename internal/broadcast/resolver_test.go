package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"

	"tgadmin/internal/storage"
)

type fakeDirectory struct {
	users []storage.User
	err   error
	calls int
}

func (f *fakeDirectory) ListUsers(ctx context.Context, _ storage.UserFilter, _ storage.Page) ([]storage.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.users, nil
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func testResolver(dir Directory) *Resolver {
	r := NewResolver(dir, ResolverConfig{})
	r.now = fixedNow
	return r
}

func directoryFixture() *fakeDirectory {
	now := fixedNow()
	return &fakeDirectory{users: []storage.User{
		{TelegramID: "u1", FirstName: "Ann", LastActivity: now.Add(-time.Hour)},
		{TelegramID: "u2", FirstName: "Bob", LastActivity: now.Add(-10 * 24 * time.Hour)},
		{TelegramID: "u3", FirstName: "Cara", LastActivity: now.Add(-2 * 24 * time.Hour)},
		{TelegramID: "u4", FirstName: "Dan", LastActivity: now.Add(-45 * 24 * time.Hour)},
	}}
}

func ids(rs []Recipient) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestResolveSelectors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		sel  Selector
		want []string
	}{
		{name: "all", sel: Selector{Type: RecipientAll}, want: []string{"u1", "u2", "u3", "u4"}},
		{name: "active", sel: Selector{Type: RecipientActive}, want: []string{"u1", "u3"}},
		{name: "inactive", sel: Selector{Type: RecipientInactive}, want: []string{"u2", "u4"}},
		{name: "recent default window", sel: Selector{Type: RecipientRecent}, want: []string{"u1", "u2", "u3"}},
		{name: "recent custom window", sel: Selector{Type: RecipientRecent, Window: 24 * time.Hour}, want: []string{"u1"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := testResolver(directoryFixture())
			got, err := r.Resolve(context.Background(), tt.sel)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if !equalIDs(ids(got), tt.want) {
				t.Fatalf("Resolve(%s) = %v, want %v", tt.name, ids(got), tt.want)
			}
		})
	}
}

func TestActiveInactivePartitionAll(t *testing.T) {
	t.Parallel()
	r := testResolver(directoryFixture())
	ctx := context.Background()

	all, err := r.Resolve(ctx, Selector{Type: RecipientAll})
	if err != nil {
		t.Fatalf("Resolve all: %v", err)
	}
	active, err := r.Resolve(ctx, Selector{Type: RecipientActive})
	if err != nil {
		t.Fatalf("Resolve active: %v", err)
	}
	inactive, err := r.Resolve(ctx, Selector{Type: RecipientInactive})
	if err != nil {
		t.Fatalf("Resolve inactive: %v", err)
	}

	if len(active)+len(inactive) != len(all) {
		t.Fatalf("partition size mismatch: %d + %d != %d", len(active), len(inactive), len(all))
	}
	seen := map[string]struct{}{}
	for _, rc := range active {
		seen[rc.ID] = struct{}{}
	}
	for _, rc := range inactive {
		if _, dup := seen[rc.ID]; dup {
			t.Fatalf("recipient %s in both partitions", rc.ID)
		}
	}
}

func TestResolveSpecificDedups(t *testing.T) {
	t.Parallel()
	r := testResolver(&fakeDirectory{})
	got, err := r.Resolve(context.Background(), Selector{
		Type:        RecipientSpecific,
		SpecificIDs: []string{"x", "y", "x", "", "y"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !equalIDs(ids(got), []string{"x", "y"}) {
		t.Fatalf("specific = %v, want [x y]", ids(got))
	}
}

func TestResolveSpecificSkipsDirectory(t *testing.T) {
	t.Parallel()
	dir := &fakeDirectory{err: errors.New("down")}
	r := testResolver(dir)
	if _, err := r.Resolve(context.Background(), Selector{Type: RecipientSpecific, SpecificIDs: []string{"x"}}); err != nil {
		t.Fatalf("specific should not consult the directory: %v", err)
	}
	if dir.calls != 0 {
		t.Fatalf("directory queried %d times, want 0", dir.calls)
	}
}

func TestResolveDirectoryDedups(t *testing.T) {
	t.Parallel()
	now := fixedNow()
	dir := &fakeDirectory{users: []storage.User{
		{TelegramID: "a", LastActivity: now},
		{TelegramID: "a", LastActivity: now},
		{TelegramID: "b", LastActivity: now},
	}}
	r := testResolver(dir)
	got, err := r.Resolve(context.Background(), Selector{Type: RecipientAll})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !equalIDs(ids(got), []string{"a", "b"}) {
		t.Fatalf("dedup = %v, want [a b]", ids(got))
	}
}

func TestResolveDirectoryUnavailable(t *testing.T) {
	t.Parallel()
	r := testResolver(&fakeDirectory{err: errors.New("connection refused")})
	_, err := r.Resolve(context.Background(), Selector{Type: RecipientAll})
	if !errors.Is(err, ErrDirectoryUnavailable) {
		t.Fatalf("err = %v, want ErrDirectoryUnavailable", err)
	}
}

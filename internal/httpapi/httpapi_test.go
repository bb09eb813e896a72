package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"tgadmin/internal/broadcast"
	"tgadmin/internal/session"
	"tgadmin/internal/storage"
	"tgadmin/pkg/logx"
)

// fakeStore is an in-memory storage.Store for handler tests.
type fakeStore struct {
	mu       sync.Mutex
	users    []storage.User
	logs     []storage.MessageLog
	usersErr error
	appended []storage.MessageLog
}

func (f *fakeStore) match(u storage.User, flt storage.UserFilter) bool {
	if flt.ActiveWithin > 0 && time.Since(u.LastActivity) > flt.ActiveWithin {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(flt.Search)); q != "" {
		hay := strings.ToLower(u.Username + " " + u.FirstName + " " + u.LastName)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}

func (f *fakeStore) ListUsers(_ context.Context, flt storage.UserFilter, p storage.Page) ([]storage.User, error) {
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	var out []storage.User
	for _, u := range f.users {
		if f.match(u, flt) {
			out = append(out, u)
		}
	}
	if p.Offset > 0 {
		if p.Offset >= len(out) {
			return nil, nil
		}
		out = out[p.Offset:]
	}
	if p.Limit > 0 && len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, nil
}

func (f *fakeStore) CountUsers(ctx context.Context, flt storage.UserFilter) (int, error) {
	if f.usersErr != nil {
		return 0, f.usersErr
	}
	us, err := f.ListUsers(ctx, flt, storage.Page{})
	return len(us), err
}

func (f *fakeStore) UpsertUser(context.Context, storage.User) error          { return nil }
func (f *fakeStore) TouchActivity(context.Context, string, time.Time) error { return nil }

func (f *fakeStore) AppendMessageLog(_ context.Context, m storage.MessageLog) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, m)
	return int64(len(f.appended)), nil
}

func (f *fakeStore) ListMessageLogs(_ context.Context, limit int) ([]storage.MessageLog, error) {
	out := f.logs
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) CountMessageLogs(context.Context) (int, error) { return len(f.logs), nil }
func (f *fakeStore) PruneMessageLogs(context.Context, time.Time) (int64, error) {
	return 0, nil
}
func (f *fakeStore) Close() error { return nil }

// fakeDispatcher replays canned events, or fails up front.
type fakeDispatcher struct {
	events []broadcast.Event
	err    error
	got    *broadcast.Request
}

func (f *fakeDispatcher) Run(_ context.Context, req broadcast.Request) (<-chan broadcast.Event, error) {
	f.got = &req
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan broadcast.Event)
	go func() {
		defer close(out)
		for _, ev := range f.events {
			out <- ev
		}
	}()
	return out, nil
}

func newTestApp(store storage.Store, d Dispatcher) *App {
	return New(store, d, session.NewStore(time.Hour),
		Credentials{Username: "admin", Password: "secret"},
		3*24*time.Hour, logx.Nop())
}

// authedRequest builds a request carrying a valid session cookie.
func authedRequest(a *App, method, target string, body string) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	token, _ := a.Sessions.Create()
	r.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	return r
}

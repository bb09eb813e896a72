// Package httpapi exposes the operator dashboard's JSON API: a cookie
// login gate, user listing with pagination and search, aggregate stats,
// the message history, and the streamed broadcast endpoint.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"tgadmin/internal/broadcast"
	"tgadmin/internal/session"
	"tgadmin/internal/storage"
	"tgadmin/pkg/logx"
)

// Credentials is the single operator account accepted by /api/login.
type Credentials struct {
	Username string
	Password string
}

// Dispatcher starts one broadcast. *broadcast.Dispatcher satisfies it;
// tests substitute fakes.
type Dispatcher interface {
	Run(ctx context.Context, req broadcast.Request) (<-chan broadcast.Event, error)
}

type App struct {
	Store      storage.Store
	Dispatcher Dispatcher
	Sessions   *session.Store
	Creds      Credentials
	Log        logx.Logger

	// ActiveWindow defines "active" for stats and the users listing.
	ActiveWindow time.Duration
}

// New wires the API against its collaborators.
func New(store storage.Store, dispatcher Dispatcher, sessions *session.Store, creds Credentials, activeWindow time.Duration, log logx.Logger) *App {
	if activeWindow <= 0 {
		activeWindow = 3 * 24 * time.Hour
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &App{
		Store:        store,
		Dispatcher:   dispatcher,
		Sessions:     sessions,
		Creds:        creds,
		Log:          log,
		ActiveWindow: activeWindow,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

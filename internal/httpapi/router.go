package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"tgadmin/pkg/logx"
)

// NewRouter builds the full API surface. /healthz and /api/login sit
// outside the session gate; everything else requires a live cookie.
func NewRouter(a *App) http.Handler {
	r := chi.NewRouter()
	r.Use(a.requestLog)
	r.Use(cors.Handler(cors.Options{
		// Internal dashboard; the cookie is the actual gate.
		AllowOriginFunc:  func(r *http.Request, origin string) bool { return true },
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", healthHandler)
	r.Post("/api/login", a.loginHandler)

	r.Group(func(pr chi.Router) {
		pr.Use(a.requireSession)
		pr.Post("/api/logout", a.logoutHandler)
		pr.Get("/api/users", a.listUsersHandler)
		pr.Get("/api/stats", a.statsHandler)
		pr.Get("/api/message-history", a.messageHistoryHandler)
		pr.Post("/api/broadcast", a.broadcastHandler)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// requestLog is a minimal access log; the streamed broadcast endpoint
// logs its own lifecycle, so duration here is just wall time to handler
// return.
func (a *App) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		a.Log.Debug("http request",
			logx.String("method", r.Method),
			logx.String("path", r.URL.Path),
			logx.Duration("dur", time.Since(start)),
		)
	})
}

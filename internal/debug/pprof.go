// Package debug hosts the optional pprof listener, kept off the main
// API port so the dashboard surface never exposes profiling handlers.
package debug

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"tgadmin/internal/config"
	"tgadmin/pkg/logx"
)

// ServePprof starts the pprof server when enabled and blocks until ctx
// is done. Listen failures are logged, not fatal; profiling is a
// convenience, not a dependency.
func ServePprof(ctx context.Context, cfg config.PprofConfig, log logx.Logger) {
	if !cfg.Enabled {
		return
	}
	addr := cfg.Addr
	if addr == "" {
		addr = "127.0.0.1:6060"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	srv := &http.Server{Addr: addr, Handler: mux}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Warn("pprof listen failed", logx.String("addr", addr), logx.Err(err))
		return
	}
	log.Info("pprof listening", logx.String("addr", ln.Addr().String()))

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warn("pprof server stopped", logx.Err(err))
	}
}

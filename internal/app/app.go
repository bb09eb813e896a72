// Package app wires the admin service together and owns its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"tgadmin/internal/broadcast"
	"tgadmin/internal/config"
	"tgadmin/internal/debug"
	"tgadmin/internal/httpapi"
	"tgadmin/internal/session"
	"tgadmin/internal/storage"
	"tgadmin/internal/telegram"
	"tgadmin/pkg/logx"
)

type App struct {
	cfgPath string
	cfg     *config.Config

	logSvc   *logx.Service
	log      logx.Logger
	store    storage.Store
	sessions *session.Store
	srv      *http.Server
	janitor  *janitor
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	busy, _ := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	tg, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		SendTimeout: cfg.SendTimeout(),
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("telegram client: %w", err)
	}

	activeWindow := windowDays(cfg.Broadcast.ActiveWindowDays, 3)
	recentWindow := windowDays(cfg.Broadcast.RecentWindowDays, 30)

	resolver := broadcast.NewResolver(store, broadcast.ResolverConfig{
		ActiveWindow: activeWindow,
		RecentWindow: recentWindow,
	})
	dispatcher := broadcast.NewDispatcher(resolver, tg,
		broadcast.Config{RatePerSec: cfg.Broadcast.RatePerSec},
		log.With(logx.String("comp", "broadcast")),
	)

	sessions := session.NewStore(cfg.SessionTTL())
	api := httpapi.New(store, dispatcher, sessions,
		httpapi.Credentials{Username: cfg.Auth.Username, Password: cfg.Auth.Password},
		activeWindow,
		log.With(logx.String("comp", "http")),
	)

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: httpapi.NewRouter(api),
		// WriteTimeout stays 0: the broadcast endpoint streams for as
		// long as the fan-out runs.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	a := &App{
		cfgPath:  cfgPath,
		cfg:      cfg,
		logSvc:   logSvc,
		log:      log,
		store:    store,
		sessions: sessions,
		srv:      srv,
	}
	a.janitor = newJanitor(cfg.Janitor, store, sessions, log.With(logx.String("comp", "janitor")))
	return a, nil
}

func windowDays(days, def int) time.Duration {
	if days <= 0 {
		days = def
	}
	return time.Duration(days) * 24 * time.Hour
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.srv.Addr, err)
	}
	a.log.Info("admin api listening", logx.String("addr", ln.Addr().String()))

	serveErr := make(chan error, 1)
	go func() {
		if err := a.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	go debug.ServePprof(ctx, a.cfg.Pprof, a.log.With(logx.String("comp", "pprof")))

	// Live-reload the logging section on config edits. Everything else
	// (listen addr, credentials, storage) needs a restart.
	go config.Watch(ctx, a.cfgPath, a.log.With(logx.String("comp", "config")), func(next *config.Config) {
		a.logSvc.Apply(logx.Config{
			Level:   next.Logging.Level,
			Console: next.Logging.Console,
			File: logx.FileConfig{
				Enabled: next.Logging.File.Enabled,
				Path:    next.Logging.File.Path,
			},
		})
	})

	a.janitor.start()

	// Best-effort; a no-op outside systemd.
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	return a.shutdown()
}

func (a *App) shutdown() error {
	a.log.Info("shutting down")

	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := a.srv.Shutdown(shCtx)

	a.janitor.stop()
	if cerr := a.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	_ = a.logSvc.Close()
	return err
}

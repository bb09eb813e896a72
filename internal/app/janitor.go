package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"tgadmin/internal/config"
	"tgadmin/internal/session"
	"tgadmin/internal/storage"
	"tgadmin/pkg/logx"
)

const defaultJanitorSchedule = "0 3 * * *"

// janitor runs periodic housekeeping: sweeping expired login sessions
// and pruning old message-log rows.
type janitor struct {
	cfg      config.JanitorConfig
	store    storage.Store
	sessions *session.Store
	log      logx.Logger
	cron     *cron.Cron
}

func newJanitor(cfg config.JanitorConfig, store storage.Store, sessions *session.Store, log logx.Logger) *janitor {
	return &janitor{cfg: cfg, store: store, sessions: sessions, log: log}
}

func (j *janitor) start() {
	if !j.cfg.Enabled {
		j.log.Debug("janitor disabled")
		return
	}
	spec := j.cfg.Schedule
	if spec == "" {
		spec = defaultJanitorSchedule
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, j.sweep); err != nil {
		j.log.Warn("janitor schedule invalid; falling back to default",
			logx.String("schedule", spec), logx.Err(err))
		if _, err := c.AddFunc(defaultJanitorSchedule, j.sweep); err != nil {
			j.log.Error("janitor disabled: default schedule rejected", logx.Err(err))
			return
		}
	}
	j.cron = c
	c.Start()
	j.log.Info("janitor started", logx.String("schedule", spec))
}

func (j *janitor) stop() {
	if j.cron == nil {
		return
	}
	// Wait for an in-flight sweep instead of abandoning it mid-delete.
	<-j.cron.Stop().Done()
}

func (j *janitor) sweep() {
	if n := j.sessions.Sweep(); n > 0 {
		j.log.Debug("expired sessions swept", logx.Int("count", n))
	}

	if j.cfg.HistoryRetentionDays <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	cutoff := time.Now().AddDate(0, 0, -j.cfg.HistoryRetentionDays)
	n, err := j.store.PruneMessageLogs(ctx, cutoff)
	if err != nil {
		j.log.Warn("message log prune failed", logx.Err(err))
		return
	}
	if n > 0 {
		j.log.Info("message log pruned", logx.Int64("rows", n), logx.Time("cutoff", cutoff))
	}
}

package service

import (
	"context"
	"time"

	"github.com/robfig/cron"

	"github.com/eatbalance/web/internal"
	"github.com/eatbalance/web/internal/session"
)

const janitorTimeout = 30 * time.Second

// Janitor periodically drops expired sessions and handoff slots.
type Janitor struct {
	cron     *cron.Cron
	sessions *session.Manager
	handoffs *HandoffService
	logger   internal.Logger
}

func NewJanitor(sessions *session.Manager, handoffs *HandoffService, logger internal.Logger) *Janitor {
	return &Janitor{cron: cron.New(), sessions: sessions, handoffs: handoffs, logger: logger}
}

// Start schedules the sweep; spec is a cron spec such as "@every 1m".
func (j *Janitor) Start(spec string) error {
	if err := j.cron.AddFunc(spec, j.Sweep); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

func (j *Janitor) Stop() {
	j.cron.Stop()
}

// Sweep runs one purge pass.
func (j *Janitor) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), janitorTimeout)
	defer cancel()

	sessions, err := j.sessions.Purge(ctx)
	if err != nil {
		j.logger.Errorf("janitor: session purge failed: %v", err)
	}
	handoffs, err := j.handoffs.Purge(ctx)
	if err != nil {
		j.logger.Errorf("janitor: handoff purge failed: %v", err)
	}
	if sessions > 0 || handoffs > 0 {
		j.logger.Infof("janitor: purged %d sessions, %d handoff slots", sessions, handoffs)
	}
}

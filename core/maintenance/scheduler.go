// Package maintenance runs the background housekeeping jobs that keep the
// service's operational tables bounded.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"tesoportamos/config"
	"tesoportamos/core/store"
	"tesoportamos/core/utils"
)

// Scheduler prunes audit_log rows past the configured retention on a cron
// schedule. Disabled schedulers are inert: Start and Stop become no-ops.
type Scheduler struct {
	cfg    config.MaintenanceConfig
	audits store.AuditStore
	logger *utils.Logger
	cron   *cron.Cron
}

func NewScheduler(cfg config.MaintenanceConfig, audits store.AuditStore, logger *utils.Logger) *Scheduler {
	return &Scheduler{cfg: cfg, audits: audits, logger: logger}
}

func (s *Scheduler) Start() error {
	if s == nil || s.cfg.Disabled || s.audits == nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.CronSpec, func() {
		if err := s.RunOnce(context.Background()); err != nil && s.logger != nil {
			s.logger.Errorf("audit retention: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("maintenance cron spec %q: %w", s.cfg.CronSpec, err)
	}
	s.cron = c
	c.Start()
	if s.logger != nil {
		s.logger.Printf("maintenance scheduler started (cron=%q, retention=%dd)", s.cfg.CronSpec, s.cfg.AuditRetentionDays)
	}
	return nil
}

func (s *Scheduler) Stop() {
	if s == nil || s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	days := s.cfg.AuditRetentionDays
	if days <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	pruned, err := s.audits.PruneOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if pruned > 0 && s.logger != nil {
		s.logger.Printf("audit retention: pruned %d entries older than %s", pruned, cutoff.Format(time.RFC3339))
	}
	return nil
}

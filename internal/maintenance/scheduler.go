// Package maintenance runs the periodic background jobs: monthly usage
// resets for free-tier users and retention sweeps over the deletion audit
// log.
package maintenance

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/myaibookkeeper/bookkeeper/internal/config"
	"github.com/myaibookkeeper/bookkeeper/internal/database"
)

// auditSweepSchedule runs the retention sweep nightly, off-peak
const auditSweepSchedule = "0 3 * * *"

type Scheduler struct {
	cfg  *config.Config
	cron *cron.Cron
}

func New(cfg *config.Config) *Scheduler {
	return &Scheduler{
		cfg:  cfg,
		cron: cron.New(),
	}
}

// Start registers the jobs and begins running them on their schedules
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.Maintenance.UsageResetSchedule, s.resetUsage); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(auditSweepSchedule, s.sweepAuditLog); err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("[MAINTENANCE] Scheduler started (usage reset: %s)", s.cfg.Maintenance.UsageResetSchedule)
	return nil
}

// Stop halts the scheduler; running jobs finish
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Printf("[MAINTENANCE] Scheduler stopped")
}

func (s *Scheduler) resetUsage() {
	n, err := database.ResetUsageCounters()
	if err != nil {
		log.Printf("[MAINTENANCE] Usage reset failed: %v", err)
		return
	}
	log.Printf("[MAINTENANCE] Reset query counters for %d users", n)
}

func (s *Scheduler) sweepAuditLog() {
	retention := time.Duration(s.cfg.Maintenance.AuditRetentionDays) * 24 * time.Hour
	cutoff := time.Now().UTC().Add(-retention)

	n, err := database.PurgeDeletionAuditBefore(cutoff)
	if err != nil {
		log.Printf("[MAINTENANCE] Audit sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[MAINTENANCE] Purged %d deletion audit rows older than %s", n, cutoff.Format("2006-01-02"))
	}
}

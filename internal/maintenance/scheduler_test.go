package maintenance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/myaibookkeeper/bookkeeper/internal/config"
)

func TestStartRegistersJobs(t *testing.T) {
	cfg := &config.Config{}
	cfg.Maintenance.UsageResetSchedule = "@monthly"
	cfg.Maintenance.AuditRetentionDays = 30

	s := New(cfg)
	assert.NoError(t, s.Start())
	defer s.Stop()

	assert.Len(t, s.cron.Entries(), 2)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	cfg := &config.Config{}
	cfg.Maintenance.UsageResetSchedule = "not a schedule"
	cfg.Maintenance.AuditRetentionDays = 30

	s := New(cfg)
	assert.Error(t, s.Start())
}

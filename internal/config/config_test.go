package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ASSIGNMENT_QUALIFICATION_POLICY", "")
	t.Setenv("SWEEP_DEADLINE_CRON", "")
	t.Setenv("SCHEDULER_TIMEZONE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "exact", cfg.Assignment.QualificationPolicy)
	assert.Equal(t, "0 12 * * *", cfg.Scheduler.DeadlineCron)
	assert.Equal(t, "0 0 * * *", cfg.Scheduler.InactivityCron)
	assert.Equal(t, 3, cfg.Scheduler.ReminderWindowDays)
	assert.Equal(t, 7, cfg.Scheduler.InactivityDays)
	assert.True(t, cfg.Scheduler.DedupEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ASSIGNMENT_QUALIFICATION_POLICY", "AT_LEAST")
	t.Setenv("SWEEP_REMINDER_WINDOW_DAYS", "5")
	t.Setenv("SWEEP_DEDUP_ENABLED", "false")
	t.Setenv("SCHEDULER_TIMEZONE", "Europe/Berlin")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "at_least", cfg.Assignment.QualificationPolicy)
	assert.Equal(t, 5, cfg.Scheduler.ReminderWindowDays)
	assert.False(t, cfg.Scheduler.DedupEnabled)
	loc, err := cfg.Scheduler.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoadRejectsUnknownPolicy(t *testing.T) {
	t.Setenv("ASSIGNMENT_QUALIFICATION_POLICY", "closest")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ASSIGNMENT_QUALIFICATION_POLICY")
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("ASSIGNMENT_QUALIFICATION_POLICY", "")
	t.Setenv("SCHEDULER_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	require.Error(t, err)
}

// Package scheduler runs the deadline-reminder and inactivity sweeps.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/task-service/internal/domain"
	"github.com/opsdesk/task-service/internal/observability"
	"github.com/opsdesk/task-service/internal/service"
)

// Sweep names used in logs, metrics and marker keys.
const (
	SweepDeadline   = "deadline"
	SweepInactivity = "inactivity"
)

const (
	msgReminderAssignee   = "Reminder: The due date for your task '%s' is approaching on %s"
	msgReminderSupervisor = "Reminder: The due date for task '%s' is approaching on %s"
	msgInactiveWorker     = "User %s has been inactive for over a week"
)

// markTTL outlives one calendar day so the per-day key covers the whole day in any zone.
const markTTL = 48 * time.Hour

// Notifier delivers sweep notifications.
type Notifier interface {
	Notify(ctx context.Context, message, recipientID string, kind domain.NotificationKind, referenceID *string) error
	NotifyDepartmentSupervisors(ctx context.Context, message, departmentID string, kind domain.NotificationKind, referenceID *string) error
	NotifyAdmins(ctx context.Context, message string, kind domain.NotificationKind, referenceID *string) error
}

// TaskSource lists tasks due within an inclusive date range.
type TaskSource interface {
	ListDueBetween(ctx context.Context, from, to time.Time) ([]domain.Task, error)
}

// WorkerSource lists every worker.
type WorkerSource interface {
	AllWorkers(ctx context.Context) ([]domain.Worker, error)
}

// SweepReport summarizes one sweep pass.
type SweepReport struct {
	Name       string    `json:"name"`
	Scanned    int       `json:"scanned"`
	Notified   int       `json:"notified"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Options tunes sweep windows and deduplication.
type Options struct {
	Location           *time.Location
	ReminderWindowDays int
	InactivityDays     int
	// Marker enables per-item, per-day deduplication when non-nil.
	Marker Marker
}

// SweeperDependencies bundles collaborators.
type SweeperDependencies struct {
	Tasks    TaskSource
	Workers  WorkerSource
	Notifier Notifier
	Clock    service.Clock
	Metrics  *observability.Metrics
}

// Sweeper scans persisted state and emits reminder and inactivity notifications.
type Sweeper struct {
	tasks    TaskSource
	workers  WorkerSource
	notifier Notifier
	clock    service.Clock
	metrics  *observability.Metrics
	opts     Options
	logger   *zap.Logger
}

// NewSweeper constructs a sweeper. Zero windows fall back to 3 and 7 days.
func NewSweeper(deps SweeperDependencies, opts Options, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = service.SystemClock()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.ReminderWindowDays <= 0 {
		opts.ReminderWindowDays = 3
	}
	if opts.InactivityDays <= 0 {
		opts.InactivityDays = 7
	}
	return &Sweeper{
		tasks:    deps.Tasks,
		workers:  deps.Workers,
		notifier: deps.Notifier,
		clock:    deps.Clock,
		metrics:  deps.Metrics,
		opts:     opts,
		logger:   logger.With(zap.String("component", "sweeper")),
	}
}

// RunDeadlineSweep reminds assignees and department supervisors of tasks due between
// today and today plus the reminder window, inclusive, whatever their status.
func (s *Sweeper) RunDeadlineSweep(ctx context.Context) (SweepReport, error) {
	report := SweepReport{Name: SweepDeadline, StartedAt: s.clock.Now()}
	today := s.today()
	until := today.AddDate(0, 0, s.opts.ReminderWindowDays)

	tasks, err := s.tasks.ListDueBetween(ctx, today, until)
	if err != nil {
		report.FinishedAt = s.clock.Now()
		return report, fmt.Errorf("list tasks due between %s and %s: %w",
			today.Format(domain.DateLayout), until.Format(domain.DateLayout), err)
	}

	for i := range tasks {
		if err := ctx.Err(); err != nil {
			return s.finish(report), err
		}
		task := tasks[i]
		report.Scanned++
		key := fmt.Sprintf("%s:%s:%s", SweepDeadline, task.ID, today.Format(domain.DateLayout))
		s.handle(ctx, &report, key, zap.String("task_id", task.ID), func() error {
			return s.remind(ctx, task)
		})
	}
	return s.finish(report), nil
}

// RunInactivitySweep notifies administrators about every worker whose last activity
// is missing or older than the inactivity window.
func (s *Sweeper) RunInactivitySweep(ctx context.Context) (SweepReport, error) {
	report := SweepReport{Name: SweepInactivity, StartedAt: s.clock.Now()}
	cutoff := s.clock.Now().Add(-time.Duration(s.opts.InactivityDays) * 24 * time.Hour)
	day := s.today().Format(domain.DateLayout)

	workers, err := s.workers.AllWorkers(ctx)
	if err != nil {
		report.FinishedAt = s.clock.Now()
		return report, fmt.Errorf("list workers: %w", err)
	}

	for i := range workers {
		if err := ctx.Err(); err != nil {
			return s.finish(report), err
		}
		worker := workers[i]
		if !Inactive(worker, cutoff) {
			continue
		}
		report.Scanned++
		key := fmt.Sprintf("%s:%s:%s", SweepInactivity, worker.ID, day)
		s.handle(ctx, &report, key, zap.String("worker_id", worker.ID), func() error {
			ref := worker.ID
			message := fmt.Sprintf(msgInactiveWorker, worker.Username)
			return s.notifier.NotifyAdmins(ctx, message, domain.NotificationKindOther, &ref)
		})
	}
	return s.finish(report), nil
}

// Inactive reports whether worker has no recorded activity or none since cutoff.
func Inactive(worker domain.Worker, cutoff time.Time) bool {
	return worker.LastActiveAt == nil || worker.LastActiveAt.Before(cutoff)
}

func (s *Sweeper) remind(ctx context.Context, task domain.Task) error {
	due := task.DueDateString()
	ref := task.ID
	var assigneeErr error
	if task.AssigneeID != nil {
		assigneeErr = s.notifier.Notify(ctx, fmt.Sprintf(msgReminderAssignee, task.Title, due), *task.AssigneeID, domain.NotificationKindTask, &ref)
	}
	supervisorErr := s.notifier.NotifyDepartmentSupervisors(ctx, fmt.Sprintf(msgReminderSupervisor, task.Title, due), task.DepartmentID, domain.NotificationKindTask, &ref)
	return errors.Join(assigneeErr, supervisorErr)
}

// handle runs one item in isolation: a failure is logged and counted, never returned.
func (s *Sweeper) handle(ctx context.Context, report *SweepReport, key string, field zap.Field, notify func() error) {
	claimed := false
	if s.opts.Marker != nil {
		fresh, err := s.opts.Marker.MarkOnce(ctx, key, markTTL)
		switch {
		case err != nil:
			s.logger.Warn("sweep marker unavailable, notifying anyway", field, zap.Error(err))
		case !fresh:
			report.Skipped++
			s.metrics.RecordSweepItem(report.Name, "skipped")
			return
		default:
			claimed = true
		}
	}

	if err := notify(); err != nil {
		report.Failed++
		s.metrics.RecordSweepItem(report.Name, "failed")
		s.logger.Error("sweep item failed", zap.String("sweep", report.Name), field, zap.Error(err))
		if claimed {
			if relErr := s.opts.Marker.Release(ctx, key); relErr != nil {
				s.logger.Warn("release sweep marker", field, zap.Error(relErr))
			}
		}
		return
	}
	report.Notified++
	s.metrics.RecordSweepItem(report.Name, "notified")
}

func (s *Sweeper) finish(report SweepReport) SweepReport {
	report.FinishedAt = s.clock.Now()
	s.logger.Info("sweep finished",
		zap.String("sweep", report.Name),
		zap.Int("scanned", report.Scanned),
		zap.Int("notified", report.Notified),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)))
	return report
}

// today is midnight of the current date in the sweep location.
func (s *Sweeper) today() time.Time {
	now := s.clock.Now().In(s.opts.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.opts.Location)
}

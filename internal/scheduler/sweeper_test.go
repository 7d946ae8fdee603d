package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdesk/task-service/internal/domain"
	"github.com/opsdesk/task-service/internal/mocks"
	"github.com/opsdesk/task-service/internal/observability"
	"github.com/opsdesk/task-service/internal/scheduler"
	"github.com/opsdesk/task-service/internal/service"
)

var now = time.Date(2024, time.May, 20, 12, 0, 0, 0, time.UTC)

func day(offset int) *time.Time {
	d := time.Date(now.Year(), now.Month(), now.Day()+offset, 0, 0, 0, 0, time.UTC)
	return &d
}

func ptr[T any](v T) *T {
	return &v
}

type harness struct {
	store   *mocks.Store
	sweeper *scheduler.Sweeper
	metrics *observability.Metrics
}

func newHarness(t *testing.T, marker scheduler.Marker) *harness {
	t.Helper()
	store := mocks.NewStore()
	metrics := observability.NewMetrics()
	notifier := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: store.Notifications(),
		WorkerRepo:       store.Workers(),
		Directory:        store.Directory(),
		Metrics:          metrics,
	}, zap.NewNop())
	sweeper := scheduler.NewSweeper(scheduler.SweeperDependencies{
		Tasks:    store.Tasks(),
		Workers:  store.Directory(),
		Notifier: notifier,
		Clock:    service.FixedClock{At: now},
		Metrics:  metrics,
	}, scheduler.Options{Marker: marker}, zap.NewNop())
	return &harness{store: store, sweeper: sweeper, metrics: metrics}
}

func TestDeadlineSweep_Window(t *testing.T) {
	h := newHarness(t, nil)
	h.store.SeedWorker(domain.Worker{ID: "sup", Role: domain.WorkerRoleSupervisor, DepartmentID: ptr("dept-a")})
	offsets := map[string]int{"today": 0, "plus2": 2, "plus3": 3, "plus4": 4, "overdue": -1}
	for title, off := range offsets {
		h.store.SeedTask(domain.Task{ID: title, Title: title, DepartmentID: "dept-a", DueDate: day(off),
			AssigneeID: ptr("emp-" + title), Status: domain.TaskStatusCompleted})
	}
	h.store.SeedTask(domain.Task{ID: "nodue", Title: "nodue", DepartmentID: "dept-a"})

	report, err := h.sweeper.RunDeadlineSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 3, report.Notified)
	assert.Zero(t, report.Failed)

	for _, title := range []string{"today", "plus2", "plus3"} {
		notes := h.store.NotificationsFor("emp-" + title)
		require.Len(t, notes, 1, title)
		assert.Equal(t, "Reminder: The due date for your task '"+title+"' is approaching on "+offsetDate(offsets[title]), notes[0].Message)
		assert.Equal(t, domain.NotificationKindTask, notes[0].Kind)
		assert.Equal(t, title, *notes[0].ReferenceID)
	}
	for _, title := range []string{"plus4", "overdue"} {
		assert.Empty(t, h.store.NotificationsFor("emp-"+title), title)
	}

	supNotes := h.store.NotificationsFor("sup")
	require.Len(t, supNotes, 3)
	assert.Contains(t, []string{
		"Reminder: The due date for task 'today' is approaching on 2024-05-20",
		"Reminder: The due date for task 'plus2' is approaching on 2024-05-22",
		"Reminder: The due date for task 'plus3' is approaching on 2024-05-23",
	}, supNotes[0].Message)
}

func offsetDate(off int) string {
	return day(off).Format(domain.DateLayout)
}

func TestDeadlineSweep_UnassignedTaskStillRemindsSupervisors(t *testing.T) {
	h := newHarness(t, nil)
	h.store.SeedWorker(domain.Worker{ID: "sup", Role: domain.WorkerRoleSupervisor, DepartmentID: ptr("dept-a")})
	h.store.SeedTask(domain.Task{ID: "t1", Title: "orphan", DepartmentID: "dept-a", DueDate: day(1)})

	report, err := h.sweeper.RunDeadlineSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Notified)
	assert.Len(t, h.store.AllNotifications(), 1)
}

func TestDeadlineSweep_ScanErrorAborts(t *testing.T) {
	h := newHarness(t, nil)
	h.store.DueScanErr = errors.New("connection reset")
	_, err := h.sweeper.RunDeadlineSweep(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestDeadlineSweep_RerunWithoutMarkerResends(t *testing.T) {
	h := newHarness(t, nil)
	h.store.SeedTask(domain.Task{ID: "t1", Title: "t", DepartmentID: "dept-a", DueDate: day(0), AssigneeID: ptr("emp")})

	for i := 0; i < 2; i++ {
		_, err := h.sweeper.RunDeadlineSweep(context.Background())
		require.NoError(t, err)
	}
	assert.Len(t, h.store.NotificationsFor("emp"), 2)
}

func TestDeadlineSweep_MarkerSuppressesSameDayRerun(t *testing.T) {
	h := newHarness(t, scheduler.NewMemoryMarker())
	h.store.SeedTask(domain.Task{ID: "t1", Title: "t", DepartmentID: "dept-a", DueDate: day(0), AssigneeID: ptr("emp")})

	first, err := h.sweeper.RunDeadlineSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Notified)

	second, err := h.sweeper.RunDeadlineSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Notified)
	assert.Equal(t, 1, second.Skipped)
	assert.Len(t, h.store.NotificationsFor("emp"), 1)
	assert.Equal(t, int64(1), h.metrics.Snapshot()["sweep_items"]["deadline|skipped"])
}

func TestDeadlineSweep_FailedItemIsReleasedAndIsolated(t *testing.T) {
	marker := scheduler.NewMemoryMarker()
	h := newHarness(t, marker)
	h.store.SeedTask(domain.Task{ID: "t1", Title: "a", DepartmentID: "dept-a", DueDate: day(0), AssigneeID: ptr("broken")})
	h.store.SeedTask(domain.Task{ID: "t2", Title: "b", DepartmentID: "dept-a", DueDate: day(1), AssigneeID: ptr("fine")})
	h.store.NotificationCreateErr = errors.New("insert failed")
	h.store.FailRecipients = map[string]bool{"broken": true}

	report, err := h.sweeper.RunDeadlineSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Notified)
	assert.Len(t, h.store.NotificationsFor("fine"), 1)

	h.store.NotificationCreateErr = nil
	retry, err := h.sweeper.RunDeadlineSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, retry.Notified, "failed item is retried")
	assert.Equal(t, 1, retry.Skipped)
	assert.Len(t, h.store.NotificationsFor("broken"), 1)
}

type failingMarker struct{}

func (failingMarker) MarkOnce(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func (failingMarker) Release(context.Context, string) error { return nil }

func TestDeadlineSweep_MarkerOutageStillNotifies(t *testing.T) {
	h := newHarness(t, failingMarker{})
	h.store.SeedTask(domain.Task{ID: "t1", Title: "t", DepartmentID: "dept-a", DueDate: day(2), AssigneeID: ptr("emp")})

	report, err := h.sweeper.RunDeadlineSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Notified)
	assert.Len(t, h.store.NotificationsFor("emp"), 1)
}

func TestInactivitySweep(t *testing.T) {
	h := newHarness(t, nil)
	h.store.SeedWorker(domain.Worker{ID: "adm", Username: "root", Role: domain.WorkerRoleAdmin, LastActiveAt: ptr(now)})
	h.store.SeedWorker(domain.Worker{ID: "w8", Username: "eight", Role: domain.WorkerRoleEmployee, LastActiveAt: ptr(now.AddDate(0, 0, -8))})
	h.store.SeedWorker(domain.Worker{ID: "w6", Username: "six", Role: domain.WorkerRoleEmployee, LastActiveAt: ptr(now.AddDate(0, 0, -6))})
	h.store.SeedWorker(domain.Worker{ID: "wnil", Username: "never", Role: domain.WorkerRoleEmployee})

	report, err := h.sweeper.RunInactivitySweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 2, report.Notified)

	notes := h.store.NotificationsFor("adm")
	require.Len(t, notes, 2)
	messages := []string{notes[0].Message, notes[1].Message}
	assert.ElementsMatch(t, []string{
		"User eight has been inactive for over a week",
		"User never has been inactive for over a week",
	}, messages)
	for _, n := range notes {
		assert.Equal(t, domain.NotificationKindOther, n.Kind)
	}
}

func TestInactive(t *testing.T) {
	cutoff := now.AddDate(0, 0, -7)
	assert.True(t, scheduler.Inactive(domain.Worker{}, cutoff))
	assert.True(t, scheduler.Inactive(domain.Worker{LastActiveAt: ptr(cutoff.Add(-time.Second))}, cutoff))
	assert.False(t, scheduler.Inactive(domain.Worker{LastActiveAt: ptr(cutoff)}, cutoff))
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, message, recipientID string, kind domain.NotificationKind, referenceID *string) error {
	return m.Called(ctx, message, recipientID, kind, referenceID).Error(0)
}

func (m *mockNotifier) NotifyDepartmentSupervisors(ctx context.Context, message, departmentID string, kind domain.NotificationKind, referenceID *string) error {
	return m.Called(ctx, message, departmentID, kind, referenceID).Error(0)
}

func (m *mockNotifier) NotifyAdmins(ctx context.Context, message string, kind domain.NotificationKind, referenceID *string) error {
	return m.Called(ctx, message, kind, referenceID).Error(0)
}

type staticWorkers []domain.Worker

func (w staticWorkers) AllWorkers(context.Context) ([]domain.Worker, error) { return w, nil }

func TestInactivitySweep_ContinuesAfterFailure(t *testing.T) {
	notifier := new(mockNotifier)
	notifier.On("NotifyAdmins", mock.Anything, "User first has been inactive for over a week", domain.NotificationKindOther, mock.Anything).
		Return(errors.New("boom")).Once()
	notifier.On("NotifyAdmins", mock.Anything, "User second has been inactive for over a week", domain.NotificationKindOther, mock.MatchedBy(func(ref *string) bool {
		return ref != nil && *ref == "w2"
	})).Return(nil).Once()

	sweeper := scheduler.NewSweeper(scheduler.SweeperDependencies{
		Workers:  staticWorkers{{ID: "w1", Username: "first"}, {ID: "w2", Username: "second"}},
		Notifier: notifier,
		Clock:    service.FixedClock{At: now},
	}, scheduler.Options{}, nil)

	report, err := sweeper.RunInactivitySweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Notified)
	notifier.AssertExpectations(t)
}

func TestSweep_StopsOnCancelledContext(t *testing.T) {
	notifier := new(mockNotifier)
	sweeper := scheduler.NewSweeper(scheduler.SweeperDependencies{
		Workers:  staticWorkers{{ID: "w1", Username: "first"}},
		Notifier: notifier,
		Clock:    service.FixedClock{At: now},
	}, scheduler.Options{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sweeper.RunInactivitySweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	notifier.AssertNotCalled(t, "NotifyAdmins", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

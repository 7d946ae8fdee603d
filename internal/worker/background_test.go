package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdesk/task-service/internal/config"
	"github.com/opsdesk/task-service/internal/events"
	"github.com/opsdesk/task-service/internal/mocks"
	"github.com/opsdesk/task-service/internal/scheduler"
	"github.com/opsdesk/task-service/internal/service"
	"github.com/opsdesk/task-service/internal/worker"
)

func newNotifications(store *mocks.Store, dispatcher events.Dispatcher) *service.NotificationService {
	return service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: store.Notifications(),
		WorkerRepo:       store.Workers(),
		Directory:        store.Directory(),
		Dispatcher:       dispatcher,
	}, zap.NewNop())
}

func commented(taskID, assigneeID string) events.Event {
	return events.Event{
		Type:      events.EventTaskCommented,
		SubjectID: taskID,
		Payload:   events.TaskCommentedPayload{Title: "Fix pump", AssigneeID: &assigneeID, Body: "valve"},
	}
}

func TestBackground_StartRegistersNotificationHandlers(t *testing.T) {
	store := mocks.NewStore()
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	bg := worker.NewBackground(newNotifications(store, dispatcher), nil, nil)

	require.NoError(t, dispatcher.Publish(context.Background(), commented("t-1", "w-1")))
	assert.Empty(t, store.AllNotifications(), "handlers are not registered before Start")

	bg.Start()
	require.NoError(t, dispatcher.Publish(context.Background(), commented("t-1", "w-1")))

	inbox := store.NotificationsFor("w-1")
	require.Len(t, inbox, 1)
	assert.Equal(t, "New comment on task: Fix pump - valve", inbox[0].Message)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	bg.Stop(ctx)
}

func TestBackground_RunsScheduler(t *testing.T) {
	store := mocks.NewStore()
	sweeper := scheduler.NewSweeper(scheduler.SweeperDependencies{
		Tasks:   store.Tasks(),
		Workers: store.Directory(),
	}, scheduler.Options{}, zap.NewNop())
	sweeps, err := scheduler.NewScheduler(config.SchedulerConfig{
		Timezone:       "UTC",
		DeadlineCron:   "0 12 * * *",
		InactivityCron: "0 0 * * *",
	}, sweeper, zap.NewNop())
	require.NoError(t, err)

	bg := worker.NewBackground(nil, sweeps, zap.NewNop())
	bg.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	stopped := make(chan struct{})
	go func() {
		bg.Stop(ctx)
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("background did not stop")
	}
}

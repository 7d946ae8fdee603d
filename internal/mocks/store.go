// Package mocks provides in-memory repository implementations for tests.
package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/opsdesk/task-service/internal/domain"
	"github.com/opsdesk/task-service/internal/repository"
)

// Store backs every repository interface with maps guarded by one mutex.
type Store struct {
	mu            sync.Mutex
	seq           int
	departments   map[string]domain.Department
	workers       map[string]domain.Worker
	tasks         map[string]domain.Task
	comments      []domain.TaskComment
	notifications map[string]domain.Notification
	notifyOrder   []string

	// NotificationCreateErr, when set, is returned for recipients in FailRecipients
	// (or for every recipient when FailRecipients is empty).
	NotificationCreateErr error
	FailRecipients        map[string]bool
	// TaskUpdateErr fails every task update.
	TaskUpdateErr error
	// DueScanErr fails ListDueBetween.
	DueScanErr error
	// CommentCreateErr fails every comment insert.
	CommentCreateErr error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		departments:   make(map[string]domain.Department),
		workers:       make(map[string]domain.Worker),
		tasks:         make(map[string]domain.Task),
		notifications: make(map[string]domain.Notification),
	}
}

func (s *Store) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%04d", prefix, s.seq)
}

// Departments returns the department repository view.
func (s *Store) Departments() repository.DepartmentRepository { return departmentRepo{s} }

// Workers returns the worker repository view.
func (s *Store) Workers() repository.WorkerRepository { return workerRepo{s} }

// Tasks returns the task repository view.
func (s *Store) Tasks() repository.TaskRepository { return taskRepo{s} }

// Comments returns the comment repository view.
func (s *Store) Comments() repository.TaskCommentRepository { return commentRepo{s} }

// Notifications returns the notification repository view.
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }

// Directory composes the real directory over the in-memory repositories.
func (s *Store) Directory() repository.Directory {
	return repository.NewDirectory(s.Workers(), s.Tasks())
}

// SeedDepartment inserts a department with a fixed id.
func (s *Store) SeedDepartment(id, name string) domain.Department {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := domain.Department{ID: id, Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	s.departments[id] = d
	return d
}

// SeedWorker inserts a worker as given; ID must be set.
func (s *Store) SeedWorker(w domain.Worker) domain.Worker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.Username == "" {
		w.Username = w.ID
	}
	s.workers[w.ID] = w
	return w
}

// SeedTask inserts a task as given, generating an id when empty.
func (s *Store) SeedTask(t domain.Task) domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = s.nextID("task")
	}
	s.tasks[t.ID] = t
	return t
}

// SeedAssignedTasks gives workerID n placeholder tasks in departmentID.
func (s *Store) SeedAssignedTasks(workerID, departmentID string, n int) {
	for i := 0; i < n; i++ {
		id := workerID
		s.SeedTask(domain.Task{Title: "existing", DepartmentID: departmentID, AssigneeID: &id,
			Status: domain.TaskStatusPending, Priority: domain.TaskPriorityMedium, RequiredQualification: domain.QualificationJunior})
	}
}

// Task returns a copy of the stored task.
func (s *Store) Task(id string) (domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

// AllNotifications returns notifications in creation order.
func (s *Store) AllNotifications() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Notification, 0, len(s.notifyOrder))
	for _, id := range s.notifyOrder {
		if n, ok := s.notifications[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

// NotificationsFor returns notifications addressed to recipientID in creation order.
func (s *Store) NotificationsFor(recipientID string) []domain.Notification {
	var out []domain.Notification
	for _, n := range s.AllNotifications() {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out
}

// CommentsFor returns the comments of a task, oldest first.
func (s *Store) CommentsFor(taskID string) []domain.TaskComment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.TaskComment
	for _, c := range s.comments {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	return out
}

type departmentRepo struct{ s *Store }

func (r departmentRepo) Create(_ context.Context, dept *domain.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	dept.ID = r.s.nextID("dept")
	dept.CreatedAt = time.Now()
	dept.UpdatedAt = dept.CreatedAt
	r.s.departments[dept.ID] = *dept
	return nil
}

func (r departmentRepo) Update(_ context.Context, dept *domain.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.departments[dept.ID]; !ok {
		return pgx.ErrNoRows
	}
	dept.UpdatedAt = time.Now()
	r.s.departments[dept.ID] = *dept
	return nil
}

func (r departmentRepo) GetByID(_ context.Context, id string) (*domain.Department, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.departments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	d.MemberCount = len(r.s.membersLocked(id))
	return &d, nil
}

func (r departmentRepo) List(_ context.Context) ([]domain.Department, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Department, 0, len(r.s.departments))
	for _, d := range r.s.departments {
		d.MemberCount = len(r.s.membersLocked(d.ID))
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r departmentRepo) Members(_ context.Context, departmentID string) ([]domain.Worker, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.membersLocked(departmentID), nil
}

func (s *Store) membersLocked(departmentID string) []domain.Worker {
	out := []domain.Worker{}
	for _, w := range s.workers {
		if w.InDepartment(departmentID) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

type workerRepo struct{ s *Store }

func (r workerRepo) Create(_ context.Context, w *domain.Worker) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.workers {
		if existing.Username == w.Username {
			return fmt.Errorf("duplicate username %q", w.Username)
		}
	}
	w.ID = r.s.nextID("worker")
	w.CreatedAt = time.Now()
	w.UpdatedAt = w.CreatedAt
	r.s.workers[w.ID] = *w
	return nil
}

func (r workerRepo) Update(_ context.Context, w *domain.Worker) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.workers[w.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	w.LastActiveAt = existing.LastActiveAt
	w.UpdatedAt = time.Now()
	r.s.workers[w.ID] = *w
	return nil
}

func (r workerRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.workers[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.workers, id)
	for tid, t := range r.s.tasks {
		if t.AssigneeID != nil && *t.AssigneeID == id {
			t.AssigneeID = nil
			r.s.tasks[tid] = t
		}
	}
	return nil
}

func (r workerRepo) GetByID(_ context.Context, id string) (*domain.Worker, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.workers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &w, nil
}

func (r workerRepo) GetByUsername(_ context.Context, username string) (*domain.Worker, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.workers {
		if w.Username == username {
			w := w
			return &w, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r workerRepo) GetByEmail(_ context.Context, email string) (*domain.Worker, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.workers {
		if w.Email != "" && strings.EqualFold(w.Email, email) {
			w := w
			return &w, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r workerRepo) TouchLastActive(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.workers[id]
	if !ok {
		return pgx.ErrNoRows
	}
	w.LastActiveAt = &at
	r.s.workers[id] = w
	return nil
}

// List returns workers ordered by id, matching the Postgres implementation.
func (r workerRepo) List(_ context.Context, filter repository.WorkerFilter) ([]domain.Worker, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Worker
	for _, w := range r.s.workers {
		if filter.Role != nil && w.Role != *filter.Role {
			continue
		}
		if filter.DepartmentID != nil && !w.InDepartment(*filter.DepartmentID) {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type taskRepo struct{ s *Store }

func (r taskRepo) Create(_ context.Context, t *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.nextID("task")
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	r.s.tasks[t.ID] = *t
	return nil
}

func (r taskRepo) Update(_ context.Context, t *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.TaskUpdateErr != nil {
		return r.s.TaskUpdateErr
	}
	if _, ok := r.s.tasks[t.ID]; !ok {
		return pgx.ErrNoRows
	}
	t.UpdatedAt = time.Now()
	r.s.tasks[t.ID] = *t
	return nil
}

func (r taskRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tasks[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.tasks, id)
	return nil
}

func (r taskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (r taskRepo) ListWithFilter(_ context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Task
	for _, t := range r.s.tasks {
		if filter.DepartmentID != nil && t.DepartmentID != *filter.DepartmentID {
			continue
		}
		if filter.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		if filter.SearchTerm != nil && !strings.Contains(strings.ToLower(t.Title+" "+t.Description), strings.ToLower(*filter.SearchTerm)) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r taskRepo) ListDueBetween(_ context.Context, from, to time.Time) ([]domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.DueScanErr != nil {
		return nil, r.s.DueScanErr
	}
	lo, hi := from.Format(domain.DateLayout), to.Format(domain.DateLayout)
	var out []domain.Task
	for _, t := range r.s.tasks {
		if t.DueDate == nil {
			continue
		}
		d := t.DueDate.Format(domain.DateLayout)
		if d >= lo && d <= hi {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r taskRepo) CountByAssignee(_ context.Context, workerID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, t := range r.s.tasks {
		if t.AssigneeID != nil && *t.AssigneeID == workerID {
			count++
		}
	}
	return count, nil
}

func containsStatus(list []domain.TaskStatus, s domain.TaskStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type commentRepo struct{ s *Store }

func (r commentRepo) Create(_ context.Context, c *domain.TaskComment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.CommentCreateErr != nil {
		return r.s.CommentCreateErr
	}
	c.ID = r.s.nextID("comment")
	c.CreatedAt = time.Now()
	r.s.comments = append(r.s.comments, *c)
	return nil
}

func (r commentRepo) ListByTask(_ context.Context, taskID string) ([]domain.TaskComment, error) {
	return r.s.CommentsFor(taskID), nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.NotificationCreateErr != nil && (len(r.s.FailRecipients) == 0 || r.s.FailRecipients[n.RecipientID]) {
		return r.s.NotificationCreateErr
	}
	n.ID = r.s.nextID("notif")
	n.CreatedAt = time.Now()
	r.s.notifications[n.ID] = *n
	r.s.notifyOrder = append(r.s.notifyOrder, n.ID)
	return nil
}

func (r notificationRepo) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &n, nil
}

func (r notificationRepo) MarkRead(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok {
		return pgx.ErrNoRows
	}
	n.Read = true
	r.s.notifications[id] = n
	return nil
}

func (r notificationRepo) ListByRecipient(_ context.Context, recipientID string, unreadOnly bool) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, n := range r.s.NotificationsFor(recipientID) {
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r notificationRepo) DeleteByRecipient(_ context.Context, recipientID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, n := range r.s.notifications {
		if n.RecipientID == recipientID {
			delete(r.s.notifications, id)
		}
	}
	return nil
}

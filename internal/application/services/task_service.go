package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/teamtrack/core/internal/domain/dates"
	"github.com/teamtrack/core/internal/domain/entities"
	"github.com/teamtrack/core/internal/infrastructure/logger"
	"github.com/teamtrack/core/internal/ports"
)

const reloadLimit = 1000

// TaskService owns the task lifecycle: creation, completion and sharing
// toggles, deletion, the daily forward-migration of stale tasks and the
// retention-based pruning sweep. Every mutation is one remote write followed
// by one in-memory collection update.
type TaskService struct {
	taskRepo        ports.TaskRepository
	state           *SessionState
	logger          *logger.Logger
	retentionMonths int
	pruneLimiter    *rate.Limiter
	now             func() time.Time

	migratedTotal prometheus.Counter
	prunedTotal   prometheus.Counter
}

// NewTaskService creates a new task service. pruneDelay throttles the
// pruning sweep so a large backlog does not burst deletes at the store.
func NewTaskService(taskRepo ports.TaskRepository, state *SessionState, appLogger *logger.Logger, retentionMonths int, pruneDelay time.Duration) *TaskService {
	if retentionMonths <= 0 {
		retentionMonths = 6
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if pruneDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(pruneDelay), 1)
	}

	return &TaskService{
		taskRepo:        taskRepo,
		state:           state,
		logger:          appLogger.WithComponent("tasks"),
		retentionMonths: retentionMonths,
		pruneLimiter:    limiter,
		now:             time.Now,
	}
}

// RegisterMetrics attaches the lifecycle counters to the given registry.
func (s *TaskService) RegisterMetrics(registry *prometheus.Registry) {
	s.migratedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tasks_migrated_total",
		Help: "Total stale tasks rolled forward to the current day",
	})
	s.prunedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tasks_pruned_total",
		Help: "Total aged completed tasks deleted by the retention sweep",
	})
	registry.MustRegister(s.migratedTotal, s.prunedTotal)
}

// Create creates a task for the given day. New tasks start incomplete and
// private.
func (s *TaskService) Create(ctx context.Context, ownerID int64, title, dayKey string) (*entities.Task, error) {
	task := &entities.Task{
		UserID:      ownerID,
		Title:       strings.TrimSpace(title),
		TaskDate:    dayKey,
		IsCompleted: false,
		IsShared:    false,
	}
	if err := task.ValidateTitle(); err != nil {
		return nil, err
	}
	if _, err := dates.ParseDayKey(dayKey); err != nil {
		return nil, err
	}

	created, err := s.taskRepo.Create(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.state.UpsertTask(*created)
	s.logger.Info("Task created", "task_id", created.ID, "task_date", created.TaskDate)

	return created, nil
}

// ToggleComplete flips the completed flag, setting the completion timestamp
// on the way up and clearing it on the way down.
func (s *TaskService) ToggleComplete(ctx context.Context, taskID int64) (*entities.Task, error) {
	task, ok := s.state.TaskByID(taskID)
	if !ok {
		s.logger.Warn("Toggle complete on unknown task", "task_id", taskID)
		return nil, entities.ErrTaskNotFound
	}

	if task.IsCompleted {
		task.MarkPending()
	} else {
		task.MarkCompleted(s.now())
	}

	updated, err := s.taskRepo.Update(ctx, taskID, ports.TaskPatch{IsCompleted: &task.IsCompleted, CompletedAt: task.CompletedAt})
	if err != nil {
		return nil, fmt.Errorf("failed to toggle task completion: %w", err)
	}

	s.state.UpsertTask(*updated)
	s.logger.Info("Task completion toggled", "task_id", taskID, "is_completed", updated.IsCompleted)

	return updated, nil
}

// ToggleShare flips the shared flag only; completion state is untouched.
func (s *TaskService) ToggleShare(ctx context.Context, taskID int64) (*entities.Task, error) {
	task, ok := s.state.TaskByID(taskID)
	if !ok {
		s.logger.Warn("Toggle share on unknown task", "task_id", taskID)
		return nil, entities.ErrTaskNotFound
	}

	shared := !task.IsShared
	updated, err := s.taskRepo.Update(ctx, taskID, ports.TaskPatch{IsShared: &shared})
	if err != nil {
		return nil, fmt.Errorf("failed to toggle task sharing: %w", err)
	}

	s.state.UpsertTask(*updated)
	s.logger.Info("Task sharing toggled", "task_id", taskID, "is_shared", updated.IsShared)

	return updated, nil
}

// Delete removes the task remotely and from the in-memory collection. The
// confirmation prompt belongs to the UI, not here.
func (s *TaskService) Delete(ctx context.Context, taskID int64) error {
	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.state.RemoveTask(taskID)
	s.logger.Info("Task deleted", "task_id", taskID)

	return nil
}

// Reload replaces the in-memory task collection with a full fetch.
func (s *TaskService) Reload(ctx context.Context) error {
	tasks, err := s.taskRepo.List(ctx, ports.TaskFilter{Limit: reloadLimit})
	if err != nil {
		return fmt.Errorf("failed to reload tasks: %w", err)
	}

	s.state.ReplaceTasks(tasks)
	return nil
}

// MigrateStaleTasks rolls every incomplete task of ownerID with a day key
// before today forward to today. Completed tasks are never migrated. The
// operation is idempotent: a second run with the same today finds nothing
// stale. Individual failures are logged and retried implicitly by the next
// refresh cycle.
func (s *TaskService) MigrateStaleTasks(ctx context.Context, ownerID int64, todayKey string) (int, error) {
	if _, err := dates.ParseDayKey(todayKey); err != nil {
		return 0, err
	}

	migrated := 0
	for _, task := range s.state.TasksSnapshot() {
		if task.UserID != ownerID || !task.IsStale(todayKey) {
			continue
		}

		day := todayKey
		updated, err := s.taskRepo.Update(ctx, task.ID, ports.TaskPatch{TaskDate: &day})
		if err != nil {
			s.logger.Error("Failed to migrate stale task", "task_id", task.ID, "error", err)
			continue
		}

		s.state.UpsertTask(*updated)
		migrated++
	}

	if migrated > 0 {
		if s.migratedTotal != nil {
			s.migratedTotal.Add(float64(migrated))
		}
		s.logger.Info("Stale tasks migrated", "count", migrated, "today", todayKey)
	}
	return migrated, nil
}

// PruneAgedCompletedTasks deletes completed tasks whose day key is on or
// before today minus the retention window. Deletions are throttled and
// isolated: one failure is logged and the sweep moves on, because partial
// pruning is acceptable but one bad record must not block the rest.
func (s *TaskService) PruneAgedCompletedTasks(ctx context.Context, todayKey string) (int, error) {
	today, err := dates.ParseDayKey(todayKey)
	if err != nil {
		return 0, err
	}
	cutoffKey := dates.DayKey(dates.AddMonths(today, -s.retentionMonths))

	pruned := 0
	for _, task := range s.state.TasksSnapshot() {
		if !task.IsPrunable(cutoffKey) {
			continue
		}

		if err := s.pruneLimiter.Wait(ctx); err != nil {
			return pruned, fmt.Errorf("pruning sweep interrupted: %w", err)
		}

		if err := s.taskRepo.Delete(ctx, task.ID); err != nil {
			s.logger.Error("Failed to prune aged task", "task_id", task.ID, "error", err)
			continue
		}

		s.state.RemoveTask(task.ID)
		pruned++
	}

	if pruned > 0 {
		if s.prunedTotal != nil {
			s.prunedTotal.Add(float64(pruned))
		}
		s.logger.Info("Aged completed tasks pruned", "count", pruned, "cutoff", cutoffKey)
	}
	return pruned, nil
}

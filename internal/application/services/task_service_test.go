package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teamtrack/core/internal/domain/entities"
	"github.com/teamtrack/core/internal/infrastructure/logger"
)

func newTaskFixture(t *testing.T, retentionMonths int) (*TaskService, *fakeTaskRepo, *SessionState) {
	t.Helper()
	repo := newFakeTaskRepo()
	state := NewSessionState()
	svc := NewTaskService(repo, state, logger.NewNop(), retentionMonths, 0)
	return svc, repo, state
}

func seedTask(repo *fakeTaskRepo, state *SessionState, task entities.Task) entities.Task {
	seeded := repo.seed(task)
	state.UpsertTask(seeded)
	return seeded
}

func TestCreateTaskValidation(t *testing.T) {
	svc, repo, _ := newTaskFixture(t, 6)
	ctx := context.Background()

	if _, err := svc.Create(ctx, 1, "", "2024-03-04"); !errors.Is(err, entities.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle for empty title, got %v", err)
	}
	if _, err := svc.Create(ctx, 1, "   ", "2024-03-04"); !errors.Is(err, entities.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle for blank title, got %v", err)
	}
	if _, err := svc.Create(ctx, 1, "Write minutes", "2024-3-4"); !errors.Is(err, entities.ErrInvalidDayKey) {
		t.Fatalf("expected ErrInvalidDayKey, got %v", err)
	}
	if len(repo.tasks) != 0 {
		t.Fatalf("no task should have been created, got %d", len(repo.tasks))
	}
}

func TestCreateTaskDefaults(t *testing.T) {
	svc, _, state := newTaskFixture(t, 6)

	created, err := svc.Create(context.Background(), 7, "  Write minutes  ", "2024-03-04")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Title != "Write minutes" {
		t.Errorf("title not trimmed: %q", created.Title)
	}
	if created.UserID != 7 || created.TaskDate != "2024-03-04" {
		t.Errorf("unexpected owner/date: %d %s", created.UserID, created.TaskDate)
	}
	if created.IsCompleted || created.IsShared {
		t.Errorf("new task must start incomplete and private")
	}
	if _, ok := state.TaskByID(created.ID); !ok {
		t.Errorf("created task missing from in-memory collection")
	}
}

func TestToggleCompleteSymmetry(t *testing.T) {
	svc, repo, state := newTaskFixture(t, 6)
	fixed := time.Date(2024, time.March, 4, 15, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	task := seedTask(repo, state, entities.Task{UserID: 1, Title: "Review PR", TaskDate: "2024-03-04"})

	done, err := svc.ToggleComplete(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("first toggle failed: %v", err)
	}
	if !done.IsCompleted {
		t.Fatalf("task should be completed after first toggle")
	}
	if done.CompletedAt == nil || !done.CompletedAt.Equal(fixed) {
		t.Fatalf("completed_at not stamped: %v", done.CompletedAt)
	}

	undone, err := svc.ToggleComplete(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}
	if undone.IsCompleted {
		t.Fatalf("task should be incomplete after second toggle")
	}
	if undone.CompletedAt != nil {
		t.Fatalf("completed_at must be cleared on un-complete, got %v", undone.CompletedAt)
	}

	if got, _ := state.TaskByID(task.ID); got.IsCompleted {
		t.Fatalf("in-memory collection out of sync")
	}
}

func TestToggleCompleteUnknownTask(t *testing.T) {
	svc, repo, _ := newTaskFixture(t, 6)

	if _, err := svc.ToggleComplete(context.Background(), 99); !errors.Is(err, entities.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	if repo.updates != 0 {
		t.Fatalf("no remote write expected, got %d", repo.updates)
	}
}

func TestToggleShareLeavesCompletionAlone(t *testing.T) {
	svc, repo, state := newTaskFixture(t, 6)
	done := time.Now()
	task := seedTask(repo, state, entities.Task{UserID: 1, Title: "Ship build", TaskDate: "2024-03-04", IsCompleted: true, CompletedAt: &done})

	shared, err := svc.ToggleShare(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("ToggleShare failed: %v", err)
	}
	if !shared.IsShared {
		t.Fatalf("task should be shared")
	}
	if !shared.IsCompleted || shared.CompletedAt == nil {
		t.Fatalf("sharing toggle must not touch completion state")
	}
}

func TestMigrateStaleTasks(t *testing.T) {
	svc, repo, state := newTaskFixture(t, 6)
	ctx := context.Background()
	today := "2024-03-04"

	stale := seedTask(repo, state, entities.Task{UserID: 1, Title: "Carry me", TaskDate: "2024-03-01"})
	doneAt := time.Now()
	seedTask(repo, state, entities.Task{UserID: 1, Title: "Old but done", TaskDate: "2024-03-01", IsCompleted: true, CompletedAt: &doneAt})
	seedTask(repo, state, entities.Task{UserID: 1, Title: "Today already", TaskDate: today})
	seedTask(repo, state, entities.Task{UserID: 2, Title: "Someone else's", TaskDate: "2024-03-01"})

	migrated, err := svc.MigrateStaleTasks(ctx, 1, today)
	if err != nil {
		t.Fatalf("MigrateStaleTasks failed: %v", err)
	}
	if migrated != 1 {
		t.Fatalf("expected 1 migration, got %d", migrated)
	}
	if got, _ := state.TaskByID(stale.ID); got.TaskDate != today {
		t.Fatalf("stale task not moved to today: %s", got.TaskDate)
	}

	// Idempotence: running again with the same today finds nothing stale.
	writesBefore := repo.updates
	migrated, err = svc.MigrateStaleTasks(ctx, 1, today)
	if err != nil {
		t.Fatalf("second MigrateStaleTasks failed: %v", err)
	}
	if migrated != 0 || repo.updates != writesBefore {
		t.Fatalf("second run must be a no-op: migrated=%d writes=%d->%d", migrated, writesBefore, repo.updates)
	}
}

func TestMigrateStaleTasksBadDayKey(t *testing.T) {
	svc, _, _ := newTaskFixture(t, 6)
	if _, err := svc.MigrateStaleTasks(context.Background(), 1, "today"); !errors.Is(err, entities.ErrInvalidDayKey) {
		t.Fatalf("expected ErrInvalidDayKey, got %v", err)
	}
}

func TestPruneRetentionBoundary(t *testing.T) {
	svc, repo, state := newTaskFixture(t, 6)
	doneAt := time.Now()

	// today 2024-07-01, retention 6 months: cutoff is 2024-01-01.
	atCutoff := seedTask(repo, state, entities.Task{UserID: 1, Title: "At cutoff", TaskDate: "2024-01-01", IsCompleted: true, CompletedAt: &doneAt})
	afterCutoff := seedTask(repo, state, entities.Task{UserID: 1, Title: "One day inside", TaskDate: "2024-01-02", IsCompleted: true, CompletedAt: &doneAt})
	ancient := seedTask(repo, state, entities.Task{UserID: 1, Title: "Ancient incomplete", TaskDate: "2023-06-01"})

	pruned, err := svc.PruneAgedCompletedTasks(context.Background(), "2024-07-01")
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 pruned task, got %d", pruned)
	}
	if _, ok := state.TaskByID(atCutoff.ID); ok {
		t.Errorf("task dated at the cutoff must be pruned")
	}
	if _, ok := state.TaskByID(afterCutoff.ID); !ok {
		t.Errorf("task one day inside the window must survive")
	}
	if _, ok := state.TaskByID(ancient.ID); !ok {
		t.Errorf("incomplete tasks are never pruned, no matter the age")
	}
}

func TestPruneSkipsFailedDeletes(t *testing.T) {
	svc, repo, state := newTaskFixture(t, 6)
	doneAt := time.Now()

	stuck := seedTask(repo, state, entities.Task{UserID: 1, Title: "Stuck", TaskDate: "2023-01-01", IsCompleted: true, CompletedAt: &doneAt})
	ok := seedTask(repo, state, entities.Task{UserID: 1, Title: "Fine", TaskDate: "2023-01-02", IsCompleted: true, CompletedAt: &doneAt})
	repo.failDelete[stuck.ID] = true

	pruned, err := svc.PruneAgedCompletedTasks(context.Background(), "2024-07-01")
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected the sweep to continue past the failure, pruned=%d", pruned)
	}
	if _, present := state.TaskByID(stuck.ID); !present {
		t.Errorf("failed delete must leave the task in the collection for the next sweep")
	}
	if _, present := state.TaskByID(ok.ID); present {
		t.Errorf("successful delete must remove the task")
	}
}

func TestDeleteTask(t *testing.T) {
	svc, repo, state := newTaskFixture(t, 6)
	task := seedTask(repo, state, entities.Task{UserID: 1, Title: "Throwaway", TaskDate: "2024-03-04"})

	if err := svc.Delete(context.Background(), task.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := state.TaskByID(task.ID); ok {
		t.Fatalf("deleted task still in collection")
	}
	if repo.deletes != 1 {
		t.Fatalf("expected 1 remote delete, got %d", repo.deletes)
	}
}

func TestReloadReplacesCollection(t *testing.T) {
	svc, repo, state := newTaskFixture(t, 6)
	state.ReplaceTasks([]entities.Task{{ID: 42, Title: "Gone after reload"}})
	repo.seed(entities.Task{ID: 1, UserID: 1, Title: "Remote truth", TaskDate: "2024-03-04"})

	if err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if _, ok := state.TaskByID(42); ok {
		t.Errorf("stale local task survived the reload")
	}
	if _, ok := state.TaskByID(1); !ok {
		t.Errorf("remote task missing after reload")
	}
}

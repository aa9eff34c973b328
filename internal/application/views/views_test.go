package views

import (
	"testing"
	"time"

	"github.com/teamtrack/core/internal/domain/entities"
)

var (
	teamUsers = []entities.User{
		{ID: 1, Username: "alice"},
		{ID: 2, Username: "bob"},
		{ID: 3, Username: "carol"},
	}
)

func at(h, m int) time.Time {
	return time.Date(2024, time.March, 4, h, m, 0, 0, time.UTC)
}

func TestTasksForDayFiltersAndOrders(t *testing.T) {
	done := at(12, 0)
	tasks := []entities.Task{
		{ID: 1, UserID: 1, Title: "Done early", TaskDate: "2024-03-04", IsCompleted: true, CompletedAt: &done, CreatedAt: at(8, 0)},
		{ID: 2, UserID: 1, Title: "Still open", TaskDate: "2024-03-04", CreatedAt: at(9, 0)},
		{ID: 3, UserID: 1, Title: "Tomorrow", TaskDate: "2024-03-05", CreatedAt: at(9, 30)},
		{ID: 4, UserID: 2, Title: "Someone else", TaskDate: "2024-03-04", CreatedAt: at(7, 0)},
		{ID: 5, UserID: 1, Title: "Open, created first", TaskDate: "2024-03-04", CreatedAt: at(8, 30)},
	}

	got := TasksForDay(tasks, 1, "2024-03-04")
	if len(got) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(got))
	}
	// incomplete first by creation time, completed last
	if got[0].ID != 5 || got[1].ID != 2 || got[2].ID != 1 {
		t.Fatalf("unexpected order: %d, %d, %d", got[0].ID, got[1].ID, got[2].ID)
	}
}

// The shared board shows a task while its owner works on it and drops it the
// moment it completes; the weekly view picks it up instead.
func TestSharedTaskMovesToWeeklyViewOnCompletion(t *testing.T) {
	day := "2024-03-04"
	task := entities.Task{ID: 1, UserID: 1, Title: "Draft report", TaskDate: day, IsShared: true, CreatedAt: at(9, 0)}

	shared := SharedTasksForDay([]entities.Task{task}, teamUsers, day)
	if len(shared) != 1 || shared[0].Title != "Draft report" || shared[0].OwnerName != "alice" {
		t.Fatalf("teammates should see the shared task with the owner's name: %+v", shared)
	}
	if groups := TeamCompletedInRange([]entities.Task{task}, teamUsers, 2, "2024-03-04", "2024-03-10"); len(groups) != 0 {
		t.Fatalf("incomplete task must not appear in the weekly view")
	}

	done := at(16, 0)
	task.IsCompleted = true
	task.CompletedAt = &done

	if shared := SharedTasksForDay([]entities.Task{task}, teamUsers, day); len(shared) != 0 {
		t.Fatalf("completed task must leave the shared board")
	}

	groups := TeamCompletedInRange([]entities.Task{task}, teamUsers, 2, "2024-03-04", "2024-03-10")
	if len(groups) != 1 || groups[0].Username != "alice" || len(groups[0].Tasks) != 1 {
		t.Fatalf("completed task must appear under its owner in the weekly view: %+v", groups)
	}
	if groups[0].Tasks[0].Title != "Draft report" {
		t.Fatalf("wrong task in group: %q", groups[0].Tasks[0].Title)
	}
}

func TestSharedTasksOrderedByOwnerName(t *testing.T) {
	day := "2024-03-04"
	tasks := []entities.Task{
		{ID: 1, UserID: 3, Title: "c1", TaskDate: day, IsShared: true, CreatedAt: at(9, 0)},
		{ID: 2, UserID: 1, Title: "a2", TaskDate: day, IsShared: true, CreatedAt: at(10, 0)},
		{ID: 3, UserID: 1, Title: "a1", TaskDate: day, IsShared: true, CreatedAt: at(8, 0)},
	}

	got := SharedTasksForDay(tasks, teamUsers, day)
	if len(got) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(got))
	}
	if got[0].Title != "a1" || got[1].Title != "a2" || got[2].Title != "c1" {
		t.Fatalf("unexpected order: %q, %q, %q", got[0].Title, got[1].Title, got[2].Title)
	}
}

func TestTeamCompletedExcludesViewerAndOutOfRange(t *testing.T) {
	d1, d2 := at(10, 0), at(11, 0)
	tasks := []entities.Task{
		{ID: 1, UserID: 1, Title: "Mine", TaskDate: "2024-03-05", IsCompleted: true, CompletedAt: &d1},
		{ID: 2, UserID: 2, Title: "In range", TaskDate: "2024-03-06", IsCompleted: true, CompletedAt: &d2},
		{ID: 3, UserID: 2, Title: "Last week", TaskDate: "2024-03-01", IsCompleted: true, CompletedAt: &d1},
		{ID: 4, UserID: 3, Title: "Next week", TaskDate: "2024-03-11", IsCompleted: true, CompletedAt: &d1},
	}

	groups := TeamCompletedInRange(tasks, teamUsers, 1, "2024-03-04", "2024-03-10")
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %d", len(groups))
	}
	if groups[0].Username != "bob" || len(groups[0].Tasks) != 1 || groups[0].Tasks[0].ID != 2 {
		t.Fatalf("unexpected group contents: %+v", groups[0])
	}
}

func TestInboxOutboxNewestFirst(t *testing.T) {
	requests := []entities.Request{
		{ID: 1, FromUserID: 2, ToUserID: 1, CreatedAt: at(9, 0)},
		{ID: 2, FromUserID: 3, ToUserID: 1, CreatedAt: at(11, 0)},
		{ID: 3, FromUserID: 1, ToUserID: 2, CreatedAt: at(10, 0)},
	}

	inbox := Inbox(requests, 1)
	if len(inbox) != 2 || inbox[0].ID != 2 || inbox[1].ID != 1 {
		t.Fatalf("unexpected inbox: %+v", inbox)
	}

	outbox := Outbox(requests, 1)
	if len(outbox) != 1 || outbox[0].ID != 3 {
		t.Fatalf("unexpected outbox: %+v", outbox)
	}
}

func TestUnreadCount(t *testing.T) {
	readAt := at(9, 30)
	requests := []entities.Request{
		{ID: 1, FromUserID: 2, ToUserID: 1},
		{ID: 2, FromUserID: 3, ToUserID: 1, IsRead: true, ReadAt: &readAt},
		{ID: 3, FromUserID: 2, ToUserID: 1},
		{ID: 4, FromUserID: 1, ToUserID: 2},
	}

	if got := UnreadCount(requests, 1); got != 2 {
		t.Fatalf("expected 2 unread, got %d", got)
	}
	if got := UnreadCount(requests, 3); got != 0 {
		t.Fatalf("expected 0 unread for user 3, got %d", got)
	}
}

func TestTeamPresence(t *testing.T) {
	now := at(12, 0)
	stale := 3 * time.Minute
	users := []entities.User{
		{ID: 1, Username: "alice", IsOnline: true, LastSeenAt: now.Add(-time.Minute)},
		{ID: 2, Username: "bob", IsOnline: true, LastSeenAt: now.Add(-10 * time.Minute)}, // flag stuck on, heartbeat stale
		{ID: 3, Username: "carol", IsOnline: false, LastSeenAt: now.Add(-time.Minute)},
	}

	got := TeamPresence(users, now, stale)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].Username != "alice" || !got[0].IsPresent {
		t.Fatalf("alice should lead as the only present user: %+v", got[0])
	}
	for _, pv := range got[1:] {
		if pv.IsPresent {
			t.Errorf("%s should not be present", pv.Username)
		}
	}
}

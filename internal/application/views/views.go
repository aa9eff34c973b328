// Package views derives display projections from the in-memory collections.
// Everything here is a pure function of its inputs: no remote calls, no
// state. Handlers pass in snapshots and render the result.
package views

import (
	"sort"
	"time"

	"github.com/teamtrack/core/internal/domain/entities"
)

// TaskView is a task annotated with its owner's display name.
type TaskView struct {
	entities.Task
	OwnerName string `json:"owner_name"`
}

// PresenceView is a user with derived online status.
type PresenceView struct {
	entities.User
	IsPresent bool `json:"is_present"`
}

// UserCompletedGroup is one teammate's completed tasks within a range.
type UserCompletedGroup struct {
	UserID   int64           `json:"user_id"`
	Username string          `json:"username"`
	Tasks    []entities.Task `json:"tasks"`
}

func usernameIndex(users []entities.User) map[int64]string {
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	return names
}

// TasksForDay returns one user's tasks scheduled for a day, incomplete first,
// then by creation time.
func TasksForDay(tasks []entities.Task, userID int64, dayKey string) []entities.Task {
	out := make([]entities.Task, 0)
	for _, t := range tasks {
		if t.UserID == userID && t.TaskDate == dayKey {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsCompleted != out[j].IsCompleted {
			return !out[i].IsCompleted
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// SharedTasksForDay returns every shared, incomplete task scheduled for a
// day, annotated with the owner's name.
func SharedTasksForDay(tasks []entities.Task, users []entities.User, dayKey string) []TaskView {
	names := usernameIndex(users)

	out := make([]TaskView, 0)
	for _, t := range tasks {
		if t.IsShared && !t.IsCompleted && t.TaskDate == dayKey {
			out = append(out, TaskView{Task: t, OwnerName: names[t.UserID]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OwnerName != out[j].OwnerName {
			return out[i].OwnerName < out[j].OwnerName
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// TeamCompletedInRange groups teammates' completed tasks whose day key falls
// within [startKey, endKey], excluding the viewing user. Groups are sorted
// by name, tasks by completion time.
func TeamCompletedInRange(tasks []entities.Task, users []entities.User, excludeUserID int64, startKey, endKey string) []UserCompletedGroup {
	names := usernameIndex(users)

	byUser := make(map[int64][]entities.Task)
	for _, t := range tasks {
		if !t.IsCompleted || t.UserID == excludeUserID {
			continue
		}
		if t.TaskDate < startKey || t.TaskDate > endKey {
			continue
		}
		byUser[t.UserID] = append(byUser[t.UserID], t)
	}

	out := make([]UserCompletedGroup, 0, len(byUser))
	for userID, userTasks := range byUser {
		sort.SliceStable(userTasks, func(i, j int) bool {
			ti, tj := userTasks[i], userTasks[j]
			if ti.CompletedAt == nil || tj.CompletedAt == nil {
				return ti.TaskDate < tj.TaskDate
			}
			return ti.CompletedAt.Before(*tj.CompletedAt)
		})
		out = append(out, UserCompletedGroup{
			UserID:   userID,
			Username: names[userID],
			Tasks:    userTasks,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Inbox returns requests addressed to the user, newest first.
func Inbox(requests []entities.Request, userID int64) []entities.Request {
	out := make([]entities.Request, 0)
	for _, r := range requests {
		if r.ToUserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Outbox returns requests the user has sent, newest first.
func Outbox(requests []entities.Request, userID int64) []entities.Request {
	out := make([]entities.Request, 0)
	for _, r := range requests {
		if r.FromUserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// UnreadCount counts the user's unread inbound requests.
func UnreadCount(requests []entities.Request, userID int64) int {
	count := 0
	for _, r := range requests {
		if r.ToUserID == userID && !r.IsRead {
			count++
		}
	}
	return count
}

// TeamPresence returns every user with derived presence, online first, then
// by name.
func TeamPresence(users []entities.User, now time.Time, staleAfter time.Duration) []PresenceView {
	out := make([]PresenceView, 0, len(users))
	for _, u := range users {
		out = append(out, PresenceView{User: u, IsPresent: u.IsPresent(now, staleAfter)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsPresent != out[j].IsPresent {
			return out[i].IsPresent
		}
		return out[i].Username < out[j].Username
	})
	return out
}

package entities

import (
	"errors"
	"strings"
	"time"
)

// Common errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrRequestNotFound    = errors.New("request not found")
	ErrEmptyTitle         = errors.New("title must not be empty")
	ErrEmptyUsername      = errors.New("username must not be empty")
	ErrMissingRecipient   = errors.New("recipient is required")
	ErrMissingMessage     = errors.New("message is required")
	ErrInvalidStatus      = errors.New("invalid request status")
	ErrAlreadyResponded   = errors.New("request has already been responded to")
	ErrNotAccepted        = errors.New("request is not in accepted status")
	ErrAlreadyCompleted   = errors.New("request is already completed")
	ErrNotRecipient       = errors.New("only the recipient may perform this action")
	ErrNoActiveSession    = errors.New("no active session")
	ErrInvalidDayKey      = errors.New("invalid day key, expected YYYY-MM-DD")
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

// User represents a team member. Identity is the display name: the first
// login by a given name creates the record, every later login reuses it.
type User struct {
	ID         int64     `json:"id" db:"id"`
	Username   string    `json:"username" db:"username"`
	IsOnline   bool      `json:"is_online" db:"is_online"`
	LastSeenAt time.Time `json:"last_seen_at" db:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Task represents a personal daily task scheduled for a calendar day.
type Task struct {
	ID          int64      `json:"id" db:"id"`
	UserID      int64      `json:"user_id" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	TaskDate    string     `json:"task_date" db:"task_date"`
	IsCompleted bool       `json:"is_completed" db:"is_completed"`
	IsShared    bool       `json:"is_shared" db:"is_shared"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Request represents a peer-to-peer work request between two users.
type Request struct {
	ID              int64         `json:"id" db:"id"`
	FromUserID      int64         `json:"from_user_id" db:"from_user_id"`
	ToUserID        int64         `json:"to_user_id" db:"to_user_id"`
	Title           string        `json:"title" db:"title"`
	Message         string        `json:"message" db:"message"`
	Status          RequestStatus `json:"status" db:"status"`
	IsRead          bool          `json:"is_read" db:"is_read"`
	ReadAt          *time.Time    `json:"read_at" db:"read_at"`
	IsCompleted     bool          `json:"is_completed" db:"is_completed"`
	CompletedAt     *time.Time    `json:"completed_at" db:"completed_at"`
	ResponseMessage *string       `json:"response_message" db:"response_message"`
	RespondedAt     *time.Time    `json:"responded_at" db:"responded_at"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
}

// Business logic methods for User

func (u *User) Touch(now time.Time) {
	u.IsOnline = true
	u.LastSeenAt = now
}

// IsPresent reports whether the user should be shown as online: the online
// flag alone is not trusted because a crashed client never clears it.
func (u *User) IsPresent(now time.Time, staleAfter time.Duration) bool {
	return u.IsOnline && now.Sub(u.LastSeenAt) <= staleAfter
}

// Business logic methods for Task

func (t *Task) MarkCompleted(now time.Time) {
	t.IsCompleted = true
	t.CompletedAt = &now
}

func (t *Task) MarkPending() {
	t.IsCompleted = false
	t.CompletedAt = nil
}

// IsStale reports whether the task should be migrated forward: incomplete
// and scheduled for a day strictly before today. Completed tasks are never
// stale regardless of age.
func (t *Task) IsStale(todayKey string) bool {
	return !t.IsCompleted && t.TaskDate < todayKey
}

// IsPrunable reports whether the task has aged out of the retention window.
// The boundary is inclusive: a task completed exactly retention ago is pruned.
func (t *Task) IsPrunable(cutoffKey string) bool {
	return t.IsCompleted && t.TaskDate <= cutoffKey
}

// CanToggleShare reports whether the share toggle should be offered.
// Completed tasks keep whatever shared value they had but stop exposing
// the affordance.
func (t *Task) CanToggleShare() bool {
	return !t.IsCompleted
}

func (t *Task) ValidateTitle() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// Business logic methods for Request

func (r *Request) IsPending() bool {
	return r.Status == RequestStatusPending
}

func (r *Request) CanRespond() bool {
	return r.Status == RequestStatusPending
}

func (r *Request) CanComplete() bool {
	return r.Status == RequestStatusAccepted && !r.IsCompleted
}

// IsTerminal reports whether no further status transitions are possible.
func (r *Request) IsTerminal() bool {
	return r.Status == RequestStatusRejected || r.IsCompleted
}

func (r *Request) MarkRead(now time.Time) {
	r.IsRead = true
	r.ReadAt = &now
}

func (r *Request) Respond(status RequestStatus, message string, now time.Time) error {
	if !r.CanRespond() {
		return ErrAlreadyResponded
	}
	if status != RequestStatusAccepted && status != RequestStatusRejected {
		return ErrInvalidStatus
	}
	r.Status = status
	if message != "" {
		r.ResponseMessage = &message
	}
	r.RespondedAt = &now
	return nil
}

func (r *Request) Complete(now time.Time) error {
	if r.Status != RequestStatusAccepted {
		return ErrNotAccepted
	}
	if r.IsCompleted {
		return ErrAlreadyCompleted
	}
	r.IsCompleted = true
	r.CompletedAt = &now
	return nil
}

// Utility methods

func (rs RequestStatus) IsValid() bool {
	switch rs {
	case RequestStatusPending, RequestStatusAccepted, RequestStatusRejected:
		return true
	default:
		return false
	}
}

package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/teamtrack/core/internal/domain/entities"
)

// UserRepository defines the interface for user records in the remote store.
type UserRepository interface {
	List(ctx context.Context, filter UserFilter) ([]entities.User, error)
	Create(ctx context.Context, user *entities.User) (*entities.User, error)
	Update(ctx context.Context, id int64, patch UserPatch) (*entities.User, error)
}

// TaskRepository defines the interface for task records in the remote store.
type TaskRepository interface {
	List(ctx context.Context, filter TaskFilter) ([]entities.Task, error)
	Create(ctx context.Context, task *entities.Task) (*entities.Task, error)
	Update(ctx context.Context, id int64, patch TaskPatch) (*entities.Task, error)
	Delete(ctx context.Context, id int64) error
}

// RequestRepository defines the interface for request records in the remote store.
type RequestRepository interface {
	List(ctx context.Context, filter RequestFilter) ([]entities.Request, error)
	Create(ctx context.Context, request *entities.Request) (*entities.Request, error)
	Update(ctx context.Context, id int64, patch RequestPatch) (*entities.Request, error)
	Delete(ctx context.Context, id int64) error
}

// SessionStore persists the signed-in user across process restarts.
type SessionStore interface {
	Save(ctx context.Context, user *entities.User) error
	Load(ctx context.Context) (*entities.User, error)
	Clear(ctx context.Context) error
	Close() error
}

// Filter types for repository queries. Nil fields are not applied.

type UserFilter struct {
	Username *string
	Limit    int
}

type TaskFilter struct {
	UserID      *int64
	TaskDate    *string
	DateBefore  *string
	IsCompleted *bool
	IsShared    *bool
	Limit       int
}

type RequestFilter struct {
	FromUserID *int64
	ToUserID   *int64
	Status     *entities.RequestStatus
	Limit      int
}

// Patch types for partial updates. Nil fields are left out of the request
// body entirely; the store returns the full updated representation so no
// follow-up read is needed.

type UserPatch struct {
	IsOnline   *bool
	LastSeenAt *time.Time
}

func (p UserPatch) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{})
	if p.IsOnline != nil {
		m["is_online"] = *p.IsOnline
	}
	if p.LastSeenAt != nil {
		m["last_seen_at"] = *p.LastSeenAt
	}
	return json.Marshal(m)
}

// TaskPatch updates a task. CompletedAt rides along with IsCompleted so a
// transition back to pending serializes an explicit null and clears the
// timestamp remotely.
type TaskPatch struct {
	Title       *string
	TaskDate    *string
	IsCompleted *bool
	CompletedAt *time.Time
	IsShared    *bool
}

func (p TaskPatch) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{})
	if p.Title != nil {
		m["title"] = *p.Title
	}
	if p.TaskDate != nil {
		m["task_date"] = *p.TaskDate
	}
	if p.IsCompleted != nil {
		m["is_completed"] = *p.IsCompleted
		m["completed_at"] = p.CompletedAt
	}
	if p.IsShared != nil {
		m["is_shared"] = *p.IsShared
	}
	return json.Marshal(m)
}

type RequestPatch struct {
	IsRead          *bool
	ReadAt          *time.Time
	Status          *entities.RequestStatus
	ResponseMessage *string
	RespondedAt     *time.Time
	IsCompleted     *bool
	CompletedAt     *time.Time
}

func (p RequestPatch) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{})
	if p.IsRead != nil {
		m["is_read"] = *p.IsRead
		m["read_at"] = p.ReadAt
	}
	if p.Status != nil {
		m["status"] = *p.Status
		m["responded_at"] = p.RespondedAt
		if p.ResponseMessage != nil {
			m["response_message"] = *p.ResponseMessage
		}
	}
	if p.IsCompleted != nil {
		m["is_completed"] = *p.IsCompleted
		m["completed_at"] = p.CompletedAt
	}
	return json.Marshal(m)
}

package remote

import (
	"context"
	"net/http"

	"github.com/teamtrack/core/internal/domain/entities"
	"github.com/teamtrack/core/internal/ports"
)

// The store wraps single-row writes in a one-element array when asked for
// the affected representation; firstOrErr unwraps that.
func firstOrErr[T any](rows []T, notFound error) (*T, error) {
	if len(rows) == 0 {
		return nil, notFound
	}
	return &rows[0], nil
}

// UserRepositoryImpl implements ports.UserRepository over the remote store.
type UserRepositoryImpl struct {
	client *Client
}

// NewUserRepository creates a new user repository.
func NewUserRepository(client *Client) ports.UserRepository {
	return &UserRepositoryImpl{client: client}
}

func (r *UserRepositoryImpl) List(ctx context.Context, filter ports.UserFilter) ([]entities.User, error) {
	q := NewQuery()
	if filter.Username != nil {
		q = q.Eq("username", *filter.Username)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var users []entities.User
	if err := r.client.Do(ctx, http.MethodGet, "users", q, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *entities.User) (*entities.User, error) {
	body := map[string]interface{}{
		"username":     user.Username,
		"is_online":    user.IsOnline,
		"last_seen_at": user.LastSeenAt,
	}

	var rows []entities.User
	if err := r.client.Do(ctx, http.MethodPost, "users", Query{}, body, &rows); err != nil {
		return nil, err
	}
	return firstOrErr(rows, entities.ErrUserNotFound)
}

func (r *UserRepositoryImpl) Update(ctx context.Context, id int64, patch ports.UserPatch) (*entities.User, error) {
	q := Query{}.Eq("id", id)

	var rows []entities.User
	if err := r.client.Do(ctx, http.MethodPatch, "users", q, patch, &rows); err != nil {
		return nil, err
	}
	return firstOrErr(rows, entities.ErrUserNotFound)
}

// TaskRepositoryImpl implements ports.TaskRepository over the remote store.
type TaskRepositoryImpl struct {
	client *Client
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(client *Client) ports.TaskRepository {
	return &TaskRepositoryImpl{client: client}
}

func (r *TaskRepositoryImpl) List(ctx context.Context, filter ports.TaskFilter) ([]entities.Task, error) {
	q := NewQuery()
	if filter.UserID != nil {
		q = q.Eq("user_id", *filter.UserID)
	}
	if filter.TaskDate != nil {
		q = q.Eq("task_date", *filter.TaskDate)
	}
	if filter.DateBefore != nil {
		q = q.Lt("task_date", *filter.DateBefore)
	}
	if filter.IsCompleted != nil {
		q = q.Eq("is_completed", *filter.IsCompleted)
	}
	if filter.IsShared != nil {
		q = q.Eq("is_shared", *filter.IsShared)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	q = q.Order("created_at", false)

	var tasks []entities.Task
	if err := r.client.Do(ctx, http.MethodGet, "tasks", q, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *entities.Task) (*entities.Task, error) {
	body := map[string]interface{}{
		"user_id":      task.UserID,
		"title":        task.Title,
		"task_date":    task.TaskDate,
		"is_completed": task.IsCompleted,
		"is_shared":    task.IsShared,
	}

	var rows []entities.Task
	if err := r.client.Do(ctx, http.MethodPost, "tasks", Query{}, body, &rows); err != nil {
		return nil, err
	}
	return firstOrErr(rows, entities.ErrTaskNotFound)
}

func (r *TaskRepositoryImpl) Update(ctx context.Context, id int64, patch ports.TaskPatch) (*entities.Task, error) {
	q := Query{}.Eq("id", id)

	var rows []entities.Task
	if err := r.client.Do(ctx, http.MethodPatch, "tasks", q, patch, &rows); err != nil {
		return nil, err
	}
	return firstOrErr(rows, entities.ErrTaskNotFound)
}

func (r *TaskRepositoryImpl) Delete(ctx context.Context, id int64) error {
	q := Query{}.Eq("id", id)
	return r.client.Do(ctx, http.MethodDelete, "tasks", q, nil, nil)
}

// RequestRepositoryImpl implements ports.RequestRepository over the remote store.
type RequestRepositoryImpl struct {
	client *Client
}

// NewRequestRepository creates a new request repository.
func NewRequestRepository(client *Client) ports.RequestRepository {
	return &RequestRepositoryImpl{client: client}
}

func (r *RequestRepositoryImpl) List(ctx context.Context, filter ports.RequestFilter) ([]entities.Request, error) {
	q := NewQuery()
	if filter.FromUserID != nil {
		q = q.Eq("from_user_id", *filter.FromUserID)
	}
	if filter.ToUserID != nil {
		q = q.Eq("to_user_id", *filter.ToUserID)
	}
	if filter.Status != nil {
		q = q.Eq("status", *filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	q = q.Order("created_at", true)

	var requests []entities.Request
	if err := r.client.Do(ctx, http.MethodGet, "requests", q, nil, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *RequestRepositoryImpl) Create(ctx context.Context, request *entities.Request) (*entities.Request, error) {
	body := map[string]interface{}{
		"from_user_id": request.FromUserID,
		"to_user_id":   request.ToUserID,
		"title":        request.Title,
		"message":      request.Message,
		"status":       request.Status,
		"is_read":      request.IsRead,
		"is_completed": request.IsCompleted,
	}

	var rows []entities.Request
	if err := r.client.Do(ctx, http.MethodPost, "requests", Query{}, body, &rows); err != nil {
		return nil, err
	}
	return firstOrErr(rows, entities.ErrRequestNotFound)
}

func (r *RequestRepositoryImpl) Update(ctx context.Context, id int64, patch ports.RequestPatch) (*entities.Request, error) {
	q := Query{}.Eq("id", id)

	var rows []entities.Request
	if err := r.client.Do(ctx, http.MethodPatch, "requests", q, patch, &rows); err != nil {
		return nil, err
	}
	return firstOrErr(rows, entities.ErrRequestNotFound)
}

func (r *RequestRepositoryImpl) Delete(ctx context.Context, id int64) error {
	q := Query{}.Eq("id", id)
	return r.client.Do(ctx, http.MethodDelete, "requests", q, nil, nil)
}

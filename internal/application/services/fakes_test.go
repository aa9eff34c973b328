package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/teamtrack/core/internal/domain/entities"
	"github.com/teamtrack/core/internal/ports"
)

// In-memory repository fakes that apply patches the way the remote store
// would, returning the updated representation.

type fakeTaskRepo struct {
	mu         sync.Mutex
	tasks      map[int64]entities.Task
	nextID     int64
	updates    int
	deletes    int
	failDelete map[int64]bool
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[int64]entities.Task), failDelete: make(map[int64]bool)}
}

func (f *fakeTaskRepo) seed(task entities.Task) entities.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	if task.ID == 0 {
		f.nextID++
		task.ID = f.nextID
	} else if task.ID > f.nextID {
		f.nextID = task.ID
	}
	f.tasks[task.ID] = task
	return task
}

func (f *fakeTaskRepo) List(ctx context.Context, filter ports.TaskFilter) ([]entities.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entities.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTaskRepo) Create(ctx context.Context, task *entities.Task) (*entities.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	created := *task
	created.ID = f.nextID
	created.CreatedAt = time.Now()
	f.tasks[created.ID] = created
	return &created, nil
}

func (f *fakeTaskRepo) Update(ctx context.Context, id int64, patch ports.TaskPatch) (*entities.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, entities.ErrTaskNotFound
	}
	f.updates++
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.TaskDate != nil {
		task.TaskDate = *patch.TaskDate
	}
	if patch.IsCompleted != nil {
		task.IsCompleted = *patch.IsCompleted
		task.CompletedAt = patch.CompletedAt
	}
	if patch.IsShared != nil {
		task.IsShared = *patch.IsShared
	}
	f.tasks[id] = task
	return &task, nil
}

func (f *fakeTaskRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete[id] {
		return fmt.Errorf("simulated delete failure for task %d", id)
	}
	f.deletes++
	delete(f.tasks, id)
	return nil
}

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[int64]entities.Request
	nextID   int64
	updates  int
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[int64]entities.Request)}
}

func (f *fakeRequestRepo) List(ctx context.Context, filter ports.RequestFilter) ([]entities.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entities.Request, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRequestRepo) Create(ctx context.Context, request *entities.Request) (*entities.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	created := *request
	created.ID = f.nextID
	created.CreatedAt = time.Now()
	f.requests[created.ID] = created
	return &created, nil
}

func (f *fakeRequestRepo) Update(ctx context.Context, id int64, patch ports.RequestPatch) (*entities.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok {
		return nil, entities.ErrRequestNotFound
	}
	f.updates++
	if patch.IsRead != nil {
		request.IsRead = *patch.IsRead
		request.ReadAt = patch.ReadAt
	}
	if patch.Status != nil {
		request.Status = *patch.Status
		request.RespondedAt = patch.RespondedAt
		if patch.ResponseMessage != nil {
			request.ResponseMessage = patch.ResponseMessage
		}
	}
	if patch.IsCompleted != nil {
		request.IsCompleted = *patch.IsCompleted
		request.CompletedAt = patch.CompletedAt
	}
	f.requests[id] = request
	return &request, nil
}

func (f *fakeRequestRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.requests, id)
	return nil
}

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[int64]entities.User
	nextID  int64
	updates int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]entities.User)}
}

func (f *fakeUserRepo) seed(user entities.User) entities.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == 0 {
		f.nextID++
		user.ID = f.nextID
	} else if user.ID > f.nextID {
		f.nextID = user.ID
	}
	f.users[user.ID] = user
	return user
}

func (f *fakeUserRepo) List(ctx context.Context, filter ports.UserFilter) ([]entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entities.User, 0, len(f.users))
	for _, u := range f.users {
		if filter.Username != nil && u.Username != *filter.Username {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, user *entities.User) (*entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	created := *user
	created.ID = f.nextID
	created.CreatedAt = time.Now()
	f.users[created.ID] = created
	return &created, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, id int64, patch ports.UserPatch) (*entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	f.updates++
	if patch.IsOnline != nil {
		user.IsOnline = *patch.IsOnline
	}
	if patch.LastSeenAt != nil {
		user.LastSeenAt = *patch.LastSeenAt
	}
	f.users[id] = user
	return &user, nil
}

type fakeSessionStore struct {
	mu   sync.Mutex
	user *entities.User
}

func (f *fakeSessionStore) Save(ctx context.Context, user *entities.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *user
	f.user = &copied
	return nil
}

func (f *fakeSessionStore) Load(ctx context.Context) (*entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.user == nil {
		return nil, entities.ErrNoActiveSession
	}
	copied := *f.user
	return &copied, nil
}

func (f *fakeSessionStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = nil
	return nil
}

func (f *fakeSessionStore) Close() error { return nil }

package services

import (
	"sync"

	"github.com/teamtrack/core/internal/domain/entities"
)

// SessionState is the explicit application-session context: the signed-in
// user plus the in-memory copies of the remote collections. Collections are
// fully replaced on each reload (last full reload wins); single mutations
// insert, replace or remove one record by identifier. All access goes
// through the mutex because the polling jobs run on their own goroutines.
type SessionState struct {
	mu       sync.RWMutex
	user     *entities.User
	tasks    []entities.Task
	users    []entities.User
	requests []entities.Request
}

// NewSessionState creates an empty session state.
func NewSessionState() *SessionState {
	return &SessionState{}
}

// Reset drops everything, used on logout.
func (s *SessionState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.tasks = nil
	s.users = nil
	s.requests = nil
}

// Current user

func (s *SessionState) SetUser(u *entities.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u == nil {
		s.user = nil
		return
	}
	copied := *u
	s.user = &copied
}

// CurrentUser returns a copy of the signed-in user, or nil when logged out.
func (s *SessionState) CurrentUser() *entities.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	copied := *s.user
	return &copied
}

// Tasks

func (s *SessionState) ReplaceTasks(tasks []entities.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append([]entities.Task(nil), tasks...)
}

func (s *SessionState) UpsertTask(task entities.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == task.ID {
			s.tasks[i] = task
			return
		}
	}
	s.tasks = append(s.tasks, task)
}

func (s *SessionState) RemoveTask(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return
		}
	}
}

func (s *SessionState) TaskByID(id int64) (entities.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return s.tasks[i], true
		}
	}
	return entities.Task{}, false
}

// TasksSnapshot returns a copy of the task collection.
func (s *SessionState) TasksSnapshot() []entities.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Task(nil), s.tasks...)
}

// Users

func (s *SessionState) ReplaceUsers(users []entities.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append([]entities.User(nil), users...)
}

func (s *SessionState) UsersSnapshot() []entities.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.User(nil), s.users...)
}

// Requests

func (s *SessionState) ReplaceRequests(requests []entities.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append([]entities.Request(nil), requests...)
}

func (s *SessionState) UpsertRequest(request entities.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.requests {
		if s.requests[i].ID == request.ID {
			s.requests[i] = request
			return
		}
	}
	s.requests = append(s.requests, request)
}

func (s *SessionState) RemoveRequest(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.requests {
		if s.requests[i].ID == id {
			s.requests = append(s.requests[:i], s.requests[i+1:]...)
			return
		}
	}
}

func (s *SessionState) RequestByID(id int64) (entities.Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.requests {
		if s.requests[i].ID == id {
			return s.requests[i], true
		}
	}
	return entities.Request{}, false
}

func (s *SessionState) RequestsSnapshot() []entities.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Request(nil), s.requests...)
}

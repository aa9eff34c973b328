package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teamtrack/core/internal/domain/entities"
	"github.com/teamtrack/core/internal/infrastructure/logger"
	"github.com/teamtrack/core/internal/ports"
)

// SessionService manages the signed-in identity and its presence: login by
// display name (first login creates the user), restore across restarts via
// the local store, periodic heartbeats, and the best-effort exit beacon.
type SessionService struct {
	userRepo     ports.UserRepository
	sessionStore ports.SessionStore
	state        *SessionState
	logger       *logger.Logger
	now          func() time.Time
}

// NewSessionService creates a new session service.
func NewSessionService(userRepo ports.UserRepository, sessionStore ports.SessionStore, state *SessionState, appLogger *logger.Logger) *SessionService {
	return &SessionService{
		userRepo:     userRepo,
		sessionStore: sessionStore,
		state:        state,
		logger:       appLogger.WithComponent("session"),
		now:          time.Now,
	}
}

// Login signs in by display name. The name is matched exactly against the
// user list; a miss creates the record. Either way the user comes back
// online and the session is persisted locally.
func (s *SessionService) Login(ctx context.Context, username string) (*entities.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, entities.ErrEmptyUsername
	}

	users, err := s.userRepo.List(ctx, ports.UserFilter{Limit: reloadLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to look up users: %w", err)
	}

	now := s.now()
	var user *entities.User
	for i := range users {
		if users[i].Username == username {
			existing := users[i]
			existing.Touch(now)
			updated, err := s.userRepo.Update(ctx, existing.ID, ports.UserPatch{IsOnline: &existing.IsOnline, LastSeenAt: &existing.LastSeenAt})
			if err != nil {
				return nil, fmt.Errorf("failed to update presence: %w", err)
			}
			user = updated
			break
		}
	}

	if user == nil {
		created, err := s.userRepo.Create(ctx, &entities.User{
			Username:   username,
			IsOnline:   true,
			LastSeenAt: now,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		user = created
		s.logger.Info("New user created on first login", "user_id", user.ID, "username", username)
	}

	if err := s.sessionStore.Save(ctx, user); err != nil {
		// Session persistence is a convenience; a failed save costs one
		// re-login after restart, not the login itself.
		s.logger.Warn("Failed to persist session locally", "error", err)
	}

	s.state.SetUser(user)
	s.logger.Info("User logged in", "user_id", user.ID, "username", username)

	return user, nil
}

// Restore brings back the previously signed-in user from the local store
// and refreshes their presence remotely.
func (s *SessionService) Restore(ctx context.Context) (*entities.User, error) {
	saved, err := s.sessionStore.Load(ctx)
	if err != nil {
		if errors.Is(err, entities.ErrNoActiveSession) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load saved session: %w", err)
	}

	saved.Touch(s.now())
	user, err := s.userRepo.Update(ctx, saved.ID, ports.UserPatch{IsOnline: &saved.IsOnline, LastSeenAt: &saved.LastSeenAt})
	if err != nil {
		return nil, fmt.Errorf("failed to refresh presence on restore: %w", err)
	}

	s.state.SetUser(user)
	s.logger.Info("Session restored", "user_id", user.ID, "username", user.Username)

	return user, nil
}

// Heartbeat refreshes the current user's last-activity timestamp. No-op when
// logged out.
func (s *SessionService) Heartbeat(ctx context.Context) error {
	user := s.state.CurrentUser()
	if user == nil {
		return nil
	}

	user.Touch(s.now())
	updated, err := s.userRepo.Update(ctx, user.ID, ports.UserPatch{IsOnline: &user.IsOnline, LastSeenAt: &user.LastSeenAt})
	if err != nil {
		return fmt.Errorf("heartbeat failed: %w", err)
	}

	s.state.SetUser(updated)
	return nil
}

// Logout marks the user offline, clears the local session and resets the
// in-memory state.
func (s *SessionService) Logout(ctx context.Context) error {
	user := s.state.CurrentUser()
	if user == nil {
		return entities.ErrNoActiveSession
	}

	offline := false
	now := s.now()
	if _, err := s.userRepo.Update(ctx, user.ID, ports.UserPatch{IsOnline: &offline, LastSeenAt: &now}); err != nil {
		return fmt.Errorf("failed to mark user offline: %w", err)
	}

	if err := s.sessionStore.Clear(ctx); err != nil {
		s.logger.Warn("Failed to clear local session", "error", err)
	}

	s.state.Reset()
	s.logger.Info("User logged out", "user_id", user.ID)

	return nil
}

// ExitBeacon fires a final offline write during shutdown, blocking for at
// most a few seconds so the process cannot exit underneath it. Presence is
// advisory, so a missed beacon only costs accuracy until the staleness
// window lapses.
func (s *SessionService) ExitBeacon() {
	user := s.state.CurrentUser()
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	offline := false
	now := s.now()
	if _, err := s.userRepo.Update(ctx, user.ID, ports.UserPatch{IsOnline: &offline, LastSeenAt: &now}); err != nil {
		s.logger.Debug("Exit beacon not delivered", "error", err)
	}
}

// ReloadUsers replaces the in-memory user collection with a full fetch.
func (s *SessionService) ReloadUsers(ctx context.Context) error {
	users, err := s.userRepo.List(ctx, ports.UserFilter{Limit: reloadLimit})
	if err != nil {
		return fmt.Errorf("failed to reload users: %w", err)
	}

	s.state.ReplaceUsers(users)
	return nil
}

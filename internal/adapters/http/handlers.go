package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/teamtrack/core/internal/application/services"
	"github.com/teamtrack/core/internal/application/views"
	"github.com/teamtrack/core/internal/domain/entities"
	"github.com/teamtrack/core/internal/infrastructure/logger"
)

// MessageResponse is a plain acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// httpError maps domain errors onto HTTP status codes. Remote store errors
// are handled by the server's central error handler.
func httpError(err error) error {
	switch {
	case errors.Is(err, entities.ErrTaskNotFound),
		errors.Is(err, entities.ErrRequestNotFound),
		errors.Is(err, entities.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, entities.ErrEmptyTitle),
		errors.Is(err, entities.ErrEmptyUsername),
		errors.Is(err, entities.ErrMissingRecipient),
		errors.Is(err, entities.ErrMissingMessage),
		errors.Is(err, entities.ErrInvalidStatus),
		errors.Is(err, entities.ErrInvalidDayKey):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, entities.ErrAlreadyResponded),
		errors.Is(err, entities.ErrNotAccepted),
		errors.Is(err, entities.ErrAlreadyCompleted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, entities.ErrNotRecipient):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, entities.ErrNoActiveSession):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	default:
		return err
	}
}

// SessionHandler handles login, logout and session introspection.
type SessionHandler struct {
	sessionService *services.SessionService
	state          *services.SessionState
	logger         *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessionService *services.SessionService, state *services.SessionState, appLogger *logger.Logger) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		state:          state,
		logger:         appLogger,
	}
}

// LoginRequest is the login body.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
}

// SessionResponse describes the signed-in session.
type SessionResponse struct {
	User        *entities.User `json:"user"`
	UnreadCount int            `json:"unread_count"`
}

// Login handles name-based login.
func (h *SessionHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.sessionService.Login(c.Request().Context(), req.Username)
	if err != nil {
		h.logger.Error("Login failed", "error", err, "username", req.Username)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, SessionResponse{User: user})
}

// Logout handles logout.
func (h *SessionHandler) Logout(c echo.Context) error {
	if err := h.sessionService.Logout(c.Request().Context()); err != nil {
		h.logger.Error("Logout failed", "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Logged out"})
}

// GetSession returns the current session and unread request count.
func (h *SessionHandler) GetSession(c echo.Context) error {
	user := h.state.CurrentUser()
	if user == nil {
		return httpError(entities.ErrNoActiveSession)
	}

	return c.JSON(http.StatusOK, SessionResponse{
		User:        user,
		UnreadCount: views.UnreadCount(h.state.RequestsSnapshot(), user.ID),
	})
}

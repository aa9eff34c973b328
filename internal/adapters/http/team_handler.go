package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/teamtrack/core/internal/application/services"
	"github.com/teamtrack/core/internal/application/views"
	"github.com/teamtrack/core/internal/domain/dates"
	"github.com/teamtrack/core/internal/domain/entities"
	"github.com/teamtrack/core/internal/infrastructure/logger"
)

// TeamHandler serves the teammate-facing projections: shared tasks for a
// day, completed tasks for a week, and presence.
type TeamHandler struct {
	state         *services.SessionState
	presenceStale time.Duration
	logger        *logger.Logger
}

// NewTeamHandler creates a new team handler.
func NewTeamHandler(state *services.SessionState, presenceStale time.Duration, appLogger *logger.Logger) *TeamHandler {
	return &TeamHandler{
		state:         state,
		presenceStale: presenceStale,
		logger:        appLogger,
	}
}

func (h *TeamHandler) sessionUser() (*entities.User, error) {
	user := h.state.CurrentUser()
	if user == nil {
		return nil, entities.ErrNoActiveSession
	}
	return user, nil
}

// SharedForDay returns all teammates' shared incomplete tasks for a day.
func (h *TeamHandler) SharedForDay(c echo.Context) error {
	if _, err := h.sessionUser(); err != nil {
		return httpError(err)
	}

	dayKey := c.QueryParam("date")
	if dayKey == "" {
		dayKey = dates.DayKey(time.Now())
	} else if _, err := dates.ParseDayKey(dayKey); err != nil {
		return httpError(err)
	}

	tasks := views.SharedTasksForDay(h.state.TasksSnapshot(), h.state.UsersSnapshot(), dayKey)
	return c.JSON(http.StatusOK, tasks)
}

// CompletedWeekResponse carries the week bounds next to the grouped tasks.
type CompletedWeekResponse struct {
	WeekStart string                    `json:"week_start"`
	WeekEnd   string                    `json:"week_end"`
	Groups    []views.UserCompletedGroup `json:"groups"`
}

// CompletedWeek returns teammates' completed tasks for the week containing
// the given date (today by default), excluding the viewer's own.
func (h *TeamHandler) CompletedWeek(c echo.Context) error {
	user, err := h.sessionUser()
	if err != nil {
		return httpError(err)
	}

	anchor := time.Now()
	if raw := c.QueryParam("date"); raw != "" {
		parsed, err := dates.ParseDayKey(raw)
		if err != nil {
			return httpError(err)
		}
		anchor = parsed
	}

	startKey, endKey := dates.WeekRange(anchor)
	groups := views.TeamCompletedInRange(h.state.TasksSnapshot(), h.state.UsersSnapshot(), user.ID, startKey, endKey)

	return c.JSON(http.StatusOK, CompletedWeekResponse{
		WeekStart: startKey,
		WeekEnd:   endKey,
		Groups:    groups,
	})
}

// Presence returns every user with derived online status.
func (h *TeamHandler) Presence(c echo.Context) error {
	if _, err := h.sessionUser(); err != nil {
		return httpError(err)
	}

	team := views.TeamPresence(h.state.UsersSnapshot(), time.Now(), h.presenceStale)
	return c.JSON(http.StatusOK, team)
}

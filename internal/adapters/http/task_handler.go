package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/teamtrack/core/internal/application/services"
	"github.com/teamtrack/core/internal/application/views"
	"github.com/teamtrack/core/internal/domain/dates"
	"github.com/teamtrack/core/internal/domain/entities"
	"github.com/teamtrack/core/internal/infrastructure/logger"
)

// TaskHandler handles the signed-in user's task operations.
type TaskHandler struct {
	taskService *services.TaskService
	state       *services.SessionState
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(taskService *services.TaskService, state *services.SessionState, appLogger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		state:       state,
		logger:      appLogger,
	}
}

// CreateTaskRequest is the task creation body.
type CreateTaskRequest struct {
	Title string `json:"title" validate:"required"`
	Date  string `json:"date" validate:"required"`
}

func (h *TaskHandler) sessionUser() (*entities.User, error) {
	user := h.state.CurrentUser()
	if user == nil {
		return nil, entities.ErrNoActiveSession
	}
	return user, nil
}

func taskIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid task id")
	}
	return id, nil
}

// ownTaskID resolves the :id param and rejects ids belonging to other users.
// Teammates' ids are visible on the shared board, so a foreign id is treated
// the same as an absent one.
func (h *TaskHandler) ownTaskID(c echo.Context) (int64, error) {
	user, err := h.sessionUser()
	if err != nil {
		return 0, httpError(err)
	}
	id, err := taskIDParam(c)
	if err != nil {
		return 0, err
	}
	if task, ok := h.state.TaskByID(id); ok && task.UserID != user.ID {
		return 0, httpError(entities.ErrTaskNotFound)
	}
	return id, nil
}

// ListForDay returns the user's own tasks for a day (today by default).
func (h *TaskHandler) ListForDay(c echo.Context) error {
	user, err := h.sessionUser()
	if err != nil {
		return httpError(err)
	}

	dayKey := c.QueryParam("date")
	if dayKey == "" {
		dayKey = dates.DayKey(time.Now())
	} else if _, err := dates.ParseDayKey(dayKey); err != nil {
		return httpError(err)
	}

	tasks := views.TasksForDay(h.state.TasksSnapshot(), user.ID, dayKey)
	return c.JSON(http.StatusOK, tasks)
}

// Create creates a task for the signed-in user.
func (h *TaskHandler) Create(c echo.Context) error {
	user, err := h.sessionUser()
	if err != nil {
		return httpError(err)
	}

	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.Create(c.Request().Context(), user.ID, req.Title, req.Date)
	if err != nil {
		h.logger.Error("Create task failed", "error", err)
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, task)
}

// ToggleComplete flips a task's completed flag.
func (h *TaskHandler) ToggleComplete(c echo.Context) error {
	id, err := h.ownTaskID(c)
	if err != nil {
		return err
	}

	task, err := h.taskService.ToggleComplete(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, task)
}

// ToggleShare flips a task's shared flag.
func (h *TaskHandler) ToggleShare(c echo.Context) error {
	id, err := h.ownTaskID(c)
	if err != nil {
		return err
	}

	task, err := h.taskService.ToggleShare(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, task)
}

// Delete removes a task. The UI asks for confirmation before calling this.
func (h *TaskHandler) Delete(c echo.Context) error {
	id, err := h.ownTaskID(c)
	if err != nil {
		return err
	}

	if err := h.taskService.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Task deleted"})
}

package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/teamtrack/core/internal/application/services"
	"github.com/teamtrack/core/internal/application/views"
	"github.com/teamtrack/core/internal/domain/entities"
	"github.com/teamtrack/core/internal/infrastructure/logger"
)

// RequestHandler handles the peer-to-peer request workflow.
type RequestHandler struct {
	requestService *services.RequestService
	state          *services.SessionState
	logger         *logger.Logger
}

// NewRequestHandler creates a new request handler.
func NewRequestHandler(requestService *services.RequestService, state *services.SessionState, appLogger *logger.Logger) *RequestHandler {
	return &RequestHandler{
		requestService: requestService,
		state:          state,
		logger:         appLogger,
	}
}

// SendRequestBody is the request creation body.
type SendRequestBody struct {
	ToUserID int64  `json:"to_user_id" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Message  string `json:"message" validate:"required"`
}

// RespondBody is the accept/reject body.
type RespondBody struct {
	Decision string `json:"decision" validate:"required,oneof=accepted rejected"`
	Message  string `json:"message"`
}

func (h *RequestHandler) sessionUser() (*entities.User, error) {
	user := h.state.CurrentUser()
	if user == nil {
		return nil, entities.ErrNoActiveSession
	}
	return user, nil
}

func requestIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid request id")
	}
	return id, nil
}

// Inbox returns requests addressed to the signed-in user.
func (h *RequestHandler) Inbox(c echo.Context) error {
	user, err := h.sessionUser()
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, views.Inbox(h.state.RequestsSnapshot(), user.ID))
}

// Outbox returns requests the signed-in user has sent.
func (h *RequestHandler) Outbox(c echo.Context) error {
	user, err := h.sessionUser()
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, views.Outbox(h.state.RequestsSnapshot(), user.ID))
}

// Send creates a request to another user.
func (h *RequestHandler) Send(c echo.Context) error {
	user, err := h.sessionUser()
	if err != nil {
		return httpError(err)
	}

	var body SendRequestBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	request, err := h.requestService.Send(c.Request().Context(), user.ID, body.ToUserID, body.Title, body.Message)
	if err != nil {
		h.logger.Error("Send request failed", "error", err)
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, request)
}

// MarkRead sets the read receipt on an inbound request.
func (h *RequestHandler) MarkRead(c echo.Context) error {
	user, err := h.sessionUser()
	if err != nil {
		return httpError(err)
	}
	id, err := requestIDParam(c)
	if err != nil {
		return err
	}

	request, err := h.requestService.MarkRead(c.Request().Context(), user.ID, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, request)
}

// Respond accepts or rejects a pending request.
func (h *RequestHandler) Respond(c echo.Context) error {
	user, err := h.sessionUser()
	if err != nil {
		return httpError(err)
	}
	id, err := requestIDParam(c)
	if err != nil {
		return err
	}

	var body RespondBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	request, err := h.requestService.Respond(c.Request().Context(), user.ID, id, entities.RequestStatus(body.Decision), body.Message)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, request)
}

// Complete marks an accepted request as done.
func (h *RequestHandler) Complete(c echo.Context) error {
	user, err := h.sessionUser()
	if err != nil {
		return httpError(err)
	}
	id, err := requestIDParam(c)
	if err != nil {
		return err
	}

	request, err := h.requestService.Complete(c.Request().Context(), user.ID, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, request)
}

// Delete removes a request; either party may do so.
func (h *RequestHandler) Delete(c echo.Context) error {
	user, err := h.sessionUser()
	if err != nil {
		return httpError(err)
	}
	id, err := requestIDParam(c)
	if err != nil {
		return err
	}

	if err := h.requestService.Delete(c.Request().Context(), user.ID, id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Request deleted"})
}

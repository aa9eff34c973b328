package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teamtrack/core/internal/domain/entities"
	"github.com/teamtrack/core/internal/infrastructure/logger"
	"github.com/teamtrack/core/internal/ports"
)

// RequestService owns the peer-to-peer request workflow: send, read receipt,
// accept/reject, optional completion, deletion. Status moves one way only:
// pending to accepted or rejected, accepted optionally to completed.
type RequestService struct {
	requestRepo ports.RequestRepository
	state       *SessionState
	logger      *logger.Logger
	now         func() time.Time
}

// NewRequestService creates a new request service.
func NewRequestService(requestRepo ports.RequestRepository, state *SessionState, appLogger *logger.Logger) *RequestService {
	return &RequestService{
		requestRepo: requestRepo,
		state:       state,
		logger:      appLogger.WithComponent("requests"),
		now:         time.Now,
	}
}

// Send creates a pending request from one user to another.
func (s *RequestService) Send(ctx context.Context, fromID, toID int64, title, message string) (*entities.Request, error) {
	if toID == 0 {
		return nil, entities.ErrMissingRecipient
	}
	if strings.TrimSpace(title) == "" {
		return nil, entities.ErrEmptyTitle
	}
	if strings.TrimSpace(message) == "" {
		return nil, entities.ErrMissingMessage
	}

	request := &entities.Request{
		FromUserID: fromID,
		ToUserID:   toID,
		Title:      strings.TrimSpace(title),
		Message:    strings.TrimSpace(message),
		Status:     entities.RequestStatusPending,
	}

	created, err := s.requestRepo.Create(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	s.state.UpsertRequest(*created)
	s.logger.Info("Request sent", "request_id", created.ID, "to_user_id", toID)

	return created, nil
}

// MarkRead sets the read receipt on an inbound request. The first read
// stamps read_at; later reads rewrite the same values, so the redundant
// remote call is a no-op at the data level.
func (s *RequestService) MarkRead(ctx context.Context, actorID, requestID int64) (*entities.Request, error) {
	request, ok := s.state.RequestByID(requestID)
	if !ok {
		s.logger.Warn("Mark read on unknown request", "request_id", requestID)
		return nil, entities.ErrRequestNotFound
	}
	if request.ToUserID != actorID {
		return nil, entities.ErrNotRecipient
	}

	if !request.IsRead {
		request.MarkRead(s.now())
	}

	updated, err := s.requestRepo.Update(ctx, requestID, ports.RequestPatch{IsRead: &request.IsRead, ReadAt: request.ReadAt})
	if err != nil {
		return nil, fmt.Errorf("failed to mark request read: %w", err)
	}

	s.state.UpsertRequest(*updated)
	return updated, nil
}

// Respond accepts or rejects a pending request. Only the recipient may
// respond, and only while the request is still pending.
func (s *RequestService) Respond(ctx context.Context, actorID, requestID int64, decision entities.RequestStatus, responseMessage string) (*entities.Request, error) {
	request, ok := s.state.RequestByID(requestID)
	if !ok {
		return nil, entities.ErrRequestNotFound
	}
	if request.ToUserID != actorID {
		return nil, entities.ErrNotRecipient
	}

	if err := request.Respond(decision, strings.TrimSpace(responseMessage), s.now()); err != nil {
		return nil, err
	}

	patch := ports.RequestPatch{
		Status:          &request.Status,
		RespondedAt:     request.RespondedAt,
		ResponseMessage: request.ResponseMessage,
	}

	updated, err := s.requestRepo.Update(ctx, requestID, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to respond to request: %w", err)
	}

	s.state.UpsertRequest(*updated)
	s.logger.Info("Request responded", "request_id", requestID, "decision", decision)

	return updated, nil
}

// Complete marks an accepted request as done. Either party may complete.
func (s *RequestService) Complete(ctx context.Context, actorID, requestID int64) (*entities.Request, error) {
	request, ok := s.state.RequestByID(requestID)
	if !ok {
		return nil, entities.ErrRequestNotFound
	}
	if request.FromUserID != actorID && request.ToUserID != actorID {
		return nil, entities.ErrRequestNotFound
	}

	if err := request.Complete(s.now()); err != nil {
		return nil, err
	}

	updated, err := s.requestRepo.Update(ctx, requestID, ports.RequestPatch{IsCompleted: &request.IsCompleted, CompletedAt: request.CompletedAt})
	if err != nil {
		return nil, fmt.Errorf("failed to complete request: %w", err)
	}

	s.state.UpsertRequest(*updated)
	s.logger.Info("Request completed", "request_id", requestID)

	return updated, nil
}

// Delete removes a request. Either party may delete at any status.
func (s *RequestService) Delete(ctx context.Context, actorID, requestID int64) error {
	request, ok := s.state.RequestByID(requestID)
	if !ok {
		return entities.ErrRequestNotFound
	}
	if request.FromUserID != actorID && request.ToUserID != actorID {
		return entities.ErrRequestNotFound
	}

	if err := s.requestRepo.Delete(ctx, requestID); err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}

	s.state.RemoveRequest(requestID)
	s.logger.Info("Request deleted", "request_id", requestID)

	return nil
}

// Reload replaces the in-memory request collection with a full fetch.
func (s *RequestService) Reload(ctx context.Context) error {
	requests, err := s.requestRepo.List(ctx, ports.RequestFilter{Limit: reloadLimit})
	if err != nil {
		return fmt.Errorf("failed to reload requests: %w", err)
	}

	s.state.ReplaceRequests(requests)
	return nil
}

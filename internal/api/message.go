package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/opendoor-ai/chatcore/internal/storage/postgres"
	"github.com/opendoor-ai/chatcore/internal/types"
)

// AppendMessageRequest is the request body for appending a message.
type AppendMessageRequest struct {
	Role    types.MessageRole `json:"role"`
	Content string            `json:"content"`
}

// MessagesResponse is the response for listing messages.
type MessagesResponse struct {
	Messages []types.Message `json:"messages"`
}

// ListMessages handles GET /conversations/:id/messages?after=N —
// the delta-fetch endpoint the poller uses. after=0 (or absent) returns
// the full ordered history.
func (s *Server) ListMessages(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid conversation id"})
	}

	var after int64
	if raw := c.QueryParam("after"); raw != "" {
		after, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || after < 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid after parameter"})
		}
	}

	// Ownership check before touching the log.
	if _, err := s.convRepo.GetByID(c.Request().Context(), id, GetUserID(c)); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "conversation not found"})
		}
		s.logger.WithError(err).Error("failed to check conversation")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list messages"})
	}

	msgs, err := s.msgRepo.ListAfter(c.Request().Context(), id, after)
	if err != nil {
		s.logger.WithError(err).Error("failed to list messages")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list messages"})
	}
	if msgs == nil {
		msgs = []types.Message{}
	}
	return c.JSON(http.StatusOK, MessagesResponse{Messages: msgs})
}

// AppendMessage handles POST /conversations/:id/messages.
func (s *Server) AppendMessage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid conversation id"})
	}

	var req AppendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if req.Content == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "content is required"})
	}
	switch req.Role {
	case types.RoleUser, types.RoleAssistant, types.RoleSystem:
	default:
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid role"})
	}

	if _, err := s.convRepo.GetByID(c.Request().Context(), id, GetUserID(c)); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "conversation not found"})
		}
		s.logger.WithError(err).Error("failed to check conversation")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to append message"})
	}

	msg, err := s.msgRepo.Append(c.Request().Context(), id, req.Role, req.Content)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "conversation not found"})
		}
		s.logger.WithError(err).Error("failed to append message")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to append message"})
	}
	return c.JSON(http.StatusCreated, msg)
}

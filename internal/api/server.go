// Package api exposes the message log service over HTTP.
package api

import (
	"github.com/sirupsen/logrus"

	"github.com/opendoor-ai/chatcore/internal/service"
	"github.com/opendoor-ai/chatcore/internal/storage/postgres"
)

// Server holds API dependencies.
type Server struct {
	authService *service.AuthService
	convRepo    *postgres.ConversationRepository
	msgRepo     *postgres.MessageRepository
	logger      *logrus.Logger
}

// NewServer creates a new API server.
func NewServer(authService *service.AuthService, convRepo *postgres.ConversationRepository, msgRepo *postgres.MessageRepository, logger *logrus.Logger) *Server {
	return &Server{
		authService: authService,
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		logger:      logger,
	}
}

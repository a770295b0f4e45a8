package tasks

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"relato/internal/config"
	"relato/internal/utils/logger"
)

// Server processes queued tasks.
type Server struct {
	server  *asynq.Server
	handler *TaskHandler
	logger  *logger.Logger
}

func NewServer(cfg config.RedisConfig, handler *TaskHandler, logger *logger.Logger) *Server {
	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		},
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				QueueDefault: 3,
				QueueLow:     1,
			},
		},
	)

	return &Server{
		server:  server,
		handler: handler,
		logger:  logger,
	}
}

// Start starts the task processing server
func (s *Server) Start(ctx context.Context) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeAuditPurge, s.handler.HandleAuditPurge)

	s.logger.Info("starting task processing server")
	if err := s.server.Start(mux); err != nil {
		return fmt.Errorf("failed to start task server: %w", err)
	}

	<-ctx.Done()
	s.server.Shutdown()
	return nil
}

// Shutdown gracefully shuts down the task processing server
func (s *Server) Shutdown() {
	s.logger.Info("shutting down task processing server")
	s.server.Shutdown()
}

package tasks

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"relato/internal/config"
	"relato/internal/utils/logger"
)

// AuditPurger deletes audit rows older than the cutoff and reports how
// many went away.
type AuditPurger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// TaskHandler processes background tasks.
type TaskHandler struct {
	audit     AuditPurger
	retention time.Duration
	logger    *logger.Logger
}

func NewTaskHandler(audit AuditPurger, cfg config.AuditConfig) *TaskHandler {
	return &TaskHandler{
		audit:     audit,
		retention: cfg.Retention,
		logger:    logger.New("task_handler"),
	}
}

// HandleAuditPurge drops login-audit rows past the retention window.
func (h *TaskHandler) HandleAuditPurge(ctx context.Context, t *asynq.Task) error {
	cutoff := time.Now().Add(-h.retention)

	removed, err := h.audit.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return h.logger.Error("Failed to purge login audit rows", err)
	}

	h.logger.Info("Purged %d login audit rows older than %s", removed, cutoff.Format(time.RFC3339))
	return nil
}

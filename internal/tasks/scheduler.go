package tasks

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"

	"relato/internal/config"
	"relato/internal/utils/logger"
)

// Scheduler registers the periodic maintenance tasks.
type Scheduler struct {
	scheduler *asynq.Scheduler
	cfg       config.AuditConfig
	logger    *logger.Logger
}

func NewScheduler(redisCfg config.RedisConfig, auditCfg config.AuditConfig, logger *logger.Logger) *Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     redisCfg.Addr,
			Username: redisCfg.Username,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		},
		&asynq.SchedulerOpts{},
	)

	return &Scheduler{
		scheduler: scheduler,
		cfg:       auditCfg,
		logger:    logger,
	}
}

// Start registers the periodic tasks and runs the scheduler loop.
func (s *Scheduler) Start() error {
	if err := s.registerTasks(); err != nil {
		return fmt.Errorf("failed to register tasks: %w", err)
	}

	s.logger.Info("starting task scheduler")
	return s.scheduler.Run()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Shutdown()
	s.logger.Info("task scheduler stopped")
}

func (s *Scheduler) registerTasks() error {
	// Validate the configured expression up front so a bad value fails
	// at startup rather than silently never firing.
	schedule, err := cron.ParseStandard(s.cfg.PurgeCron)
	if err != nil {
		return fmt.Errorf("invalid audit purge cron %q: %w", s.cfg.PurgeCron, err)
	}

	entryID, err := s.scheduler.Register(
		s.cfg.PurgeCron,
		asynq.NewTask(TaskTypeAuditPurge, nil),
		asynq.Queue(QueueLow),
		asynq.MaxRetry(RetryDefault),
		asynq.Timeout(TimeoutMedium),
	)
	if err != nil {
		return fmt.Errorf("failed to register audit purge: %w", err)
	}

	s.logger.Info("registered audit purge %s, next run %s",
		entryID, schedule.Next(time.Now()).Format(time.RFC3339))
	return nil
}

package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/makkenzo/machine-license-api/internal/config"
	"github.com/makkenzo/machine-license-api/internal/tasks"
	"go.uber.org/zap"
)

// RunWorkers starts the asynq server and scheduler that keep the license
// gauges fresh. Both share the redis connection from cfg.Redis.
func RunWorkers(cfg *config.Config, source tasks.StatsSource, logger *zap.Logger) (<-chan error, func(context.Context)) {
	errChan := make(chan error, 3)

	redisConnOpts := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	srv := asynq.NewServer(
		redisConnOpts,
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log := logger.Named("AsynqServerErrorHandler")
				log.Error("Asynq task processing failed",
					zap.String("task_type", task.Type()),
					zap.ByteString("payload", task.Payload()),
					zap.Error(err),
				)
			}),
			Logger: NewAsynqLoggerAdapter(logger.Named("AsynqServer")),
		},
	)

	mux := asynq.NewServeMux()

	statsHandler := tasks.NewStatsRefreshHandler(source, logger)
	mux.HandleFunc(tasks.TypeLicenseStatsRefresh, statsHandler.ProcessTask)

	go func() {
		logger.Info("Starting Asynq Server...")
		if err := srv.Run(mux); err != nil {
			logger.Error("Asynq Server run failed", zap.Error(err))
			errChan <- fmt.Errorf("asynq server error: %w", err)
		}
	}()

	scheduler := asynq.NewScheduler(
		redisConnOpts,
		&asynq.SchedulerOpts{
			Logger: NewAsynqLoggerAdapter(logger.Named("AsynqScheduler")),
		},
	)

	schedule := cfg.Worker.StatsRefreshSchedule
	refreshTask, err := tasks.NewLicenseStatsRefreshTask()
	if err != nil {
		logger.Error("Failed to create stats refresh task for scheduler", zap.Error(err))
		errChan <- fmt.Errorf("scheduler task creation error: %w", err)
	} else if entryID, err := scheduler.Register(schedule, refreshTask); err != nil {
		logger.Error("Could not register periodic stats refresh", zap.Error(err))
		errChan <- fmt.Errorf("scheduler registration error: %w", err)
	} else {
		logger.Info("Registered periodic license stats refresh", zap.String("entry_id", entryID), zap.String("schedule", schedule))
	}

	go func() {
		logger.Info("Starting Asynq Scheduler...")
		if err := scheduler.Run(); err != nil {
			logger.Error("Asynq Scheduler run failed", zap.Error(err))
			errChan <- fmt.Errorf("asynq scheduler error: %w", err)
		}
	}()

	shutdownFunc := func(ctx context.Context) {
		logger.Info("Shutting down Asynq Scheduler...")
		scheduler.Shutdown()

		logger.Info("Shutting down Asynq Server...")
		srv.Shutdown()
		logger.Info("Asynq workers stopped.")
	}

	return errChan, shutdownFunc
}

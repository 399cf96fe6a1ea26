// Package job provides background job processing using Asynq.
//
// Stale cached calendars are refreshed here so the request that noticed
// the staleness can answer immediately.
package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deppfellow/contributions-api/internal/config"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// JobService holds the Asynq client (enqueue) and server (worker execution).
type JobService struct {
	Client *asynq.Client

	server *asynq.Server
	logger *zerolog.Logger

	taskTimeout time.Duration
	uniqueFor   time.Duration

	refresher Refresher
	recorder  RefreshRecorder
}

// NewJobService creates a JobService configured to use Redis from cfg.
func NewJobService(logger *zerolog.Logger, cfg *config.Config) *JobService {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Scraper.MaxConcurrency,
			Queues: map[string]int{
				"default": 1,
			},
			Logger:   &asynqLogger{logger: logger},
			LogLevel: asynq.WarnLevel,
		},
	)

	return &JobService{
		Client:      client,
		server:      server,
		logger:      logger,
		taskTimeout: 2 * cfg.Scraper.Timeout,
		uniqueFor:   cfg.Cache.TTL,
	}
}

// Start registers task handlers and starts the worker server.
func (j *JobService) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskRefresh, j.handleRefreshTask)

	j.logger.Info().Msg("Starting background job server")

	if err := j.server.Start(mux); err != nil {
		return err
	}

	return nil
}

// EnqueueRefresh schedules a refresh for username. A refresh already
// pending for the same user is not an error.
func (j *JobService) EnqueueRefresh(ctx context.Context, username string) error {
	task, err := NewRefreshTask(username, j.taskTimeout, j.uniqueFor)
	if err != nil {
		return err
	}

	info, err := j.Client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		j.logger.Debug().Str("username", username).Msg("Refresh already pending")
		return nil
	}
	if err != nil {
		return err
	}

	j.logger.Debug().
		Str("username", username).
		Str("task_id", info.ID).
		Msg("Enqueued refresh task")

	return nil
}

// Stop gracefully stops the job server and closes client resources.
func (j *JobService) Stop() {
	j.logger.Info().Msg("Stopping background job server")
	j.server.Shutdown()
	j.Client.Close()
}

// asynqLogger routes asynq's internal logging into zerolog.
type asynqLogger struct {
	logger *zerolog.Logger
}

func (l *asynqLogger) Debug(args ...any) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...any)  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...any)  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...any) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...any) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }

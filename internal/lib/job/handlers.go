package job

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deppfellow/contributions-api/internal/lib/jsoncodec"
	"github.com/hibiken/asynq"
)

// Refresher performs the actual re-scrape for a refresh task.
type Refresher interface {
	Refresh(ctx context.Context, username string) error
}

// RefreshRecorder receives the outcome of every refresh task.
type RefreshRecorder interface {
	RecordRefresh(outcome string)
}

// InitHandlers sets the dependencies the task handlers call into. It must
// run before Start.
func (j *JobService) InitHandlers(refresher Refresher, recorder RefreshRecorder) {
	j.refresher = refresher
	j.recorder = recorder
}

func (j *JobService) record(outcome string) {
	if j.recorder != nil {
		j.recorder.RecordRefresh(outcome)
	}
}

func (j *JobService) handleRefreshTask(ctx context.Context, t *asynq.Task) error {
	var p RefreshPayload
	if err := jsoncodec.Unmarshal(t.Payload(), &p); err != nil {
		j.record("invalid")
		return fmt.Errorf("failed to unmarshal refresh payload: %v: %w", err, asynq.SkipRetry)
	}
	if strings.TrimSpace(p.Username) == "" {
		j.record("invalid")
		return fmt.Errorf("refresh payload has no username: %w", asynq.SkipRetry)
	}
	if j.refresher == nil {
		return fmt.Errorf("refresh handler not initialized")
	}

	j.logger.Info().
		Str("type", TaskRefresh).
		Str("username", p.Username).
		Msg("Processing refresh task")

	start := time.Now()
	if err := j.refresher.Refresh(ctx, p.Username); err != nil {
		j.record("error")
		j.logger.Error().
			Str("type", TaskRefresh).
			Str("username", p.Username).
			Err(err).
			Msg("Failed to refresh contributions")
		return err
	}

	j.record("ok")
	j.logger.Info().
		Str("type", TaskRefresh).
		Str("username", p.Username).
		Dur("duration", time.Since(start)).
		Msg("Refreshed contributions")

	return nil
}

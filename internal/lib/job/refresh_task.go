package job

import (
	"strings"
	"time"

	"github.com/deppfellow/contributions-api/internal/lib/jsoncodec"
	"github.com/hibiken/asynq"
)

const (
	// TaskRefresh re-scrapes one user's calendar and stores the snapshot.
	TaskRefresh = "contributions:refresh"
)

// RefreshPayload is the JSON payload of a refresh task.
type RefreshPayload struct {
	Username string `json:"username"`
}

// NewRefreshTask builds a refresh task for username.
//
// Only one task per username can be pending within uniqueFor, so a burst
// of stale reads enqueues a single refresh. The username is lowercased
// like snapshot keys, so differently cased reads share one task.
func NewRefreshTask(username string, timeout, uniqueFor time.Duration) (*asynq.Task, error) {
	payload, err := jsoncodec.Marshal(RefreshPayload{Username: strings.ToLower(strings.TrimSpace(username))})
	if err != nil {
		return nil, err
	}

	opts := []asynq.Option{
		asynq.MaxRetry(3),
		asynq.Queue("default"),
		asynq.Timeout(timeout),
	}
	if uniqueFor > 0 {
		opts = append(opts, asynq.Unique(uniqueFor))
	}

	return asynq.NewTask(TaskRefresh, payload, opts...), nil
}

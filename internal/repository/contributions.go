package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deppfellow/contributions-api/internal/lib/calendar"
	"github.com/deppfellow/contributions-api/internal/lib/jsoncodec"
	"github.com/redis/go-redis/v9"
)

// ErrSnapshotNotFound is returned when no snapshot is stored for a user.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is one scraped calendar with the time it was fetched.
type Snapshot struct {
	Username  string          `json:"username"`
	FetchedAt time.Time       `json:"fetched_at"`
	Years     []calendar.Year `json:"years"`
}

// Age is how long ago the snapshot was fetched.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// ContributionRepository stores snapshots in Redis.
type ContributionRepository struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

// NewContributionRepository creates a repository. Snapshots expire from
// Redis after retention.
func NewContributionRepository(client *redis.Client, prefix string, retention time.Duration) *ContributionRepository {
	return &ContributionRepository{
		client:    client,
		prefix:    prefix,
		retention: retention,
	}
}

// key is case-insensitive since usernames are.
func (r *ContributionRepository) key(username string) string {
	return r.prefix + ":" + strings.ToLower(username)
}

// Get loads the snapshot for username.
func (r *ContributionRepository) Get(ctx context.Context, username string) (*Snapshot, error) {
	data, err := r.client.Get(ctx, r.key(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot for %s: %w", username, err)
	}

	var snap Snapshot
	if err := jsoncodec.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot for %s: %w", username, err)
	}

	return &snap, nil
}

// Save stores snap, replacing any previous snapshot for the same user.
func (r *ContributionRepository) Save(ctx context.Context, snap *Snapshot) error {
	data, err := jsoncodec.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot for %s: %w", snap.Username, err)
	}

	if err := r.client.Set(ctx, r.key(snap.Username), data, r.retention).Err(); err != nil {
		return fmt.Errorf("save snapshot for %s: %w", snap.Username, err)
	}

	return nil
}

// Delete removes the snapshot for username. Missing snapshots are not an error.
func (r *ContributionRepository) Delete(ctx context.Context, username string) error {
	if err := r.client.Del(ctx, r.key(username)).Err(); err != nil {
		return fmt.Errorf("delete snapshot for %s: %w", username, err)
	}
	return nil
}

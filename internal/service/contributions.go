package service

import (
	"context"
	"errors"
	"time"

	"github.com/deppfellow/contributions-api/internal/config"
	"github.com/deppfellow/contributions-api/internal/lib/calendar"
	"github.com/deppfellow/contributions-api/internal/lib/github"
	"github.com/deppfellow/contributions-api/internal/middleware"
	"github.com/deppfellow/contributions-api/internal/repository"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"
)

// Scraper fetches every year of a user's calendar from the upstream.
type Scraper interface {
	FetchAll(ctx context.Context, username string) ([]calendar.Year, error)
}

// SnapshotStore persists scraped calendars.
type SnapshotStore interface {
	Get(ctx context.Context, username string) (*repository.Snapshot, error)
	Save(ctx context.Context, snap *repository.Snapshot) error
	Delete(ctx context.Context, username string) error
}

// RefreshQueue schedules a background re-scrape.
type RefreshQueue interface {
	EnqueueRefresh(ctx context.Context, username string) error
}

// CacheRecorder counts snapshot lookups by result.
type CacheRecorder interface {
	RecordCacheLookup(result string)
}

// Cache lookup results.
const (
	lookupHit      = "hit"
	lookupStale    = "stale"
	lookupMiss     = "miss"
	lookupError    = "error"
	lookupDisabled = "disabled"
)

// ContributionDeps wires a ContributionService. Store and Queue are
// optional; without a Store every lookup scrapes live.
type ContributionDeps struct {
	Scraper  Scraper
	Store    SnapshotStore
	Queue    RefreshQueue
	Recorder CacheRecorder
	Logger   *zerolog.Logger
	Cache    config.CacheConfig
	Now      func() time.Time

	// SlowThreshold logs scrapes slower than it; zero disables.
	SlowThreshold time.Duration
}

// ContributionService serves contribution calendars, from the snapshot
// cache when possible.
type ContributionService struct {
	scraper  Scraper
	store    SnapshotStore
	queue    RefreshQueue
	recorder CacheRecorder
	logger   *zerolog.Logger
	cache    config.CacheConfig
	now      func() time.Time
	slow     time.Duration
}

func NewContributionService(deps ContributionDeps) *ContributionService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		nop := zerolog.Nop()
		deps.Logger = &nop
	}

	return &ContributionService{
		scraper:  deps.Scraper,
		store:    deps.Store,
		queue:    deps.Queue,
		recorder: deps.Recorder,
		logger:   deps.Logger,
		cache:    deps.Cache,
		now:      deps.Now,
		slow:     deps.SlowThreshold,
	}
}

// Get returns username's calendar shaped per format.
func (s *ContributionService) Get(ctx context.Context, username string, format calendar.Format) (any, error) {
	years, err := s.Years(ctx, username)
	if err != nil {
		return nil, err
	}

	return calendar.Build(years, format), nil
}

// Years returns the raw per-year calendars for username.
//
// A fresh snapshot is served as is. A stale one is served while a
// refresh is queued. Otherwise the upstream is scraped and the result
// stored. Cache failures are logged and never fail the lookup.
func (s *ContributionService) Years(ctx context.Context, username string) ([]calendar.Year, error) {
	if s.store == nil || !s.cache.Enabled {
		s.record(lookupDisabled)
		return s.scrape(ctx, username)
	}

	snap, err := s.store.Get(ctx, username)
	switch {
	case errors.Is(err, repository.ErrSnapshotNotFound):
		s.record(lookupMiss)
	case err != nil:
		s.record(lookupError)
		s.log(ctx).Warn().Err(err).Str("username", username).Msg("snapshot lookup failed, scraping live")
	default:
		age := snap.Age(s.now())
		if age < s.cache.TTL {
			s.record(lookupHit)
			return snap.Years, nil
		}
		if age < s.cache.TTL+s.cache.StaleTTL {
			s.record(lookupStale)
			s.enqueueRefresh(ctx, username)
			return snap.Years, nil
		}
		s.record(lookupMiss)
	}

	years, err := s.scrape(ctx, username)
	if err != nil {
		s.forgetMissing(ctx, username, err)
		return nil, err
	}

	if err := s.save(ctx, username, years); err != nil {
		s.log(ctx).Warn().Err(err).Str("username", username).Msg("failed to store snapshot")
	}

	return years, nil
}

// Refresh scrapes username and replaces the stored snapshot.
func (s *ContributionService) Refresh(ctx context.Context, username string) error {
	years, err := s.scrape(ctx, username)
	if err != nil {
		s.forgetMissing(ctx, username, err)
		return err
	}

	if s.store == nil {
		return nil
	}

	return s.save(ctx, username, years)
}

func (s *ContributionService) scrape(ctx context.Context, username string) ([]calendar.Year, error) {
	defer newrelic.FromContext(ctx).StartSegment("contributions.scrape").End()

	start := time.Now()
	years, err := s.scraper.FetchAll(ctx, username)
	if elapsed := time.Since(start); s.slow > 0 && elapsed > s.slow {
		s.log(ctx).Warn().
			Str("username", username).
			Dur("duration", elapsed).
			Int("years", len(years)).
			Msg("slow scrape")
	}

	return years, err
}

func (s *ContributionService) save(ctx context.Context, username string, years []calendar.Year) error {
	return s.store.Save(ctx, &repository.Snapshot{
		Username:  username,
		FetchedAt: s.now().UTC(),
		Years:     years,
	})
}

// forgetMissing drops the snapshot of an account the upstream no longer
// knows, so it is not served again from cache.
func (s *ContributionService) forgetMissing(ctx context.Context, username string, err error) {
	if s.store == nil || !errors.Is(err, github.ErrUserNotFound) {
		return
	}

	if err := s.store.Delete(ctx, username); err != nil {
		s.log(ctx).Warn().Err(err).Str("username", username).Msg("failed to drop snapshot")
	}
}

// enqueueRefresh outlives the request, so it runs on a detached context.
func (s *ContributionService) enqueueRefresh(ctx context.Context, username string) {
	if s.queue == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.queue.EnqueueRefresh(ctx, username); err != nil {
		s.log(ctx).Warn().Err(err).Str("username", username).Msg("failed to enqueue refresh")
	}
}

// log prefers the request logger carried by ctx.
func (s *ContributionService) log(ctx context.Context) *zerolog.Logger {
	return middleware.LoggerFromContext(ctx, s.logger)
}

func (s *ContributionService) record(result string) {
	if s.recorder != nil {
		s.recorder.RecordCacheLookup(result)
	}
}

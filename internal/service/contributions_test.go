package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deppfellow/contributions-api/internal/config"
	"github.com/deppfellow/contributions-api/internal/lib/calendar"
	"github.com/deppfellow/contributions-api/internal/lib/github"
	"github.com/deppfellow/contributions-api/internal/middleware"
	"github.com/deppfellow/contributions-api/internal/repository"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func liveYears() []calendar.Year {
	return []calendar.Year{
		calendar.NewYear("2024", 5, []calendar.Day{
			calendar.NewDay("2024-01-02", 5, 3),
			calendar.NewDay("2024-01-01", 0, 0),
		}),
	}
}

func cachedYears() []calendar.Year {
	return []calendar.Year{
		calendar.NewYear("2024", 1, []calendar.Day{calendar.NewDay("2024-01-01", 1, 1)}),
	}
}

type fakeScraper struct {
	calls int
	years []calendar.Year
	err   error
}

func (f *fakeScraper) FetchAll(context.Context, string) ([]calendar.Year, error) {
	f.calls++
	return f.years, f.err
}

type fakeStore struct {
	snap    *repository.Snapshot
	getErr  error
	saveErr error
	saved   []*repository.Snapshot
	deleted []string
}

func (f *fakeStore) Get(context.Context, string) (*repository.Snapshot, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.snap == nil {
		return nil, repository.ErrSnapshotNotFound
	}
	return f.snap, nil
}

func (f *fakeStore) Save(_ context.Context, snap *repository.Snapshot) error {
	f.saved = append(f.saved, snap)
	return f.saveErr
}

func (f *fakeStore) Delete(_ context.Context, username string) error {
	f.deleted = append(f.deleted, username)
	f.snap = nil
	return nil
}

type fakeQueue struct {
	users []string
	err   error
}

func (f *fakeQueue) EnqueueRefresh(_ context.Context, username string) error {
	f.users = append(f.users, username)
	return f.err
}

type fakeRecorder struct {
	results []string
}

func (f *fakeRecorder) RecordCacheLookup(result string) {
	f.results = append(f.results, result)
}

type fixture struct {
	scraper  *fakeScraper
	store    *fakeStore
	queue    *fakeQueue
	recorder *fakeRecorder
	svc      *ContributionService
}

func newFixture(snapAge time.Duration, haveSnap bool) *fixture {
	f := &fixture{
		scraper:  &fakeScraper{years: liveYears()},
		store:    &fakeStore{},
		queue:    &fakeQueue{},
		recorder: &fakeRecorder{},
	}
	if haveSnap {
		f.store.snap = &repository.Snapshot{
			Username:  "octocat",
			FetchedAt: baseTime.Add(-snapAge),
			Years:     cachedYears(),
		}
	}

	f.svc = NewContributionService(ContributionDeps{
		Scraper:  f.scraper,
		Store:    f.store,
		Queue:    f.queue,
		Recorder: f.recorder,
		Cache: config.CacheConfig{
			Enabled:  true,
			TTL:      time.Hour,
			StaleTTL: 24 * time.Hour,
		},
		Now: func() time.Time { return baseTime },
	})
	return f
}

func TestYears_FreshHit(t *testing.T) {
	f := newFixture(10*time.Minute, true)

	years, err := f.svc.Years(context.Background(), "octocat")
	require.NoError(t, err)

	assert.Equal(t, cachedYears(), years)
	assert.Zero(t, f.scraper.calls)
	assert.Empty(t, f.queue.users)
	assert.Equal(t, []string{"hit"}, f.recorder.results)
}

func TestYears_StaleServesAndEnqueues(t *testing.T) {
	f := newFixture(2*time.Hour, true)

	years, err := f.svc.Years(context.Background(), "octocat")
	require.NoError(t, err)

	assert.Equal(t, cachedYears(), years)
	assert.Zero(t, f.scraper.calls)
	assert.Equal(t, []string{"octocat"}, f.queue.users)
	assert.Equal(t, []string{"stale"}, f.recorder.results)
}

func TestYears_StaleEnqueueFailureStillServes(t *testing.T) {
	f := newFixture(2*time.Hour, true)
	f.queue.err = errors.New("redis down")

	years, err := f.svc.Years(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, cachedYears(), years)
}

func TestYears_ExpiredScrapesAndSaves(t *testing.T) {
	f := newFixture(48*time.Hour, true)

	years, err := f.svc.Years(context.Background(), "octocat")
	require.NoError(t, err)

	assert.Equal(t, liveYears(), years)
	assert.Equal(t, 1, f.scraper.calls)
	require.Len(t, f.store.saved, 1)
	assert.Equal(t, baseTime, f.store.saved[0].FetchedAt)
	assert.Equal(t, []string{"miss"}, f.recorder.results)
}

func TestYears_MissScrapesAndSaves(t *testing.T) {
	f := newFixture(0, false)

	years, err := f.svc.Years(context.Background(), "octocat")
	require.NoError(t, err)

	assert.Equal(t, liveYears(), years)
	require.Len(t, f.store.saved, 1)
	assert.Equal(t, "octocat", f.store.saved[0].Username)
	assert.Equal(t, []string{"miss"}, f.recorder.results)
}

func TestYears_StoreErrorsAreBypassed(t *testing.T) {
	f := newFixture(0, false)
	f.store.getErr = errors.New("connection refused")
	f.store.saveErr = errors.New("connection refused")

	years, err := f.svc.Years(context.Background(), "octocat")
	require.NoError(t, err)

	assert.Equal(t, liveYears(), years)
	assert.Equal(t, []string{"error"}, f.recorder.results)
}

func TestYears_WarningsUseRequestLogger(t *testing.T) {
	f := newFixture(0, false)
	f.store.getErr = errors.New("connection refused")

	var buf bytes.Buffer
	reqLogger := zerolog.New(&buf).With().Str("request_id", "req-123").Logger()
	ctx := middleware.WithLogger(context.Background(), &reqLogger)

	_, err := f.svc.Years(ctx, "octocat")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"request_id":"req-123"`)
	assert.Contains(t, buf.String(), "snapshot lookup failed")
}

func TestYears_UserGoneDropsSnapshot(t *testing.T) {
	f := newFixture(48*time.Hour, true)
	f.scraper.err = github.ErrUserNotFound

	_, err := f.svc.Years(context.Background(), "octocat")
	assert.ErrorIs(t, err, github.ErrUserNotFound)
	assert.Equal(t, []string{"octocat"}, f.store.deleted)
	assert.Empty(t, f.store.saved)
}

func TestRefresh_UserGoneDropsSnapshot(t *testing.T) {
	f := newFixture(2*time.Hour, true)
	f.scraper.err = github.ErrUserNotFound

	assert.ErrorIs(t, f.svc.Refresh(context.Background(), "octocat"), github.ErrUserNotFound)
	assert.Equal(t, []string{"octocat"}, f.store.deleted)
}

func TestYears_ScrapeErrorNotCached(t *testing.T) {
	f := newFixture(0, false)
	boom := errors.New("upstream down")
	f.scraper.err = boom

	_, err := f.svc.Years(context.Background(), "octocat")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, f.store.saved)
}

func TestYears_CacheDisabled(t *testing.T) {
	scraper := &fakeScraper{years: liveYears()}
	recorder := &fakeRecorder{}
	svc := NewContributionService(ContributionDeps{Scraper: scraper, Recorder: recorder})

	years, err := svc.Years(context.Background(), "octocat")
	require.NoError(t, err)

	assert.Equal(t, liveYears(), years)
	assert.Equal(t, []string{"disabled"}, recorder.results)
}

func TestGet_Formats(t *testing.T) {
	svc := NewContributionService(ContributionDeps{Scraper: &fakeScraper{years: liveYears()}})

	flat, err := svc.Get(context.Background(), "octocat", calendar.FormatDefault)
	require.NoError(t, err)
	require.IsType(t, calendar.FlatResponse{}, flat)
	assert.Len(t, flat.(calendar.FlatResponse).Contributions, 2)
	assert.Equal(t, "2024-01-02", flat.(calendar.FlatResponse).Contributions[0].Date)

	nested, err := svc.Get(context.Background(), "octocat", calendar.FormatNested)
	require.NoError(t, err)
	require.IsType(t, calendar.NestedResponse{}, nested)
	assert.Equal(t, 5, nested.(calendar.NestedResponse).Contributions[2024][1][2].Count)
}

func TestRefresh(t *testing.T) {
	f := newFixture(0, false)

	require.NoError(t, f.svc.Refresh(context.Background(), "octocat"))
	require.Len(t, f.store.saved, 1)
	assert.Equal(t, liveYears(), f.store.saved[0].Years)

	f.scraper.err = errors.New("boom")
	assert.Error(t, f.svc.Refresh(context.Background(), "octocat"))
	assert.Len(t, f.store.saved, 1)
}

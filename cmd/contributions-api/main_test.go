package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/deppfellow/contributions-api/internal/config"
	"github.com/deppfellow/contributions-api/internal/lib/calendar"
	"github.com/deppfellow/contributions-api/internal/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScraper struct{}

func (stubScraper) FetchAll(context.Context, string) ([]calendar.Year, error) {
	return []calendar.Year{
		calendar.NewYear("2024", 2, []calendar.Day{calendar.NewDay("2024-03-01", 2, 1)}),
	}, nil
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, version+"\n", out.String())
}

func TestFetchCmd_RejectsBadInput(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})

	root.SetArgs([]string{"fetch", "-bad-"})
	assert.Error(t, root.Execute())

	root.SetArgs([]string{"fetch"})
	assert.Error(t, root.Execute())
}

func TestFetch_PrintsJSON(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	require.NoError(t, fetch(context.Background(), cmd, stubScraper{}, "octocat", calendar.FormatNested))
	assert.Contains(t, out.String(), `"2024"`)
	assert.Contains(t, out.String(), `"#9be9a8"`)
}

func TestBuildHandler_MiddlewareFailureStartsNoWorkers(t *testing.T) {
	mr := miniredis.RunT(t)
	log := zerolog.Nop()

	cfg := config.DefaultConfig()
	cfg.Redis.Address = mr.Addr()
	cfg.Cache.Enabled = true

	srv, err := server.New(cfg, &log, nil)
	require.NoError(t, err)
	require.NotNil(t, srv.Job)

	// A redis rate limit store without a client cannot be built.
	srv.Config.RateLimit.Enabled = true
	srv.Config.RateLimit.Store = "redis"
	redisClient := srv.Redis
	srv.Redis = nil

	_, err = buildHandler(srv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not create middlewares")

	for _, key := range mr.Keys() {
		assert.False(t, strings.HasPrefix(key, "asynq:"), key)
	}

	srv.Redis = redisClient
	shutdown(srv, &log)
}

func TestBuildHandler(t *testing.T) {
	log := zerolog.Nop()

	srv, err := server.New(config.DefaultConfig(), &log, nil)
	require.NoError(t, err)

	h, err := buildHandler(srv)
	require.NoError(t, err)
	assert.NotNil(t, h)

	shutdown(srv, &log)
}

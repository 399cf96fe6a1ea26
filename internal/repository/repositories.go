// Package repository handles all interactions with the snapshot store.
//
// Scraped calendars are kept in Redis as JSON snapshots keyed by
// username, so repeat lookups inside the cache window skip the upstream.
package repository

import (
	"github.com/deppfellow/contributions-api/internal/server"
)

// Repositories is a container for all repository instances.
type Repositories struct {
	// Contributions is nil when caching is disabled.
	Contributions *ContributionRepository
}

// NewRepositories constructs the repository container from the
// application's shared Redis client.
func NewRepositories(s *server.Server) *Repositories {
	if !s.Config.Cache.Enabled || s.Redis == nil {
		return &Repositories{}
	}

	cacheCfg := s.Config.Cache
	return &Repositories{
		Contributions: NewContributionRepository(s.Redis, cacheCfg.KeyPrefix, cacheCfg.TTL+cacheCfg.StaleTTL),
	}
}

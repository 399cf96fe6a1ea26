package service

import (
	"fmt"

	"github.com/deppfellow/contributions-api/internal/lib/github"
	"github.com/deppfellow/contributions-api/internal/lib/job"
	"github.com/deppfellow/contributions-api/internal/repository"
	"github.com/deppfellow/contributions-api/internal/server"
)

type Services struct {
	Contributions *ContributionService
	Scraper       *github.Client
	Job           *job.JobService
}

func NewService(s *server.Server, repos *repository.Repositories) (*Services, error) {
	scraper, err := github.NewClientFromConfig(s.Config.Scraper, s.Metrics, s.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create scraper: %w", err)
	}

	deps := ContributionDeps{
		Scraper:  scraper,
		Recorder: s.Metrics,
		Logger:   s.Logger,
		Cache:    s.Config.Cache,

		SlowThreshold: s.Config.Observability.Logging.SlowScrapeThreshold,
	}
	// Assigned only when set so the interfaces stay nil when caching is off.
	if repos.Contributions != nil {
		deps.Store = repos.Contributions
	}
	if s.Job != nil {
		deps.Queue = s.Job
	}

	return &Services{
		Contributions: NewContributionService(deps),
		Scraper:       scraper,
		Job:           s.Job,
	}, nil
}

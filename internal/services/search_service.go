package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"feedcast-pipeline/internal/config"
	"feedcast-pipeline/internal/models"
	"feedcast-pipeline/internal/pkg/logger"
)

// SearchProvider is one upstream source of raw hits. A provider may
// return zero hits; per-query errors are the caller's to absorb.
type SearchProvider interface {
	Name() string
	Search(ctx context.Context, query string) ([]models.RawHit, error)
}

// SearchService fans one discovery request out across every provider and
// query concurrently, with a per-query timeout, and fans the hits back in.
// A slow or failing query contributes nothing; it never fails the batch.
type SearchService struct {
	providers []SearchProvider
	config    config.SearchConfig
	logger    *logger.Logger
}

type searchOutcome struct {
	order int
	hits  []models.RawHit
	err   error
}

// SearchStats summarizes one fan-out for pipeline accounting.
type SearchStats struct {
	QueriesIssued int
	QueriesFailed int
}

func NewSearchService(providers []SearchProvider, cfg config.SearchConfig, log *logger.Logger) *SearchService {
	names := make([]string, 0, len(providers))
	for _, provider := range providers {
		names = append(names, provider.Name())
	}

	log.Info("Search Service initialized",
		"providers", names,
		"max_concurrent", cfg.MaxConcurrent,
		"query_timeout", cfg.QueryTimeout)

	return &SearchService{
		providers: providers,
		config:    cfg,
		logger:    log,
	}
}

// FetchHits runs every (provider, query) pair for the given topics and
// returns the merged hits in a deterministic order regardless of which
// goroutine finished first. The per-topic query set optionally expands to
// the freshness-oriented variants the discovery pipeline was tuned on.
func (service *SearchService) FetchHits(ctx context.Context, topics []string, timeframe string) ([]models.RawHit, SearchStats, error) {
	startTime := time.Now()

	type job struct {
		order    int
		topic    string
		query    string
		provider SearchProvider
	}

	var jobs []job
	for _, topic := range sortedCopy(topics) {
		for _, query := range service.expandQueries(topic, timeframe) {
			for _, provider := range service.providers {
				jobs = append(jobs, job{
					order:    len(jobs),
					topic:    topic,
					query:    query,
					provider: provider,
				})
			}
		}
	}

	if len(jobs) == 0 {
		return nil, SearchStats{}, models.NewValidationError("NO_QUERIES", "no topics to search")
	}

	semaphore := make(chan struct{}, maxInt(service.config.MaxConcurrent, 1))
	outcomes := make([]searchOutcome, len(jobs))
	var wg sync.WaitGroup

	for _, j := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				outcomes[j.order] = searchOutcome{order: j.order, err: ctx.Err()}
				return
			}

			queryCtx, cancel := context.WithTimeout(ctx, service.config.QueryTimeout)
			defer cancel()

			hits, err := j.provider.Search(queryCtx, j.query)
			if err != nil {
				service.logger.WithError(err).Warn("Search query failed, continuing without it",
					"provider", j.provider.Name(),
					"query", j.query)
				outcomes[j.order] = searchOutcome{order: j.order, err: err}
				return
			}

			for i := range hits {
				hits[i].QueryTopic = j.topic
			}
			outcomes[j.order] = searchOutcome{order: j.order, hits: hits}
		}(j)
	}

	wg.Wait()

	// An aborted request must not pass partial results downstream.
	if err := ctx.Err(); err != nil {
		return nil, SearchStats{}, models.NewTimeoutError("SEARCH_ABORTED", "search fan-out abandoned").WithCause(err)
	}

	var merged []models.RawHit
	failed := 0
	for _, outcome := range outcomes {
		if outcome.err != nil {
			failed++
			continue
		}
		merged = append(merged, outcome.hits...)
	}

	service.logger.LogService("search", "fetch_hits", time.Since(startTime), map[string]interface{}{
		"queries_issued": len(jobs),
		"queries_failed": failed,
		"hits":           len(merged),
	}, nil)

	return merged, SearchStats{QueriesIssued: len(jobs), QueriesFailed: failed}, nil
}

// expandQueries mirrors the query templates the discovery pipeline was
// tuned on: plain topic plus freshness-oriented variants.
func (service *SearchService) expandQueries(topic, timeframe string) []string {
	if timeframe == "" {
		timeframe = "this week"
	}
	if !service.config.ExpandQueries {
		return []string{topic}
	}
	return []string{
		fmt.Sprintf("%s news %s", topic, timeframe),
		fmt.Sprintf("%s latest %d", topic, time.Now().Year()),
		fmt.Sprintf("%s announcement this week", topic),
		fmt.Sprintf("breaking %s development", topic),
	}
}

func sortedCopy(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

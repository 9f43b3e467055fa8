package services

import (
	"context"
	"sync"
	"time"

	"feedcast-pipeline/internal/config"
	"feedcast-pipeline/internal/models"
	"feedcast-pipeline/internal/pkg/logger"
)

// DiscoveryService runs the full pipeline for one request: search fan-out,
// normalization, deduplication, scoring, then topic consolidation. The
// pre-grouping stages are memoized per fingerprint; grouping always runs
// fresh because it reflects the requesting user's interest weights.
type DiscoveryService struct {
	search     *SearchService
	enrichment *EnrichmentService
	normalizer *NormalizerService
	dedup      *DedupService
	scorer     *ScorerService
	grouper    *GrouperService
	cache      ResultCache

	config config.DiscoveryConfig
	logger *logger.Logger

	activeRuns sync.Map // request_id -> *models.DiscoveryResult
	startTime  time.Time
}

func NewDiscoveryService(
	search *SearchService,
	enrichment *EnrichmentService,
	normalizer *NormalizerService,
	dedup *DedupService,
	scorer *ScorerService,
	grouper *GrouperService,
	cache ResultCache,
	cfg config.DiscoveryConfig,
	log *logger.Logger) *DiscoveryService {

	service := &DiscoveryService{
		search:     search,
		enrichment: enrichment,
		normalizer: normalizer,
		dedup:      dedup,
		scorer:     scorer,
		grouper:    grouper,
		cache:      cache,
		config:     cfg,
		logger:     log,
		startTime:  time.Now(),
	}

	log.Info("Discovery Service initialized",
		"credibility_floor", cfg.CredibilityFloor,
		"max_topic_groups", cfg.MaxTopicGroups,
		"cache_ttl", cfg.CacheTTL)

	return service
}

func (service *DiscoveryService) ExecuteDiscovery(ctx context.Context, req *models.DiscoveryRequest) (*models.DiscoveryResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	requestID := models.GenerateRequestID()
	result := models.NewDiscoveryResult(req, requestID)
	result.Status = models.DiscoveryStatusRunning

	service.activeRuns.Store(requestID, result)
	defer service.activeRuns.Delete(requestID)

	service.logger.LogPipeline(requestID, req.UserID, "discovery_started", 0, nil)

	events, fromCache, err := service.verifiedEvents(ctx, req, result)
	if err != nil {
		result.MarkFailed()
		service.logger.LogPipeline(requestID, req.UserID, "discovery_failed", result.Stats.TotalDuration, err)
		return result, err
	}

	result.Events = events
	result.FromCache = fromCache
	result.Stats.EventsVerified = len(events)

	groupStart := time.Now()
	result.Topics = service.grouper.Group(events)
	result.RecordStage("group", groupStart)
	result.Stats.TopicsConsolidate = len(result.Topics)

	result.MarkCompleted()
	service.logger.LogPipeline(requestID, req.UserID, "discovery_completed", result.Stats.TotalDuration, nil)

	return result, nil
}

// verifiedEvents returns the scored, deduplicated event set, serving it
// from the cache when a fresh enough computation exists for the same
// interests in the same time bucket.
func (service *DiscoveryService) verifiedEvents(ctx context.Context, req *models.DiscoveryRequest, result *models.DiscoveryResult) ([]models.Event, bool, error) {
	fingerprint := models.Fingerprint(req.Topics(), time.Now())

	if cached, ok := service.cacheGet(ctx, fingerprint); ok {
		service.logger.Debug("Serving events from cache",
			"request_id", result.RequestID,
			"fingerprint", fingerprint,
			"events", len(cached))
		return cached, true, nil
	}

	searchStart := time.Now()
	hits, searchStats, err := service.search.FetchHits(ctx, req.Topics(), req.Timeframe)
	result.RecordStage("search", searchStart)
	if err != nil {
		return nil, false, err
	}
	result.Stats.QueriesIssued = searchStats.QueriesIssued
	result.Stats.QueriesFailed = searchStats.QueriesFailed
	result.Stats.HitsFetched = len(hits)

	if service.enrichment != nil {
		enrichStart := time.Now()
		service.enrichment.Enrich(ctx, hits)
		result.RecordStage("enrich", enrichStart)
	}

	normalizeStart := time.Now()
	candidates := service.normalizer.Normalize(hits)
	result.RecordStage("normalize", normalizeStart)
	result.Stats.CandidatesKept = len(candidates)

	dedupeStart := time.Now()
	events, discarded := service.dedup.Dedupe(candidates)
	result.RecordStage("dedupe", dedupeStart)
	result.Stats.EventsDiscarded = discarded

	if len(events) == 0 {
		return nil, false, models.ErrNoEventsFound.
			WithMetadata("hits_fetched", len(hits)).
			WithMetadata("events_discarded", discarded)
	}

	scoreStart := time.Now()
	service.scorer.Score(events, req.InterestWeights, time.Now())
	result.RecordStage("score", scoreStart)

	// An aborted run must never populate the cache with partial results.
	if ctx.Err() != nil {
		return nil, false, models.NewTimeoutError("DISCOVERY_ABORTED", "discovery run aborted").WithCause(ctx.Err())
	}
	service.cachePut(ctx, fingerprint, events)

	return events, false, nil
}

func (service *DiscoveryService) cacheGet(ctx context.Context, fingerprint string) ([]models.Event, bool) {
	if service.cache == nil {
		return nil, false
	}
	return service.cache.Get(ctx, fingerprint)
}

func (service *DiscoveryService) cachePut(ctx context.Context, fingerprint string, events []models.Event) {
	if service.cache == nil {
		return
	}
	service.cache.Put(ctx, fingerprint, events, service.config.CacheTTL)
}

func (service *DiscoveryService) GetActiveRunsCount() int {
	count := 0
	service.activeRuns.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

func (service *DiscoveryService) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"service":        "discovery",
		"uptime_seconds": time.Since(service.startTime).Seconds(),
		"active_runs":    service.GetActiveRunsCount(),
		"stages":         []string{"search", "enrich", "normalize", "dedupe", "score", "group"},
	}
}

// Close waits for in-flight discovery runs to drain, up to the timeout.
func (service *DiscoveryService) Close(timeout time.Duration) error {
	service.logger.Info("Discovery Service shutting down")

	deadline := time.After(timeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			active := service.GetActiveRunsCount()
			if active > 0 {
				service.logger.Warn("Timeout waiting for discovery runs to complete", "active_runs", active)
			}
			return nil
		case <-ticker.C:
			if service.GetActiveRunsCount() == 0 {
				service.logger.Info("All discovery runs completed, service closed")
				return nil
			}
		}
	}
}

package services

import (
	"strings"
	"time"

	"feedcast-pipeline/internal/config"
	"feedcast-pipeline/internal/models"
	"feedcast-pipeline/internal/pkg/logger"
)

const (
	recencyFreshWindow = 6 * time.Hour
	recencyStaleCutoff = 7 * 24 * time.Hour
	unknownRecency     = 5.0
)

// ScorerService assigns importance scores in place. Scoring is pure and
// deterministic: identical inputs always yield identical scores.
type ScorerService struct {
	config config.DiscoveryConfig
	logger *logger.Logger
}

func NewScorerService(cfg config.DiscoveryConfig, log *logger.Logger) *ScorerService {
	return &ScorerService{config: cfg, logger: log}
}

// Score combines recency, credibility, corroboration and user-interest
// alignment, each normalized to 0-10 before weighting. The reference time
// is passed in so cached and replayed runs score identically.
func (service *ScorerService) Score(events []models.Event, interestWeights map[string]float64, now time.Time) {
	startTime := time.Now()

	maxWeight := 0.0
	for _, weight := range interestWeights {
		if weight > maxWeight {
			maxWeight = weight
		}
	}

	for i := range events {
		event := &events[i]

		recency := recencySubScore(event.PublishedAt, now)
		corroboration := corroborationSubScore(event.CorroborationCount)
		alignment := alignmentSubScore(event, interestWeights, maxWeight)

		score := service.config.RecencyWeight*recency +
			service.config.CredibilityWeight*event.CredibilityScore +
			service.config.CorroborationWeight*corroboration +
			service.config.AlignmentWeight*alignment

		event.ImportanceScore = clampScore(score)
	}

	service.logger.LogService("scorer", "score", time.Since(startTime), map[string]interface{}{
		"events_scored": len(events),
	}, nil)
}

// recencySubScore decays linearly from 10 inside the fresh window to 0 at
// the stale cutoff. Unknown publish times sit at the midpoint.
func recencySubScore(publishedAt *time.Time, now time.Time) float64 {
	if publishedAt == nil {
		return unknownRecency
	}
	age := now.Sub(*publishedAt)
	if age <= recencyFreshWindow {
		return 10
	}
	if age >= recencyStaleCutoff {
		return 0
	}
	span := float64(recencyStaleCutoff - recencyFreshWindow)
	return 10 * (1 - float64(age-recencyFreshWindow)/span)
}

// corroborationSubScore maxes out at five independent sources.
func corroborationSubScore(count int) float64 {
	score := 2 * float64(count)
	if score > 10 {
		return 10
	}
	return score
}

// alignmentSubScore takes the best matching user weight over the event's
// query topics and entities, rescaled against the heaviest interest.
func alignmentSubScore(event *models.Event, interestWeights map[string]float64, maxWeight float64) float64 {
	if maxWeight <= 0 {
		return 0
	}

	best := 0.0
	lookup := func(key string) {
		for interest, weight := range interestWeights {
			if strings.EqualFold(interest, key) && weight > best {
				best = weight
			}
		}
	}

	for _, topic := range event.QueryTopics {
		lookup(topic)
	}
	for _, entity := range event.Entities {
		lookup(entity)
	}

	return clampScore(best / maxWeight * 10)
}

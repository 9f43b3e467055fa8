package services_test

import (
	"testing"
	"time"

	"feedcast-pipeline/internal/models"
	"feedcast-pipeline/internal/services"
)

func TestScoreWeightedBlend(t *testing.T) {
	scorer := services.NewScorerService(testDiscoveryConfig(), newTestLogger(t))
	now := time.Now()

	events := []models.Event{
		{
			ID:                 "evt_1",
			Headline:           "Fresh corroborated story",
			QueryTopics:        []string{"artificial intelligence"},
			PublishedAt:        timePtr(now.Add(-time.Hour)),
			CredibilityScore:   8.0,
			CorroborationCount: 2,
		},
	}

	scorer.Score(events, map[string]float64{"artificial intelligence": 1.0}, now)

	// recency 10, credibility 8, corroboration 4, alignment 10, each 0.25.
	want := 8.0
	if events[0].ImportanceScore != want {
		t.Errorf("Expected importance %v, got %v", want, events[0].ImportanceScore)
	}
}

func TestScoreUnknownPublishTimeUsesMidpoint(t *testing.T) {
	scorer := services.NewScorerService(testDiscoveryConfig(), newTestLogger(t))
	now := time.Now()

	events := []models.Event{
		{
			ID:                 "evt_1",
			CredibilityScore:   8.0,
			CorroborationCount: 1,
		},
	}

	scorer.Score(events, map[string]float64{"robotics": 1.0}, now)

	// recency 5 (unknown), credibility 8, corroboration 2, alignment 0.
	want := 3.75
	if events[0].ImportanceScore != want {
		t.Errorf("Expected importance %v, got %v", want, events[0].ImportanceScore)
	}
}

func TestScoreStaysWithinBounds(t *testing.T) {
	scorer := services.NewScorerService(testDiscoveryConfig(), newTestLogger(t))
	now := time.Now()

	events := []models.Event{
		{ID: "a", CredibilityScore: 10, CorroborationCount: 20, QueryTopics: []string{"ai"}, PublishedAt: timePtr(now)},
		{ID: "b", CredibilityScore: 0, CorroborationCount: 0, PublishedAt: timePtr(now.Add(-30 * 24 * time.Hour))},
	}

	scorer.Score(events, map[string]float64{"ai": 5.0}, now)

	for _, event := range events {
		if event.ImportanceScore < 0 || event.ImportanceScore > 10 {
			t.Errorf("Importance %v for %s outside [0,10]", event.ImportanceScore, event.ID)
		}
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	scorer := services.NewScorerService(testDiscoveryConfig(), newTestLogger(t))
	now := time.Now()
	weights := map[string]float64{"artificial intelligence": 0.7, "robotics": 0.3}

	build := func() []models.Event {
		return []models.Event{
			{
				ID:                 "evt_1",
				QueryTopics:        []string{"robotics"},
				Entities:           []string{"Boston Dynamics"},
				PublishedAt:        timePtr(now.Add(-26 * time.Hour)),
				CredibilityScore:   7.25,
				CorroborationCount: 3,
			},
		}
	}

	first := build()
	second := build()
	scorer.Score(first, weights, now)
	scorer.Score(second, weights, now)

	if first[0].ImportanceScore != second[0].ImportanceScore {
		t.Errorf("Expected identical scores for identical inputs, got %v and %v",
			first[0].ImportanceScore, second[0].ImportanceScore)
	}
}

func TestScoreCorroborationIsMonotonic(t *testing.T) {
	scorer := services.NewScorerService(testDiscoveryConfig(), newTestLogger(t))
	now := time.Now()

	events := []models.Event{
		{ID: "a", CredibilityScore: 5, CorroborationCount: 1, PublishedAt: timePtr(now.Add(-time.Hour))},
		{ID: "b", CredibilityScore: 5, CorroborationCount: 3, PublishedAt: timePtr(now.Add(-time.Hour))},
	}

	scorer.Score(events, map[string]float64{"ai": 1.0}, now)

	if events[1].ImportanceScore <= events[0].ImportanceScore {
		t.Errorf("Expected more corroboration to score higher: %v vs %v",
			events[1].ImportanceScore, events[0].ImportanceScore)
	}
}

func TestScoreAlignmentMatchesEntities(t *testing.T) {
	scorer := services.NewScorerService(testDiscoveryConfig(), newTestLogger(t))
	now := time.Now()

	events := []models.Event{
		{ID: "a", Entities: []string{"DeepMind"}, CredibilityScore: 5, CorroborationCount: 1, PublishedAt: timePtr(now)},
		{ID: "b", Entities: []string{"Unrelated Corp"}, CredibilityScore: 5, CorroborationCount: 1, PublishedAt: timePtr(now)},
	}

	scorer.Score(events, map[string]float64{"deepmind": 1.0}, now)

	if events[0].ImportanceScore <= events[1].ImportanceScore {
		t.Errorf("Expected entity-aligned event to score higher: %v vs %v",
			events[0].ImportanceScore, events[1].ImportanceScore)
	}
}

package services_test

import (
	"testing"
	"time"

	"feedcast-pipeline/internal/config"
	"feedcast-pipeline/internal/pkg/logger"
	"feedcast-pipeline/internal/services"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.LogConfig{
		Level:  "error",
		Format: "json",
		Output: "stdout",
	})
	if err != nil {
		t.Fatalf("Failed to create test logger: %v", err)
	}
	return log
}

func testDiscoveryConfig() config.DiscoveryConfig {
	return config.DiscoveryConfig{
		SimilarityThreshold: 0.6,
		EntityOverlapMin:    2,
		MergeWindow:         48 * time.Hour,
		CredibilityFloor:    3.0,
		RecencyWeight:       0.25,
		CredibilityWeight:   0.25,
		CorroborationWeight: 0.25,
		AlignmentWeight:     0.25,
		MaxTopicGroups:      5,
		CacheTTL:            time.Hour,
	}
}

func newTestReputation(t *testing.T, defaultScore float64) *services.ReputationService {
	t.Helper()
	reputation, err := services.NewReputationService(config.ReputationConfig{
		DefaultScore: defaultScore,
	}, newTestLogger(t))
	if err != nil {
		t.Fatalf("Failed to create reputation service: %v", err)
	}
	return reputation
}

func timePtr(value time.Time) *time.Time {
	return &value
}

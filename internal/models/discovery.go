package models

import (
	"time"

	"github.com/google/uuid"
)

type DiscoveryStatus string

const (
	DiscoveryStatusPending   DiscoveryStatus = "pending"
	DiscoveryStatusRunning   DiscoveryStatus = "running"
	DiscoveryStatusCompleted DiscoveryStatus = "completed"
	DiscoveryStatusFailed    DiscoveryStatus = "failed"
)

// DiscoveryRequest asks for one discovery run over a user's weighted
// interest topics. Weights are strictly positive and relative to each other.
type DiscoveryRequest struct {
	UserID          string             `json:"user_id" binding:"required"`
	InterestWeights map[string]float64 `json:"interest_weights" binding:"required"`
	Timeframe       string             `json:"timeframe,omitempty"`
	Metadata        map[string]any     `json:"metadata,omitempty"`
}

func (req *DiscoveryRequest) Validate() error {
	if req.UserID == "" {
		return NewValidationError("MISSING_USER_ID", "user_id is required")
	}
	if len(req.InterestWeights) == 0 {
		return NewValidationError("MISSING_INTERESTS", "at least one interest weight is required")
	}
	for topic, weight := range req.InterestWeights {
		if topic == "" {
			return NewValidationError("EMPTY_INTEREST", "interest topic cannot be empty")
		}
		if weight <= 0 {
			return NewValidationError("INVALID_WEIGHT", "interest weight must be positive").
				WithMetadata("topic", topic)
		}
	}
	return nil
}

// Topics returns the interest strings in map-iteration order. Callers that
// need determinism sort the result themselves.
func (req *DiscoveryRequest) Topics() []string {
	topics := make([]string, 0, len(req.InterestWeights))
	for topic := range req.InterestWeights {
		topics = append(topics, topic)
	}
	return topics
}

// DiscoveryResult carries both the verified event set (for per-event
// narration) and the consolidated topics (for storage and follow-up).
type DiscoveryResult struct {
	RequestID string          `json:"request_id"`
	UserID    string          `json:"user_id"`
	Status    DiscoveryStatus `json:"status"`
	Events    []Event         `json:"events"`
	Topics    []Topic         `json:"topics"`
	FromCache bool            `json:"from_cache"`
	StartTime time.Time       `json:"start_time"`
	EndTime   *time.Time      `json:"end_time,omitempty"`
	Stats     PipelineStats   `json:"stats"`
}

type PipelineStats struct {
	TotalDuration     time.Duration         `json:"total_duration"`
	StageStats        map[string]StageStats `json:"stage_stats"`
	QueriesIssued     int                   `json:"queries_issued,omitempty"`
	QueriesFailed     int                   `json:"queries_failed,omitempty"`
	HitsFetched       int                   `json:"hits_fetched,omitempty"`
	CandidatesKept    int                   `json:"candidates_kept,omitempty"`
	EventsVerified    int                   `json:"events_verified,omitempty"`
	EventsDiscarded   int                   `json:"events_discarded,omitempty"`
	TopicsConsolidate int                   `json:"topics_consolidated,omitempty"`
}

type StageStats struct {
	Name      string        `json:"name"`
	Duration  time.Duration `json:"duration"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
}

func NewDiscoveryResult(req *DiscoveryRequest, requestID string) *DiscoveryResult {
	return &DiscoveryResult{
		RequestID: requestID,
		UserID:    req.UserID,
		Status:    DiscoveryStatusPending,
		StartTime: time.Now(),
		Stats: PipelineStats{
			StageStats: make(map[string]StageStats),
		},
	}
}

func (result *DiscoveryResult) MarkCompleted() {
	result.Status = DiscoveryStatusCompleted
	now := time.Now()
	result.EndTime = &now
	result.Stats.TotalDuration = time.Since(result.StartTime)
}

func (result *DiscoveryResult) MarkFailed() {
	result.Status = DiscoveryStatusFailed
	now := time.Now()
	result.EndTime = &now
	result.Stats.TotalDuration = time.Since(result.StartTime)
}

func (result *DiscoveryResult) RecordStage(name string, start time.Time) {
	end := time.Now()
	result.Stats.StageStats[name] = StageStats{
		Name:      name,
		Duration:  end.Sub(start),
		StartTime: start,
		EndTime:   end,
	}
}

func GenerateRequestID() string {
	return uuid.New().String()
}

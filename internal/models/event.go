package models

import (
	"sort"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// RawHit is one record returned by a search provider, before any cleaning.
// PublishedAt is nil when the provider does not know the publish time.
type RawHit struct {
	Title       string     `json:"title"`
	Snippet     string     `json:"snippet"`
	URL         string     `json:"url"`
	SourceName  string     `json:"source_name"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	QueryTopic  string     `json:"query_topic"`
	Entities    []string   `json:"entities,omitempty"`
}

// EventCandidate is a normalized raw hit: canonical URL, extracted entities
// and an assigned category. Consumed exactly once by the deduplicator.
type EventCandidate struct {
	Title       string     `json:"title"`
	Snippet     string     `json:"snippet"`
	URL         string     `json:"url"`
	SourceName  string     `json:"source_name"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	QueryTopic  string     `json:"query_topic"`
	Entities    []string   `json:"entities"`
	Category    string     `json:"category"`
}

// Event is a verified real-world occurrence merged from one or more
// candidates. Immutable after scoring.
type Event struct {
	ID                 string     `json:"id"`
	Headline           string     `json:"headline"`
	KeyFacts           []string   `json:"key_facts"`
	Entities           []string   `json:"entities"`
	Category           string     `json:"category"`
	SourceURLs         []string   `json:"source_urls"`
	QueryTopics        []string   `json:"query_topics"`
	PublishedAt        *time.Time `json:"published_at,omitempty"`
	CredibilityScore   float64    `json:"credibility_score"`
	ImportanceScore    float64    `json:"importance_score"`
	CorroborationCount int        `json:"corroboration_count"`
}

type TopicType string

const (
	TopicTypeEntity TopicType = "entity"
	TopicTypeTheme  TopicType = "theme"
)

// Topic is a consolidated group of events, the unit handed to persistence
// and narration collaborators.
type Topic struct {
	TopicType            TopicType `json:"topic_type"`
	TopicName            string    `json:"topic_name"`
	MemberEventIDs       []string  `json:"member_event_ids"`
	Summary              string    `json:"summary"`
	AggregatedKeyFacts   []string  `json:"aggregated_key_facts"`
	AggregatedSourceURLs []string  `json:"aggregated_source_urls"`
	ImportanceScore      float64   `json:"importance_score"`
}

// CacheEntry is the memoized pre-grouping pipeline output for one
// fingerprint. Entries are replaced wholesale, never mutated.
type CacheEntry struct {
	Fingerprint string    `json:"fingerprint"`
	Events      []Event   `json:"events"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (entry *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(entry.ExpiresAt)
}

// EventID derives a stable identifier from the canonical source URLs, so
// identical candidate sets always produce identical IDs.
func EventID(sourceURLs []string) string {
	sorted := make([]string, len(sourceURLs))
	copy(sorted, sourceURLs)
	sort.Strings(sorted)

	digest := xxhash.New()
	for _, url := range sorted {
		digest.WriteString(url)
		digest.WriteString("\n")
	}
	return "evt_" + strconv.FormatUint(digest.Sum64(), 16)
}

// Fingerprint derives the cache key for a set of query topics within one
// time bucket. Topic order does not matter; the bucket does.
func Fingerprint(queryTopics []string, bucket time.Time) string {
	sorted := make([]string, len(queryTopics))
	copy(sorted, queryTopics)
	sort.Strings(sorted)

	digest := xxhash.New()
	for _, topic := range sorted {
		digest.WriteString(topic)
		digest.WriteString("\n")
	}
	digest.WriteString(bucket.UTC().Format("2006010215"))
	return "fp_" + strconv.FormatUint(digest.Sum64(), 16)
}

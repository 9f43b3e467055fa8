package services

import (
	"sort"
	"strings"
	"time"

	"feedcast-pipeline/internal/config"
	"feedcast-pipeline/internal/models"
	"feedcast-pipeline/internal/pkg/logger"
)

// DedupService merges candidates describing the same occurrence into one
// Event and discards events below the credibility floor.
type DedupService struct {
	reputation *ReputationService
	config     config.DiscoveryConfig
	logger     *logger.Logger
}

func NewDedupService(reputation *ReputationService, cfg config.DiscoveryConfig, log *logger.Logger) *DedupService {
	return &DedupService{
		reputation: reputation,
		config:     cfg,
		logger:     log,
	}
}

// Dedupe groups candidates with union-find over pairwise matches, so a
// chain of near-duplicates collapses into one group even when the first
// and last members are dissimilar. Returns the surviving events and the
// number discarded by the credibility filter.
func (service *DedupService) Dedupe(candidates []models.EventCandidate) ([]models.Event, int) {
	startTime := time.Now()

	if len(candidates) == 0 {
		return nil, 0
	}

	parent := make([]int, len(candidates))
	for i := range parent {
		parent[i] = i
	}

	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) {
		rootA, rootB := find(a), find(b)
		if rootA != rootB {
			parent[rootB] = rootA
		}
	}

	tokenSets := make([]map[string]struct{}, len(candidates))
	for i, candidate := range candidates {
		tokenSets[i] = tokenSet(candidate.Title)
	}

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if service.sameOccurrence(&candidates[i], &candidates[j], tokenSets[i], tokenSets[j]) {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	for i := range candidates {
		root := find(i)
		groups[root] = append(groups[root], i)
	}

	// Stable iteration: visit groups in first-member order.
	roots := make([]int, 0, len(groups))
	for root := range groups {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(a, b int) bool {
		return groups[roots[a]][0] < groups[roots[b]][0]
	})

	var events []models.Event
	discarded := 0
	for _, root := range roots {
		event := service.synthesizeEvent(candidates, groups[root])
		if event.CredibilityScore < service.config.CredibilityFloor {
			discarded++
			service.logger.Debug("Discarding low-credibility event",
				"headline", event.Headline,
				"credibility", event.CredibilityScore,
				"floor", service.config.CredibilityFloor)
			continue
		}
		events = append(events, event)
	}

	service.logger.LogService("dedup", "dedupe", time.Since(startTime), map[string]interface{}{
		"candidates_in":    len(candidates),
		"events_out":       len(events),
		"events_discarded": discarded,
	}, nil)

	return events, discarded
}

// sameOccurrence is the pairwise merge predicate: high title overlap, or a
// strong entity overlap within the merge window. Unknown publish times do
// not block an entity-based merge.
func (service *DedupService) sameOccurrence(a, b *models.EventCandidate, tokensA, tokensB map[string]struct{}) bool {
	if tokenOverlap(tokensA, tokensB) >= service.config.SimilarityThreshold {
		return true
	}

	if sharedEntityCount(a.Entities, b.Entities) >= service.config.EntityOverlapMin {
		if a.PublishedAt == nil || b.PublishedAt == nil {
			return true
		}
		gap := a.PublishedAt.Sub(*b.PublishedAt)
		if gap < 0 {
			gap = -gap
		}
		return gap <= service.config.MergeWindow
	}

	return false
}

func (service *DedupService) synthesizeEvent(candidates []models.EventCandidate, members []int) models.Event {
	var headline string
	var publishedAt *time.Time

	urlSet := make(map[string]struct{})
	entitySet := make(map[string]string)
	topicSet := make(map[string]struct{})
	factSet := make(map[string]struct{})
	categoryVotes := make(map[string]int)

	var sourceURLs, keyFacts, queryTopics []string
	var reputations []float64

	for _, idx := range members {
		candidate := candidates[idx]

		if len(candidate.Title) > len(headline) {
			headline = candidate.Title
		}

		if _, ok := urlSet[candidate.URL]; !ok {
			urlSet[candidate.URL] = struct{}{}
			sourceURLs = append(sourceURLs, candidate.URL)
			reputations = append(reputations, service.reputation.Reputation(candidate.SourceName))
		}

		if candidate.Snippet != "" {
			if _, ok := factSet[candidate.Snippet]; !ok {
				factSet[candidate.Snippet] = struct{}{}
				keyFacts = append(keyFacts, candidate.Snippet)
			}
		}

		for _, entity := range candidate.Entities {
			entitySet[strings.ToLower(entity)] = entity
		}

		if candidate.QueryTopic != "" {
			if _, ok := topicSet[candidate.QueryTopic]; !ok {
				topicSet[candidate.QueryTopic] = struct{}{}
				queryTopics = append(queryTopics, candidate.QueryTopic)
			}
		}

		categoryVotes[candidate.Category]++

		if candidate.PublishedAt != nil {
			if publishedAt == nil || candidate.PublishedAt.After(*publishedAt) {
				published := *candidate.PublishedAt
				publishedAt = &published
			}
		}
	}

	entities := make([]string, 0, len(entitySet))
	for _, entity := range entitySet {
		entities = append(entities, entity)
	}
	sort.Strings(entities)
	sort.Strings(sourceURLs)
	sort.Strings(queryTopics)

	return models.Event{
		ID:                 models.EventID(sourceURLs),
		Headline:           headline,
		KeyFacts:           keyFacts,
		Entities:           entities,
		Category:           dominantCategory(categoryVotes),
		SourceURLs:         sourceURLs,
		QueryTopics:        queryTopics,
		PublishedAt:        publishedAt,
		CredibilityScore:   credibility(reputations),
		CorroborationCount: len(sourceURLs),
	}
}

// credibility blends the best contributing source with the average, so one
// highly reputable corroborator is not diluted by several weak ones.
func credibility(reputations []float64) float64 {
	if len(reputations) == 0 {
		return 0
	}
	max := reputations[0]
	sum := 0.0
	for _, reputation := range reputations {
		if reputation > max {
			max = reputation
		}
		sum += reputation
	}
	mean := sum / float64(len(reputations))
	return 0.5*max + 0.5*mean
}

func dominantCategory(votes map[string]int) string {
	best := CategoryGeneral
	bestVotes := 0
	categories := make([]string, 0, len(votes))
	for category := range votes {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		if votes[category] > bestVotes {
			bestVotes = votes[category]
			best = category
		}
	}
	return best
}

// Freshness and hype modifiers carry no identity. Short headlines differ
// mostly in these words, so keeping them deflates the overlap ratio.
var titleStopwords = map[string]struct{}{
	"new": {}, "latest": {}, "breaking": {}, "exclusive": {},
	"update": {}, "updated": {}, "news": {}, "today": {}, "just": {},
}

func tokenSet(text string) map[string]struct{} {
	replacer := strings.NewReplacer(
		",", " ", ".", " ", ":", " ", ";", " ", "!", " ", "?", " ",
		"(", " ", ")", " ", "'", " ", "\"", " ", "-", " ", "_", " ",
		"‘", " ", "’", " ", "“", " ", "”", " ",
	)
	set := make(map[string]struct{})
	for _, token := range strings.Fields(strings.ToLower(replacer.Replace(text))) {
		if len(token) <= 2 {
			continue
		}
		if _, generic := titleStopwords[token]; generic {
			continue
		}
		set[token] = struct{}{}
	}
	return set
}

// tokenOverlap is the normalized token-overlap ratio: intersection over
// the smaller set, so a short headline fully contained in a longer one
// still counts as a near-duplicate.
func tokenOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	smaller, larger := a, b
	if len(b) < len(a) {
		smaller, larger = b, a
	}
	intersection := 0
	for token := range smaller {
		if _, ok := larger[token]; ok {
			intersection++
		}
	}
	return float64(intersection) / float64(len(smaller))
}

func sharedEntityCount(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, entity := range a {
		set[strings.ToLower(entity)] = struct{}{}
	}
	count := 0
	for _, entity := range b {
		if _, ok := set[strings.ToLower(entity)]; ok {
			count++
		}
	}
	return count
}

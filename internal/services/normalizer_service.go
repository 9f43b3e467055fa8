package services

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"feedcast-pipeline/internal/models"
	"feedcast-pipeline/internal/pkg/logger"
)

// NormalizerService turns raw search hits into canonical event candidates.
// Malformed hits are skipped and logged; the batch never aborts.
type NormalizerService struct {
	logger *logger.Logger
}

func NewNormalizerService(log *logger.Logger) *NormalizerService {
	return &NormalizerService{logger: log}
}

// Tracking parameters stripped during URL canonicalization, so that two
// hits differing only by campaign tags resolve to the same source URL.
var trackingParams = map[string]bool{
	"fbclid":        true,
	"gclid":         true,
	"igshid":        true,
	"mc_cid":        true,
	"mc_eid":        true,
	"ref":           true,
	"ref_src":       true,
	"source":        true,
	"cmpid":         true,
	"ncid":          true,
	"smid":          true,
	"partner":       true,
	"guccounter":    true,
	"guce_referrer": true,
}

func (service *NormalizerService) Normalize(rawHits []models.RawHit) []models.EventCandidate {
	startTime := time.Now()

	candidates := make([]models.EventCandidate, 0, len(rawHits))
	skipped := 0

	for _, hit := range rawHits {
		title := strings.TrimSpace(hit.Title)
		if title == "" || strings.TrimSpace(hit.URL) == "" {
			skipped++
			service.logger.Debug("Skipping malformed hit",
				"url", hit.URL,
				"query_topic", hit.QueryTopic,
				"reason", "empty title or url")
			continue
		}

		canonicalURL, err := CanonicalizeURL(hit.URL)
		if err != nil {
			skipped++
			service.logger.Warn("Skipping hit with unparseable URL",
				"url", hit.URL,
				"error", err.Error())
			continue
		}

		sourceName := strings.TrimSpace(hit.SourceName)
		if sourceName == "" {
			sourceName = PublicationFromURL(canonicalURL)
		}

		entities := normalizeEntities(hit.Entities)
		if len(entities) == 0 {
			entities = ExtractEntities(title + ". " + hit.Snippet)
		}

		candidates = append(candidates, models.EventCandidate{
			Title:       title,
			Snippet:     strings.TrimSpace(hit.Snippet),
			URL:         canonicalURL,
			SourceName:  sourceName,
			PublishedAt: hit.PublishedAt,
			QueryTopic:  hit.QueryTopic,
			Entities:    entities,
			Category:    CategorizeText(title + " " + hit.Snippet),
		})
	}

	service.logger.LogService("normalizer", "normalize", time.Since(startTime), map[string]interface{}{
		"hits_in":        len(rawHits),
		"candidates_out": len(candidates),
		"skipped":        skipped,
	}, nil)

	return candidates
}

// CanonicalizeURL lowercases scheme and host, strips tracking query
// parameters, utm_* tags and fragments, and drops trailing slashes.
func CanonicalizeURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", models.NewValidationError("INVALID_URL", "url missing scheme or host").WithMetadata("url", raw)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""

	query := parsed.Query()
	for param := range query {
		lower := strings.ToLower(param)
		if trackingParams[lower] || strings.HasPrefix(lower, "utm_") {
			query.Del(param)
		}
	}
	parsed.RawQuery = query.Encode()
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")

	return parsed.String(), nil
}

// Words never treated as entities even when capitalized mid-sentence.
var entityStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "this": true, "that": true,
	"new": true, "its": true, "his": true, "her": true, "their": true,
	"how": true, "why": true, "what": true, "when": true, "where": true,
	"who": true, "breaking": true, "exclusive": true, "report": true,
	"update": true, "news": true, "today": true, "week": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
	"january": true, "february": true, "march": true, "april": true,
	"may": true, "june": true, "july": true, "august": true,
	"september": true, "october": true, "november": true, "december": true,
}

// ExtractEntities pulls capitalized token runs out of free text as a cheap
// stand-in for the named entities an upstream collaborator would supply.
func ExtractEntities(text string) []string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n'
	})

	seen := make(map[string]bool)
	var entities []string
	var run []string

	flush := func() {
		if len(run) == 0 {
			return
		}
		entity := strings.Join(run, " ")
		run = nil
		if len(entity) < 2 {
			return
		}
		key := strings.ToLower(entity)
		if entityStopwords[key] || seen[key] {
			return
		}
		seen[key] = true
		entities = append(entities, entity)
	}

	for _, word := range words {
		trimmed := strings.Trim(word, ".,;:!?\"'()[]")
		if trimmed == "" {
			flush()
			continue
		}

		first := rune(trimmed[0])
		if first >= 'A' && first <= 'Z' && !entityStopwords[strings.ToLower(trimmed)] {
			run = append(run, trimmed)
		} else {
			flush()
		}

		// Sentence punctuation ends a run even mid-capitalization.
		if strings.ContainsAny(word, ".!?") {
			flush()
		}
	}
	flush()

	sort.Strings(entities)
	return entities
}

func normalizeEntities(raw []string) []string {
	seen := make(map[string]bool)
	var entities []string
	for _, entity := range raw {
		entity = strings.TrimSpace(entity)
		if entity == "" {
			continue
		}
		key := strings.ToLower(entity)
		if seen[key] {
			continue
		}
		seen[key] = true
		entities = append(entities, entity)
	}
	sort.Strings(entities)
	return entities
}

package services

import (
	"encoding/json"
	"net/url"
	"os"
	"strings"

	"feedcast-pipeline/internal/config"
	"feedcast-pipeline/internal/models"
	"feedcast-pipeline/internal/pkg/logger"
)

// ReputationService answers how trustworthy a source is, on a 0-10 scale.
// Unknown sources get a conservative mid-low default.
type ReputationService struct {
	table        map[string]float64
	defaultScore float64
	logger       *logger.Logger
}

// Seeded per-publication reputations. A JSON table on disk overrides and
// extends these.
var defaultReputationTable = map[string]float64{
	"reuters":                 9.5,
	"associated press":        9.5,
	"ap news":                 9.5,
	"bbc":                     9.0,
	"bloomberg":               9.0,
	"financial times":         9.0,
	"the new york times":      8.5,
	"the wall street journal": 8.5,
	"the washington post":     8.5,
	"the guardian":            8.0,
	"nature":                  9.5,
	"science":                 9.5,
	"techcrunch":              7.0,
	"the verge":               7.0,
	"ars technica":            7.5,
	"wired":                   7.5,
	"engadget":                6.5,
	"venturebeat":             6.0,
	"business insider":        6.0,
	"medium":                  3.5,
	"substack":                3.5,
}

func NewReputationService(cfg config.ReputationConfig, log *logger.Logger) (*ReputationService, error) {
	table := make(map[string]float64, len(defaultReputationTable))
	for source, score := range defaultReputationTable {
		table[source] = score
	}

	if cfg.TablePath != "" {
		data, err := os.ReadFile(cfg.TablePath)
		if err != nil {
			return nil, models.NewInternalError("REPUTATION_TABLE_READ_FAILED", "failed to read reputation table").WithCause(err)
		}
		var overrides map[string]float64
		if err := json.Unmarshal(data, &overrides); err != nil {
			return nil, models.NewInternalError("REPUTATION_TABLE_PARSE_FAILED", "failed to parse reputation table").WithCause(err)
		}
		for source, score := range overrides {
			table[strings.ToLower(strings.TrimSpace(source))] = clampScore(score)
		}
	}

	service := &ReputationService{
		table:        table,
		defaultScore: cfg.DefaultScore,
		logger:       log,
	}

	log.Info("Reputation Service initialized",
		"known_sources", len(table),
		"default_score", cfg.DefaultScore)

	return service, nil
}

// Reputation looks up a source by name, falling back to its registrable
// domain when the name looks like a URL or hostname.
func (service *ReputationService) Reputation(sourceName string) float64 {
	key := strings.ToLower(strings.TrimSpace(sourceName))
	if key == "" {
		return service.defaultScore
	}

	if score, ok := service.table[key]; ok {
		return score
	}

	if publication := PublicationFromURL(key); publication != "" {
		if score, ok := service.table[strings.ToLower(publication)]; ok {
			return score
		}
	}

	return service.defaultScore
}

// PublicationFromURL extracts a publication name from a URL or bare host,
// e.g. "https://www.techcrunch.com/x" -> "techcrunch".
func PublicationFromURL(raw string) string {
	host := raw
	if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		host = parsed.Host
	}

	host = strings.ToLower(host)
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	if idx := strings.IndexByte(host, ':'); idx >= 0 {
		host = host[:idx]
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}
	if host != "" && !strings.ContainsAny(host, "/ ") {
		return host
	}
	return ""
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"feedcast-pipeline/internal/config"
	"feedcast-pipeline/internal/models"
	"feedcast-pipeline/internal/pkg/logger"
)

// EnrichmentService fills in publish times, source names and lead
// snippets that the search providers could not supply, by reading article
// meta tags and body text. Every fetch is best-effort: a failed page
// leaves its hit untouched.
type EnrichmentService struct {
	collector *colly.Collector
	config    config.EnrichmentConfig
	logger    *logger.Logger
}

func NewEnrichmentService(cfg config.EnrichmentConfig, log *logger.Logger) (*EnrichmentService, error) {
	collector := colly.NewCollector(
		colly.UserAgent("Feedcast-Discovery/1.0 (+https://feedcast.app/bot)"),
	)

	collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 2,
		Delay:       time.Second,
	})
	collector.SetRequestTimeout(cfg.FetchTimeout)

	service := &EnrichmentService{
		collector: collector,
		config:    cfg,
		logger:    log,
	}

	log.Info("Enrichment Service initialized",
		"enabled", cfg.Enabled,
		"max_concurrency", cfg.MaxConcurrency,
		"fetch_timeout", cfg.FetchTimeout)

	return service, nil
}

// Enrich visits the hits missing a publish time or snippet, in place.
// Hits that already carry both are never fetched.
func (service *EnrichmentService) Enrich(ctx context.Context, hits []models.RawHit) {
	if !service.config.Enabled {
		return
	}
	startTime := time.Now()

	var pending []int
	for i := range hits {
		if hits[i].URL == "" {
			continue
		}
		if hits[i].PublishedAt == nil || hits[i].Snippet == "" {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return
	}

	semaphore := make(chan struct{}, maxInt(service.config.MaxConcurrency, 1))
	var wg sync.WaitGroup
	enriched := 0
	var mu sync.Mutex

	for _, idx := range pending {
		wg.Add(1)
		go func(hit *models.RawHit) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				return
			}

			meta := service.fetchMeta(hit.URL)
			mu.Lock()
			defer mu.Unlock()
			if meta.publishedAt != nil && hit.PublishedAt == nil {
				hit.PublishedAt = meta.publishedAt
				enriched++
			}
			if meta.sourceName != "" && hit.SourceName == "" {
				hit.SourceName = meta.sourceName
			}
			if meta.snippet != "" && hit.Snippet == "" {
				hit.Snippet = meta.snippet
			}
		}(&hits[idx])
	}

	wg.Wait()

	service.logger.LogService("enrichment", "enrich", time.Since(startTime), map[string]interface{}{
		"hits_pending":  len(pending),
		"hits_enriched": enriched,
	}, nil)
}

var publishedMetaSelectors = []string{
	"meta[property='article:published_time']",
	"meta[name='article:published_time']",
	"meta[name='publish-date']",
	"meta[name='date']",
	"meta[itemprop='datePublished']",
}

var publishedTimeFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type pageMeta struct {
	publishedAt *time.Time
	sourceName  string
	snippet     string
}

func (service *EnrichmentService) fetchMeta(targetURL string) pageMeta {
	var meta pageMeta

	c := service.collector.Clone()

	c.OnHTML("html", func(e *colly.HTMLElement) {
		if dateStr := e.ChildAttr("time", "datetime"); dateStr != "" {
			meta.publishedAt = parsePublished(dateStr)
		}
		if meta.publishedAt == nil {
			for _, selector := range publishedMetaSelectors {
				if dateStr := e.ChildAttr(selector, "content"); dateStr != "" {
					if parsed := parsePublished(dateStr); parsed != nil {
						meta.publishedAt = parsed
						break
					}
				}
			}
		}

		if name := e.ChildAttr("meta[property='og:site_name']", "content"); strings.TrimSpace(name) != "" {
			meta.sourceName = strings.TrimSpace(name)
		}

		meta.snippet = leadParagraph(e.DOM)
	})

	c.OnError(func(r *colly.Response, err error) {
		service.logger.Debug("Enrichment fetch failed",
			"url", targetURL,
			"error", err.Error())
	})

	if err := c.Visit(targetURL); err != nil {
		service.logger.Debug("Enrichment visit failed", "url", targetURL, "error", err.Error())
		return pageMeta{}
	}
	c.Wait()

	return meta
}

const (
	leadParagraphMinLen = 80
	leadParagraphMaxLen = 400
)

// leadParagraph picks the first substantial paragraph as a snippet
// fallback, preferring paragraphs inside an article element.
func leadParagraph(doc *goquery.Selection) string {
	var lead string
	doc.Find("article p, p").EachWithBreak(func(_ int, paragraph *goquery.Selection) bool {
		text := strings.Join(strings.Fields(paragraph.Text()), " ")
		if len(text) < leadParagraphMinLen {
			return true
		}
		if len(text) > leadParagraphMaxLen {
			text = text[:leadParagraphMaxLen]
		}
		lead = text
		return false
	})
	return lead
}

func parsePublished(value string) *time.Time {
	for _, format := range publishedTimeFormats {
		if parsed, err := time.Parse(format, strings.TrimSpace(value)); err == nil {
			return &parsed
		}
	}
	return nil
}

package services

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"feedcast-pipeline/internal/config"
	"feedcast-pipeline/internal/models"
	"feedcast-pipeline/internal/pkg/logger"
)

// RSSProvider serves hits from curated per-topic feeds. It answers any
// query whose text contains a configured topic; other queries return
// nothing, letting the API-backed providers cover them.
type RSSProvider struct {
	feeds  map[string][]string
	parser *gofeed.Parser
	logger *logger.Logger
}

func NewRSSProvider(cfg config.SearchConfig, log *logger.Logger) *RSSProvider {
	log.Info("RSS provider initialized", "topics", len(cfg.RSSFeeds))

	return &RSSProvider{
		feeds:  cfg.RSSFeeds,
		parser: gofeed.NewParser(),
		logger: log,
	}
}

func (provider *RSSProvider) Name() string {
	return "rss"
}

func (provider *RSSProvider) Search(ctx context.Context, query string) ([]models.RawHit, error) {
	startTime := time.Now()
	lowered := strings.ToLower(query)

	var urls []string
	for topic, feedURLs := range provider.feeds {
		if strings.Contains(lowered, strings.ToLower(topic)) {
			urls = append(urls, feedURLs...)
		}
	}

	if len(urls) == 0 {
		return nil, nil
	}

	var hits []models.RawHit
	failed := 0
	for _, feedURL := range urls {
		feed, err := provider.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			failed++
			provider.logger.WithError(err).Warn("Failed to parse feed, skipping",
				"feed_url", feedURL)
			continue
		}

		sourceName := feed.Title
		if sourceName == "" {
			sourceName = PublicationFromURL(feedURL)
		}

		for _, item := range feed.Items {
			hit := models.RawHit{
				Title:      item.Title,
				Snippet:    strings.TrimSpace(item.Description),
				URL:        item.Link,
				SourceName: sourceName,
			}
			if item.PublishedParsed != nil {
				published := *item.PublishedParsed
				hit.PublishedAt = &published
			}
			hits = append(hits, hit)
		}
	}

	provider.logger.LogService("rss", "search", time.Since(startTime), map[string]interface{}{
		"query":        query,
		"feeds":        len(urls),
		"feeds_failed": failed,
		"hits":         len(hits),
	}, nil)

	return hits, nil
}

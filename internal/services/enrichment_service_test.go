package services_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"feedcast-pipeline/internal/config"
	"feedcast-pipeline/internal/models"
	"feedcast-pipeline/internal/services"
)

const articlePage = `<!DOCTYPE html>
<html>
<head>
<meta property="article:published_time" content="2026-08-29T10:30:00Z">
<meta property="og:site_name" content="Example Tech News">
</head>
<body>
<article>
<p>Short.</p>
<p>A regulator announced a sweeping review of automated decision systems on Friday, citing months of complaints from consumer groups about opaque outcomes.</p>
</article>
</body>
</html>`

func newTestEnrichment(t *testing.T, enabled bool) *services.EnrichmentService {
	t.Helper()
	enrichment, err := services.NewEnrichmentService(config.EnrichmentConfig{
		Enabled:        enabled,
		MaxConcurrency: 2,
		FetchTimeout:   5 * time.Second,
	}, newTestLogger(t))
	if err != nil {
		t.Fatalf("Failed to create enrichment service: %v", err)
	}
	return enrichment
}

func TestEnrichDisabledIsNoOp(t *testing.T) {
	enrichment := newTestEnrichment(t, false)

	hits := []models.RawHit{{Title: "A story", URL: "https://example.invalid/a"}}
	enrichment.Enrich(context.Background(), hits)

	if hits[0].PublishedAt != nil || hits[0].Snippet != "" {
		t.Errorf("Expected disabled enrichment to leave hits untouched, got %+v", hits[0])
	}
}

func TestEnrichFillsMissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articlePage))
	}))
	defer server.Close()

	enrichment := newTestEnrichment(t, true)

	hits := []models.RawHit{{Title: "A story", URL: server.URL + "/article"}}
	enrichment.Enrich(context.Background(), hits)

	if hits[0].PublishedAt == nil {
		t.Fatal("Expected publish time to be filled from meta tags")
	}
	want := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	if !hits[0].PublishedAt.Equal(want) {
		t.Errorf("Expected publish time %v, got %v", want, hits[0].PublishedAt)
	}
	if hits[0].SourceName != "Example Tech News" {
		t.Errorf("Expected source name from og:site_name, got %q", hits[0].SourceName)
	}
	if hits[0].Snippet == "" {
		t.Error("Expected lead paragraph snippet to be filled")
	}
}

func TestEnrichKeepsExistingValues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articlePage))
	}))
	defer server.Close()

	existing := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	hits := []models.RawHit{{
		Title:       "A story",
		URL:         server.URL + "/article",
		SourceName:  "Original Source",
		Snippet:     "",
		PublishedAt: timePtr(existing),
	}}

	enrichment := newTestEnrichment(t, true)
	enrichment.Enrich(context.Background(), hits)

	if !hits[0].PublishedAt.Equal(existing) {
		t.Errorf("Expected existing publish time preserved, got %v", hits[0].PublishedAt)
	}
	if hits[0].SourceName != "Original Source" {
		t.Errorf("Expected existing source name preserved, got %q", hits[0].SourceName)
	}
}

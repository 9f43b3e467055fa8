package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"

	"feedcast-pipeline/internal/config"
	"feedcast-pipeline/internal/models"
	"feedcast-pipeline/internal/pkg/logger"
)

// NewsAPIProvider searches the NewsAPI "everything" endpoint. Transient
// failures are retried with exponential backoff behind a circuit breaker,
// so a dead upstream degrades to fast empty results instead of stalling
// every discovery run.
type NewsAPIProvider struct {
	apiKey     string
	baseURL    string
	pageSize   int
	maxRetries int
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *logger.Logger
}

type newsAPIResponse struct {
	Status       string           `json:"status"`
	TotalResults int              `json:"totalResults"`
	Code         string           `json:"code"`
	Message      string           `json:"message"`
	Articles     []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

func NewNewsAPIProvider(cfg config.SearchConfig, log *logger.Logger) (*NewsAPIProvider, error) {
	if cfg.NewsAPIKey == "" {
		return nil, errors.New("NewsAPI key required")
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "newsapi",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})

	provider := &NewsAPIProvider{
		apiKey:     cfg.NewsAPIKey,
		baseURL:    cfg.NewsAPIURL,
		pageSize:   cfg.HitsPerQuery,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: cfg.QueryTimeout},
		breaker:    breaker,
		logger:     log,
	}

	log.Info("NewsAPI provider initialized",
		"base_url", cfg.NewsAPIURL,
		"page_size", cfg.HitsPerQuery)

	return provider, nil
}

func (provider *NewsAPIProvider) Name() string {
	return "newsapi"
}

func (provider *NewsAPIProvider) Search(ctx context.Context, query string) ([]models.RawHit, error) {
	startTime := time.Now()

	operation := func() ([]models.RawHit, error) {
		result, err := provider.breaker.Execute(func() (interface{}, error) {
			return provider.fetch(ctx, query)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, backoff.Permanent(err)
			}
			var appErr *models.AppError
			if errors.As(err, &appErr) && appErr.Type == models.ErrorTypeValidation {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return result.([]models.RawHit), nil
	}

	hits, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(maxInt(provider.maxRetries, 1))))

	provider.logger.LogService("newsapi", "search", time.Since(startTime), map[string]interface{}{
		"query": query,
		"hits":  len(hits),
	}, err)

	if err != nil {
		return nil, models.WrapExternalError("NEWSAPI", err)
	}
	return hits, nil
}

func (provider *NewsAPIProvider) fetch(ctx context.Context, query string) ([]models.RawHit, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("sortBy", "publishedAt")
	params.Set("language", "en")
	params.Set("pageSize", fmt.Sprintf("%d", provider.pageSize))

	endpoint := fmt.Sprintf("%s/everything?%s", provider.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, models.NewValidationError("NEWSAPI_BAD_REQUEST", "failed to build request").WithCause(err)
	}
	req.Header.Set("X-Api-Key", provider.apiKey)

	resp, err := provider.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode NewsAPI response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return nil, models.NewValidationError("NEWSAPI_REJECTED", payload.Message).
			WithMetadata("code", payload.Code)
	}
	if resp.StatusCode != http.StatusOK || payload.Status != "ok" {
		return nil, fmt.Errorf("NewsAPI returned %d (%s)", resp.StatusCode, payload.Message)
	}

	hits := make([]models.RawHit, 0, len(payload.Articles))
	for _, article := range payload.Articles {
		hit := models.RawHit{
			Title:      article.Title,
			Snippet:    article.Description,
			URL:        article.URL,
			SourceName: article.Source.Name,
		}
		if published, err := time.Parse(time.RFC3339, article.PublishedAt); err == nil {
			hit.PublishedAt = &published
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

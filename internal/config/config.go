package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Logger     LoggerConfig
	Redis      RedisConfig
	Search     SearchConfig
	Discovery  DiscoveryConfig
	Enrichment EnrichmentConfig
	Reputation ReputationConfig
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Format   string
	Output   string
	FilePath string
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type SearchConfig struct {
	NewsAPIKey    string
	NewsAPIURL    string
	RSSFeeds      map[string][]string
	MaxConcurrent int
	QueryTimeout  time.Duration
	MaxRetries    int
	HitsPerQuery  int
	ExpandQueries bool
}

// DiscoveryConfig carries the consolidation tunables. The defaults are
// reasonable starting points, not a bit-exact contract.
type DiscoveryConfig struct {
	SimilarityThreshold float64
	EntityOverlapMin    int
	MergeWindow         time.Duration
	CredibilityFloor    float64
	RecencyWeight       float64
	CredibilityWeight   float64
	CorroborationWeight float64
	AlignmentWeight     float64
	MaxTopicGroups      int
	CacheTTL            time.Duration
}

type EnrichmentConfig struct {
	Enabled        bool
	MaxConcurrency int
	FetchTimeout   time.Duration
}

type ReputationConfig struct {
	TablePath    string
	DefaultScore float64
}

func Load() (*Config, error) {
	// A missing .env file is fine in deployed environments.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Format:   getEnv("LOG_FORMAT", "json"),
			Output:   getEnv("LOG_OUTPUT", "stdout"),
			FilePath: getEnv("LOG_FILE_PATH", ""),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Search: SearchConfig{
			NewsAPIKey:    getEnv("NEWS_API_KEY", ""),
			NewsAPIURL:    getEnv("NEWS_API_URL", "https://newsapi.org/v2"),
			RSSFeeds:      parseFeedMap(getEnv("RSS_FEEDS", "")),
			MaxConcurrent: getInt("SEARCH_MAX_CONCURRENT", 4),
			QueryTimeout:  getDuration("SEARCH_QUERY_TIMEOUT", 15*time.Second),
			MaxRetries:    getInt("SEARCH_MAX_RETRIES", 3),
			HitsPerQuery:  getInt("SEARCH_HITS_PER_QUERY", 10),
			ExpandQueries: getBool("SEARCH_EXPAND_QUERIES", true),
		},
		Discovery: DiscoveryConfig{
			SimilarityThreshold: getFloat("DISCOVERY_SIMILARITY_THRESHOLD", 0.6),
			EntityOverlapMin:    getInt("DISCOVERY_ENTITY_OVERLAP_MIN", 2),
			MergeWindow:         getDuration("DISCOVERY_MERGE_WINDOW", 48*time.Hour),
			CredibilityFloor:    getFloat("DISCOVERY_CREDIBILITY_FLOOR", 3.0),
			RecencyWeight:       getFloat("DISCOVERY_RECENCY_WEIGHT", 0.25),
			CredibilityWeight:   getFloat("DISCOVERY_CREDIBILITY_WEIGHT", 0.25),
			CorroborationWeight: getFloat("DISCOVERY_CORROBORATION_WEIGHT", 0.25),
			AlignmentWeight:     getFloat("DISCOVERY_ALIGNMENT_WEIGHT", 0.25),
			MaxTopicGroups:      getInt("DISCOVERY_MAX_TOPIC_GROUPS", 5),
			CacheTTL:            getDuration("DISCOVERY_CACHE_TTL", time.Hour),
		},
		Enrichment: EnrichmentConfig{
			Enabled:        getBool("ENRICHMENT_ENABLED", false),
			MaxConcurrency: getInt("ENRICHMENT_MAX_CONCURRENCY", 3),
			FetchTimeout:   getDuration("ENRICHMENT_FETCH_TIMEOUT", 10*time.Second),
		},
		Reputation: ReputationConfig{
			TablePath:    getEnv("REPUTATION_TABLE_PATH", ""),
			DefaultScore: getFloat("REPUTATION_DEFAULT_SCORE", 4.0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if cfg.Discovery.SimilarityThreshold <= 0 || cfg.Discovery.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be in (0,1], got %v", cfg.Discovery.SimilarityThreshold)
	}
	if cfg.Discovery.CredibilityFloor < 0 || cfg.Discovery.CredibilityFloor > 10 {
		return fmt.Errorf("credibility floor must be in [0,10], got %v", cfg.Discovery.CredibilityFloor)
	}
	if cfg.Discovery.MaxTopicGroups < 1 {
		return fmt.Errorf("max topic groups must be at least 1, got %d", cfg.Discovery.MaxTopicGroups)
	}
	weightSum := cfg.Discovery.RecencyWeight + cfg.Discovery.CredibilityWeight +
		cfg.Discovery.CorroborationWeight + cfg.Discovery.AlignmentWeight
	if weightSum < 0.999 || weightSum > 1.001 {
		return fmt.Errorf("score weights must sum to 1.0, got %v", weightSum)
	}
	if cfg.Reputation.DefaultScore < 0 || cfg.Reputation.DefaultScore > 10 {
		return fmt.Errorf("default reputation must be in [0,10], got %v", cfg.Reputation.DefaultScore)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// parseFeedMap reads "topic=url,url;topic=url" into per-topic feed lists.
func parseFeedMap(raw string) map[string][]string {
	feeds := make(map[string][]string)
	if raw == "" {
		return feeds
	}
	for _, pair := range strings.Split(raw, ";") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		topic := strings.TrimSpace(parts[0])
		if topic == "" {
			continue
		}
		for _, url := range strings.Split(parts[1], ",") {
			url = strings.TrimSpace(url)
			if url != "" {
				feeds[topic] = append(feeds[topic], url)
			}
		}
	}
	return feeds
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config groups all service configuration. Values come from environment
// variables with development defaults so main stays lean.
type Config struct {
	Server  Server
	Source  Source
	Scoring Scoring
	Hub     Hub
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
}

// Source selects and configures the ingestion adapter.
type Source struct {
	// Kind is one of "kafka", "poll", "synthetic".
	Kind string

	// Kafka adapter.
	Brokers []string
	Topic   string
	Group   string

	// Poll adapter.
	Endpoint     string
	PollInterval time.Duration
	PollLimit    int
}

// Scoring configures the risk scorer.
type Scoring struct {
	// Kind is "remote" (external inference) or "rules" (local classifier).
	Kind string

	Endpoint  string
	Timeout   time.Duration
	MaxTokens int

	// Workers caps concurrent outbound inference calls; Queue bounds the
	// number of transactions admitted but not yet published.
	Workers int
	Queue   int

	// RedisURL switches the velocity window store to Redis when set.
	RedisURL string
}

// Hub configures the broadcast hub.
type Hub struct {
	CatchUp          int
	SubscriberBuffer int
	SeedSamples      int
}

// FromEnv builds the full configuration from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr: getenv("FRAUDLENS_ADDR", ":8080"),
		},
		Source: Source{
			Kind:         getenv("SOURCE_KIND", "synthetic"),
			Brokers:      strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ","),
			Topic:        getenv("KAFKA_TOPIC", "transactions"),
			Group:        getenv("KAFKA_GROUP", "fraudlens"),
			Endpoint:     getenv("POLL_ENDPOINT", ""),
			PollInterval: getduration("POLL_INTERVAL", 4*time.Second),
			PollLimit:    getint("POLL_LIMIT", 5),
		},
		Scoring: Scoring{
			Kind:      getenv("SCORER_KIND", "remote"),
			Endpoint:  getenv("INFERENCE_ENDPOINT", "http://localhost:5001/analyze"),
			Timeout:   getduration("INFERENCE_TIMEOUT", 5*time.Second),
			MaxTokens: getint("INFERENCE_MAX_TOKENS", 200),
			Workers:   getint("SCORING_WORKERS", 8),
			Queue:     getint("SCORING_QUEUE", 256),
			RedisURL:  getenv("VELOCITY_REDIS_URL", ""),
		},
		Hub: Hub{
			CatchUp:          getint("HUB_CATCHUP", 16),
			SubscriberBuffer: getint("HUB_SUBSCRIBER_BUFFER", 64),
			SeedSamples:      getint("HUB_SEED_SAMPLES", 3),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getduration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the server configuration, read from the environment. Numeric
// settings that are unset, malformed or not positive take their default.
type Config struct {
	Port   string
	APIKey string

	WorkerCount    int
	MaxQueueSize   int
	MaxUploadBytes int64

	// DocTimeout bounds one document end to end; MatchTimeout bounds a
	// single regular-expression scan inside it.
	DocTimeout   time.Duration
	MatchTimeout time.Duration

	MarkerSpecFile string
	FallbackTitles []string

	DefaultChunkSize    int
	DefaultChunkOverlap int

	JobTTL time.Duration

	DBPath      string
	DedupByHash bool

	ArxivURL    string
	ArxivAPIURL string
}

func Load() Config {
	return Config{
		Port:   envOr("PORT", "8090"),
		APIKey: os.Getenv("TEXGEST_API_KEY"),

		WorkerCount:    positive("WORKER_COUNT", 4, strconv.Atoi),
		MaxQueueSize:   positive("MAX_QUEUE_SIZE", 100, strconv.Atoi),
		MaxUploadBytes: positive("MAX_UPLOAD_BYTES", 50<<20, parseInt64),

		DocTimeout:   positive("DOC_TIMEOUT", 2*time.Minute, time.ParseDuration),
		MatchTimeout: positive("MATCH_TIMEOUT", 5*time.Second, time.ParseDuration),

		MarkerSpecFile: os.Getenv("MARKER_SPEC_FILE"),
		FallbackTitles: envList("FALLBACK_TITLES", []string{"Abstract", "Conclusion", "Conclusions"}),

		DefaultChunkSize:    positive("DEFAULT_CHUNK_SIZE", 1500, strconv.Atoi),
		DefaultChunkOverlap: positive("DEFAULT_CHUNK_OVERLAP", 200, strconv.Atoi),

		JobTTL: positive("JOB_TTL", time.Hour, time.ParseDuration),

		DBPath:      envOr("DB_PATH", "texgest.db"),
		DedupByHash: env("DEDUP_BY_HASH", true, strconv.ParseBool),

		ArxivURL:    envOr("ARXIV_URL", "https://arxiv.org"),
		ArxivAPIURL: envOr("ARXIV_API_URL", "http://export.arxiv.org/api/query"),
	}
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("TEXGEST_API_KEY is required")
	}
	if c.MatchTimeout > c.DocTimeout {
		return fmt.Errorf("MATCH_TIMEOUT (%s) must not exceed DOC_TIMEOUT (%s)", c.MatchTimeout, c.DocTimeout)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// env parses key with parse, returning fallback when the variable is unset
// or does not parse.
func env[T any](key string, fallback T, parse func(string) (T, error)) T {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if x, err := parse(v); err == nil {
		return x
	}
	return fallback
}

// positive is env for numeric settings that must be greater than zero.
func positive[T int | int64 | time.Duration](key string, fallback T, parse func(string) (T, error)) T {
	if x := env(key, fallback, parse); x > 0 {
		return x
	}
	return fallback
}

func parseInt64(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

func envList(key string, fallback []string) []string {
	var out []string
	for f := range strings.SplitSeq(os.Getenv(key), ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

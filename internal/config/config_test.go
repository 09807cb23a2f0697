package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "WORKER_COUNT", "DOC_TIMEOUT", "FALLBACK_TITLES", "DEDUP_BY_HASH", "DB_PATH"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.WorkerCount != 4 || cfg.MaxQueueSize != 100 {
		t.Errorf("unexpected pool sizes %d/%d", cfg.WorkerCount, cfg.MaxQueueSize)
	}
	if cfg.DocTimeout != 2*time.Minute || cfg.MatchTimeout != 5*time.Second {
		t.Errorf("unexpected timeouts %s/%s", cfg.DocTimeout, cfg.MatchTimeout)
	}
	if strings.Join(cfg.FallbackTitles, ",") != "Abstract,Conclusion,Conclusions" {
		t.Errorf("unexpected fallback titles %v", cfg.FallbackTitles)
	}
	if !cfg.DedupByHash || cfg.DBPath != "texgest.db" {
		t.Errorf("unexpected persistence settings %v %q", cfg.DedupByHash, cfg.DBPath)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("DOC_TIMEOUT", "30s")
	t.Setenv("FALLBACK_TITLES", " Summary , ,Outlook")
	t.Setenv("DEDUP_BY_HASH", "false")
	t.Setenv("MAX_UPLOAD_BYTES", "notanumber")

	cfg := Load()
	if cfg.WorkerCount != 4 {
		t.Errorf("expected clamped worker count 4, got %d", cfg.WorkerCount)
	}
	if cfg.DocTimeout != 30*time.Second {
		t.Errorf("expected 30s, got %s", cfg.DocTimeout)
	}
	if strings.Join(cfg.FallbackTitles, ",") != "Summary,Outlook" {
		t.Errorf("unexpected fallback titles %v", cfg.FallbackTitles)
	}
	if cfg.DedupByHash {
		t.Error("expected dedup disabled")
	}
	if cfg.MaxUploadBytes != 52428800 {
		t.Errorf("expected default upload limit, got %d", cfg.MaxUploadBytes)
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{DocTimeout: time.Minute, MatchTimeout: time.Second}
	if err := cfg.Validate(); err == nil {
		t.Error("expected missing API key error")
	}
	cfg.APIKey = "k"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	cfg.MatchTimeout = 2 * time.Minute
	if err := cfg.Validate(); err == nil {
		t.Error("expected match timeout error")
	}
}

func TestPositive_RejectsZero(t *testing.T) {
	t.Setenv("JOB_TTL", "0s")
	t.Setenv("DEFAULT_CHUNK_SIZE", "0")
	t.Setenv("MATCH_TIMEOUT", "250ms")

	cfg := Load()
	if cfg.JobTTL != time.Hour {
		t.Errorf("expected default TTL, got %s", cfg.JobTTL)
	}
	if cfg.DefaultChunkSize != 1500 {
		t.Errorf("expected default chunk size, got %d", cfg.DefaultChunkSize)
	}
	if cfg.MatchTimeout != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %s", cfg.MatchTimeout)
	}
}

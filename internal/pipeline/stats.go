package pipeline

import (
	"maps"
	"math"
	"slices"
	"sync"
	"time"
)

// Latency summarises one stage's durations in milliseconds.
type Latency struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// StatsSnapshot is a point-in-time view of ProcessingStats.
type StatsSnapshot struct {
	// Count is the number of completed documents in the window.
	Count int `json:"count"`
	// Stages maps a stage name ("parse", "filter", "normalize", "total") to
	// its latency over the window.
	Stages map[string]Latency `json:"stages"`
	// Outcomes counts finished jobs by terminal status since start.
	Outcomes map[JobStatus]int `json:"outcomes"`
}

type sample struct {
	at      time.Time
	timings map[string]int64
}

// ProcessingStats keeps per-stage timings of completed documents for a
// rolling window, plus lifetime outcome counters.
type ProcessingStats struct {
	mu       sync.Mutex
	window   time.Duration
	samples  []sample
	outcomes map[JobStatus]int
}

func NewProcessingStats(window time.Duration) *ProcessingStats {
	if window <= 0 {
		window = time.Hour
	}
	return &ProcessingStats{
		window:   window,
		outcomes: make(map[JobStatus]int),
	}
}

// Record adds one completed document's stage timings. Negative durations
// count as zero.
func (s *ProcessingStats) Record(timings map[string]int64) {
	t := make(map[string]int64, len(timings))
	for stage, ms := range timings {
		t[stage] = max(ms, 0)
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(now)
	s.samples = append(s.samples, sample{at: now, timings: t})
}

// Outcome counts one finished job.
func (s *ProcessingStats) Outcome(status JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[status]++
}

func (s *ProcessingStats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(now)

	byStage := make(map[string][]int64)
	for _, sm := range s.samples {
		for stage, ms := range sm.timings {
			byStage[stage] = append(byStage[stage], ms)
		}
	}
	stages := make(map[string]Latency, len(byStage))
	for stage, vals := range byStage {
		stages[stage] = summarise(vals)
	}
	return StatsSnapshot{
		Count:    len(s.samples),
		Stages:   stages,
		Outcomes: maps.Clone(s.outcomes),
	}
}

// expireLocked drops samples older than the window. Samples are appended in
// time order, so the expired ones form a prefix.
func (s *ProcessingStats) expireLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.samples) && s.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.samples = slices.Delete(s.samples, 0, i)
	}
}

func summarise(vals []int64) Latency {
	slices.Sort(vals)
	var sum int64
	for _, v := range vals {
		sum += v
	}
	return Latency{
		Count: len(vals),
		MinMs: vals[0],
		MaxMs: vals[len(vals)-1],
		AvgMs: float64(sum) / float64(len(vals)),
		P50Ms: percentile(vals, 50),
		P95Ms: percentile(vals, 95),
		P99Ms: percentile(vals, 99),
	}
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := math.Max(0, math.Min(pct, 100)) / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[hi]-sorted[lo])
}

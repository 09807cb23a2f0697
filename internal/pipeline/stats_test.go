package pipeline

import (
	"testing"
	"time"
)

func TestProcessingStats_StagePercentiles(t *testing.T) {
	stats := NewProcessingStats(time.Hour)
	for _, ms := range []int64{500, 100, 400, 200, 300} {
		stats.Record(map[string]int64{"total": ms, "parse": ms / 10})
	}

	snap := stats.Snapshot()
	if snap.Count != 5 {
		t.Fatalf("expected 5 documents, got %d", snap.Count)
	}
	total, ok := snap.Stages["total"]
	if !ok {
		t.Fatalf("expected a total stage, got %+v", snap.Stages)
	}
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"count", float64(total.Count), 5},
		{"min", float64(total.MinMs), 100},
		{"max", float64(total.MaxMs), 500},
		{"avg", total.AvgMs, 300},
		{"p50", total.P50Ms, 300},
		{"p95", total.P95Ms, 480},
		{"p99", total.P99Ms, 496},
		{"parse p50", snap.Stages["parse"].P50Ms, 30},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, tt.got)
		}
	}
}

func TestProcessingStats_StagesMayDiffer(t *testing.T) {
	stats := NewProcessingStats(time.Hour)
	stats.Record(map[string]int64{"parse": 1, "total": 5})
	stats.Record(map[string]int64{"total": 7})

	snap := stats.Snapshot()
	if snap.Stages["parse"].Count != 1 || snap.Stages["total"].Count != 2 {
		t.Errorf("unexpected stage counts %+v", snap.Stages)
	}
}

func TestProcessingStats_ExpiresOldSamples(t *testing.T) {
	stats := NewProcessingStats(10 * time.Millisecond)
	stats.Record(map[string]int64{"total": 100})
	time.Sleep(25 * time.Millisecond)

	if snap := stats.Snapshot(); snap.Count != 0 || len(snap.Stages) != 0 {
		t.Fatalf("expected empty window after expiry, got %+v", snap)
	}

	stats.Record(map[string]int64{"total": 200})
	snap := stats.Snapshot()
	if got := snap.Stages["total"]; got.Count != 1 || got.MinMs != 200 || got.MaxMs != 200 {
		t.Fatalf("expected one sample of 200, got %+v", got)
	}
}

func TestProcessingStats_ClampsNegativeDuration(t *testing.T) {
	stats := NewProcessingStats(time.Hour)
	stats.Record(map[string]int64{"total": -10})
	if got := stats.Snapshot().Stages["total"]; got.Count != 1 || got.MinMs != 0 {
		t.Fatalf("expected one clamped sample, got %+v", got)
	}
}

func TestProcessingStats_Outcomes(t *testing.T) {
	stats := NewProcessingStats(time.Hour)
	stats.Outcome(StatusCompleted)
	stats.Outcome(StatusCompleted)
	stats.Outcome(StatusSkipped)

	snap := stats.Snapshot()
	if snap.Outcomes[StatusCompleted] != 2 || snap.Outcomes[StatusSkipped] != 1 {
		t.Errorf("unexpected outcomes %v", snap.Outcomes)
	}
	if snap.Count != 0 {
		t.Errorf("outcomes must not add timing samples, got count=%d", snap.Count)
	}

	snap.Outcomes[StatusFailed] = 9
	if stats.Snapshot().Outcomes[StatusFailed] != 0 {
		t.Error("snapshot outcomes must be a copy")
	}
}

func TestPercentile(t *testing.T) {
	if got := percentile(nil, 50); got != 0 {
		t.Errorf("expected 0 for empty, got %v", got)
	}
	vals := []int64{10, 20}
	for pct, want := range map[float64]float64{-5: 10, 0: 10, 50: 15, 100: 20, 150: 20} {
		if got := percentile(vals, pct); got != want {
			t.Errorf("p%v: expected %v, got %v", pct, want, got)
		}
	}
	if got := percentile([]int64{42}, 99); got != 42 {
		t.Errorf("expected single value, got %v", got)
	}
}

package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFormatMetrics(t *testing.T) {
	before := GetMetrics()["promos_detected"]
	IncrPromoDetected()
	IncrPromosSwept(3)

	m := GetMetrics()
	if m["promos_detected"] != before+1 {
		t.Errorf("promos_detected = %d, want %d", m["promos_detected"], before+1)
	}

	out := FormatMetrics()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != len(metricKeys) {
		t.Errorf("got %d lines, want %d", len(lines), len(metricKeys))
	}
	for _, k := range metricKeys {
		if !strings.Contains(out, k+" ") {
			t.Errorf("metric %q missing from output", k)
		}
	}
}

func TestTrackOperation(t *testing.T) {
	want := errors.New("boom")
	got := TrackOperation(context.Background(), "op", time.Nanosecond, func(context.Context) error {
		time.Sleep(time.Millisecond)
		return want
	})
	if !errors.Is(got, want) {
		t.Errorf("TrackOperation returned %v", got)
	}
}

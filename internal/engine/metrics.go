package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	SearchPages      atomic.Int64
	WatchPages       atomic.Int64
	FetchErrors      atomic.Int64
	LocatorMisses    atomic.Int64
	Candidates       atomic.Int64
	Duplicates       atomic.Int64
	Descriptions     atomic.Int64
	LLMCalls         atomic.Int64
	LLMErrors        atomic.Int64
	PromosDetected   atomic.Int64
	LedgerRecords    atomic.Int64
	LedgerErrors     atomic.Int64
	PromosSwept      atomic.Int64
	ObserverFailures atomic.Int64
}

var metricKeys = []string{
	"search_pages", "watch_pages", "fetch_errors", "locator_misses",
	"candidates", "duplicates", "descriptions",
	"llm_calls", "llm_errors",
	"promos_detected", "ledger_records", "ledger_errors", "promos_swept",
	"observer_failures",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"search_pages":      metrics.SearchPages.Load(),
		"watch_pages":       metrics.WatchPages.Load(),
		"fetch_errors":      metrics.FetchErrors.Load(),
		"locator_misses":    metrics.LocatorMisses.Load(),
		"candidates":        metrics.Candidates.Load(),
		"duplicates":        metrics.Duplicates.Load(),
		"descriptions":      metrics.Descriptions.Load(),
		"llm_calls":         metrics.LLMCalls.Load(),
		"llm_errors":        metrics.LLMErrors.Load(),
		"promos_detected":   metrics.PromosDetected.Load(),
		"ledger_records":    metrics.LedgerRecords.Load(),
		"ledger_errors":     metrics.LedgerErrors.Load(),
		"promos_swept":      metrics.PromosSwept.Load(),
		"observer_failures": metrics.ObserverFailures.Load(),
		"cache_hits":        hits,
		"cache_misses":      misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for sub-packages.
func IncrSearchPage()       { metrics.SearchPages.Add(1) }
func IncrWatchPage()        { metrics.WatchPages.Add(1) }
func IncrLocatorMiss()      { metrics.LocatorMisses.Add(1) }
func IncrCandidates(n int)  { metrics.Candidates.Add(int64(n)) }
func IncrDuplicate()        { metrics.Duplicates.Add(1) }
func IncrDescription()      { metrics.Descriptions.Add(1) }
func IncrPromoDetected()    { metrics.PromosDetected.Add(1) }
func IncrLedgerRecord()     { metrics.LedgerRecords.Add(1) }
func IncrLedgerError()      { metrics.LedgerErrors.Add(1) }
func IncrPromosSwept(n int) { metrics.PromosSwept.Add(int64(n)) }
func IncrObserverFailure()  { metrics.ObserverFailures.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}

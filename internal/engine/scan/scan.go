// Package scan runs the discovery pipeline: search each sponsor domain, read the
// description of every new candidate, extract its promotion and record it.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anatolykoptev/go_promo/internal/engine"
)

// ErrNoDomains is returned when a scan has nothing to search for.
var ErrNoDomains = errors.New("scan: no domains")

// Source finds candidate videos and reads their descriptions.
type Source interface {
	SearchDomain(ctx context.Context, domain, recency string) ([]engine.CandidateVideo, error)
	FetchDescription(ctx context.Context, videoID string) (string, bool, error)
}

// Extractor finds the promotion in a description; nil means none. An error
// means the description was not examined.
type Extractor interface {
	Detect(ctx context.Context, description string) (*engine.PromoRecord, error)
}

// Recorder persists a detection.
type Recorder interface {
	Record(ctx context.Context, video engine.CandidateVideo, rec engine.PromoRecord) (engine.Creator, error)
}

// Claimer prevents the same video from being processed twice.
type Claimer interface {
	Claim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

// Scanner wires the pipeline stages together.
type Scanner struct {
	source    Source
	extractor Extractor
	recorder  Recorder
	claims    Claimer
	workers   int
}

// New creates a Scanner. claims may be nil to disable cross-scan dedup;
// workers <= 0 uses engine.DefaultWorkers.
func New(source Source, extractor Extractor, recorder Recorder, claims Claimer, workers int) *Scanner {
	if workers <= 0 {
		workers = engine.DefaultWorkers
	}
	return &Scanner{source: source, extractor: extractor, recorder: recorder, claims: claims, workers: workers}
}

// Scan runs one pass over domains.
//
// Transport failures, model failures and pages without usable data skip the
// domain or the candidate; skipped candidates are released for the next scan.
// A persistence failure aborts the scan and is returned together with the
// partial report.
func (s *Scanner) Scan(ctx context.Context, domains []string, recency string) (*engine.ScanReport, error) {
	start := time.Now()
	domains = engine.NormalizeDomains(domains)
	if len(domains) == 0 {
		return nil, ErrNoDomains
	}
	report := &engine.ScanReport{Domains: len(domains)}

	found := s.searchAll(ctx, domains, recency, report)
	candidates := s.dedupe(ctx, found, report)
	err := s.processAll(ctx, candidates, report)

	report.Elapsed = time.Since(start).Round(time.Millisecond).String()
	slog.Info("scan: done",
		slog.Int("domains", report.Domains),
		slog.Int("candidates", report.Candidates),
		slog.Int("duplicates", report.Duplicates),
		slog.Int("promotions", report.Promotions),
		slog.Int("fetch_errors", report.FetchErrors),
		slog.Int("model_errors", report.ModelErrors),
		slog.String("elapsed", report.Elapsed))
	if err != nil {
		return report, fmt.Errorf("scan: %w", err)
	}
	return report, nil
}

// searchAll searches every domain concurrently and returns the candidates in
// domain order, each domain's results in page order.
func (s *Scanner) searchAll(ctx context.Context, domains []string, recency string, report *engine.ScanReport) []engine.CandidateVideo {
	perDomain := make([][]engine.CandidateVideo, len(domains))
	failed := make([]bool, len(domains))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, domain := range domains {
		g.Go(func() error {
			videos, err := s.source.SearchDomain(ctx, domain, recency)
			if err != nil {
				failed[i] = true
				slog.Warn("scan: search failed", slog.String("domain", domain), slog.Any("error", err))
				return nil
			}
			perDomain[i] = videos
			return nil
		})
	}
	_ = g.Wait()

	var out []engine.CandidateVideo
	for i := range domains {
		if failed[i] {
			report.FetchErrors++
		}
		out = append(out, perDomain[i]...)
	}
	report.Candidates = len(out)
	return out
}

// dedupe drops videos seen earlier in this scan or claimed by a previous one.
func (s *Scanner) dedupe(ctx context.Context, videos []engine.CandidateVideo, report *engine.ScanReport) []engine.CandidateVideo {
	seen := make(map[string]bool, len(videos))
	out := videos[:0:0]
	for _, v := range videos {
		if seen[v.VideoID] {
			report.Duplicates++
			engine.IncrDuplicate()
			continue
		}
		seen[v.VideoID] = true
		if s.claims != nil {
			fresh, err := s.claims.Claim(ctx, v.VideoID)
			if err != nil {
				slog.Warn("scan: claim failed, using local dedup", slog.String("video_id", v.VideoID), slog.Any("error", err))
			}
			if !fresh {
				report.Duplicates++
				engine.IncrDuplicate()
				continue
			}
		}
		out = append(out, v)
	}
	return out
}

// outcome is what happened to one candidate.
type outcome struct {
	described  bool
	fetchError bool
	modelError bool
	detection  *engine.Detection
}

// processAll reads, extracts and records every candidate on a bounded pool.
// The first persistence error cancels the remaining work.
func (s *Scanner) processAll(ctx context.Context, videos []engine.CandidateVideo, report *engine.ScanReport) error {
	results := make([]outcome, len(videos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, v := range videos {
		g.Go(func() error {
			res, err := s.process(gctx, v)
			results[i] = res
			return err
		})
	}
	err := g.Wait()

	for _, r := range results {
		switch {
		case r.fetchError:
			report.FetchErrors++
			report.Skipped++
		case r.modelError:
			report.ModelErrors++
			report.Descriptions++
			report.Skipped++
		case r.detection != nil:
			report.Descriptions++
			report.Promotions++
			report.Detections = append(report.Detections, *r.detection)
		case r.described:
			report.Descriptions++
			report.Skipped++
		default:
			report.Skipped++
		}
	}
	return err
}

func (s *Scanner) process(ctx context.Context, v engine.CandidateVideo) (outcome, error) {
	if ctx.Err() != nil {
		s.release(v.VideoID)
		return outcome{}, nil
	}

	desc, ok, err := s.source.FetchDescription(ctx, v.VideoID)
	if err != nil {
		slog.Warn("scan: description fetch failed", slog.String("video_id", v.VideoID), slog.Any("error", err))
		s.release(v.VideoID)
		return outcome{fetchError: true}, nil
	}
	if !ok || desc == "" {
		return outcome{}, nil
	}

	rec, err := s.extractor.Detect(ctx, desc)
	if err != nil {
		s.release(v.VideoID)
		if ctx.Err() != nil {
			return outcome{}, nil
		}
		slog.Warn("scan: extraction failed", slog.String("video_id", v.VideoID), slog.Any("error", err))
		return outcome{modelError: true}, nil
	}
	if rec == nil {
		return outcome{described: true}, nil
	}

	c, err := s.recorder.Record(ctx, v, *rec)
	if err != nil {
		s.release(v.VideoID)
		return outcome{described: true}, err
	}
	return outcome{
		described: true,
		detection: &engine.Detection{Video: v, Promo: *rec, FitnessScore: c.FitnessScore},
	}, nil
}

// release frees a claim so a later scan retries the video. It runs on a fresh
// context because the scan's own may already be cancelled.
func (s *Scanner) release(videoID string) {
	if s.claims == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.claims.Release(ctx, videoID); err != nil {
		slog.Debug("scan: release failed", slog.String("video_id", videoID), slog.Any("error", err))
	}
}

package sources

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/anatolykoptev/go_promo/internal/engine"
)

// YouTube discovery is split across files by responsibility:
//   tree.go: optional navigation over decoded ytInitialData
//   pagedata.go: locating ytInitialData in page markup
//   youtube_search.go: search results page → candidate videos
//   youtube_watch.go: watch page → full description
//   youtube_player.go: Innertube player fallback for descriptions

const (
	ytSearchURL = "https://www.youtube.com/results"
	ytWatchURL  = "https://www.youtube.com/watch?v="
)

// recencyFilters maps a recency name to the search "sp" token (upload date filter).
// Values are the base64 filter protobuf query-escaped once, so the server reads
// back EgIIAg== and so on. Links copied from the YouTube UI escape it twice
// (%253D).
var recencyFilters = map[string]string{
	"hour":  "EgIIAQ%3D%3D",
	"today": "EgIIAg%3D%3D",
	"week":  "EgIIAw%3D%3D",
	"month": "EgIIBA%3D%3D",
	"year":  "EgIIBQ%3D%3D",
}

// RecencyFilter returns the sp token for recency, defaulting to today.
func RecencyFilter(recency string) string {
	if sp, ok := recencyFilters[strings.ToLower(strings.TrimSpace(recency))]; ok {
		return sp
	}
	return recencyFilters[engine.DefaultRecency]
}

// SearchURL builds the exact-phrase search for a sponsor domain.
func SearchURL(domain, recency string) string {
	q := url.QueryEscape(`"` + domain + `"`)
	return ytSearchURL + "?search_query=" + q + "&sp=" + RecencyFilter(recency)
}

// YouTube reads search and watch pages through a PageFetcher.
type YouTube struct {
	fetcher engine.PageFetcher
	player  *PlayerAPI
}

// Option configures a YouTube source.
type Option func(*YouTube)

// WithPlayerFallback asks the player endpoint for descriptions the watch page
// did not yield.
func WithPlayerFallback(p *PlayerAPI) Option { return func(y *YouTube) { y.player = p } }

// NewYouTube creates a YouTube source.
func NewYouTube(f engine.PageFetcher, opts ...Option) *YouTube {
	y := &YouTube{fetcher: f}
	for _, o := range opts {
		o(y)
	}
	return y
}

// SearchDomain returns the candidates found by searching for domain.
// A transport failure is returned; a page without usable ytInitialData yields
// no candidates and no error.
func (y *YouTube) SearchDomain(ctx context.Context, domain, recency string) ([]engine.CandidateVideo, error) {
	engine.IncrSearchPage()
	markup, err := y.fetcher.Fetch(ctx, SearchURL(domain, recency))
	if err != nil {
		return nil, err
	}
	tree, ok := LocateInitialData(markup)
	if !ok {
		engine.IncrLocatorMiss()
		slog.Warn("youtube: ytInitialData not found on search page", slog.String("domain", domain))
		return nil, nil
	}
	videos := ReadSearchResults(tree, domain)
	engine.IncrCandidates(len(videos))
	slog.Debug("youtube: search done", slog.String("domain", domain), slog.Int("candidates", len(videos)))
	return videos, nil
}

// FetchDescription returns the full description of a video, using the description
// cache when possible. ok=false means the page had no readable description.
func (y *YouTube) FetchDescription(ctx context.Context, videoID string) (string, bool, error) {
	if desc, hit := engine.CacheGetDescription(ctx, videoID); hit {
		return desc, true, nil
	}

	engine.IncrWatchPage()
	markup, err := y.fetcher.Fetch(ctx, ytWatchURL+url.QueryEscape(videoID))
	if err != nil {
		return "", false, err
	}
	desc, ok := y.readWatchPage(markup, videoID)
	if !ok {
		desc, ok = y.playerDescription(ctx, videoID)
	}
	if !ok {
		return "", false, nil
	}
	engine.IncrDescription()
	engine.CacheSetDescription(ctx, videoID, desc)
	return desc, true, nil
}

func (y *YouTube) readWatchPage(markup []byte, videoID string) (string, bool) {
	tree, ok := LocateInitialData(markup)
	if !ok {
		engine.IncrLocatorMiss()
		slog.Debug("youtube: ytInitialData not found on watch page", slog.String("video_id", videoID))
		return "", false
	}
	return ReadDescription(tree)
}

// playerDescription is best effort: its failures never fail the candidate.
func (y *YouTube) playerDescription(ctx context.Context, videoID string) (string, bool) {
	if y.player == nil {
		return "", false
	}
	desc, ok, err := y.player.Description(ctx, videoID)
	if err != nil {
		slog.Debug("youtube: player fallback failed", slog.String("video_id", videoID), slog.Any("error", err))
		return "", false
	}
	return desc, ok
}

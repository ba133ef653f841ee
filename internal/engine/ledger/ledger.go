package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_promo/internal/engine"
)

// Observer is told about ledger changes after they are committed.
// Observer errors are logged and counted; they never undo or fail the change.
type Observer interface {
	PromoRecorded(ctx context.Context, p engine.ActivePromo, c engine.Creator) error
	PromosExpired(ctx context.Context, videoIDs []string) error
}

// Ledger records detected promotions, scores creators and expires stale promos.
type Ledger struct {
	store     Store
	ttl       time.Duration
	increment float64
	now       func() time.Time
	observers []Observer
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithTTL sets how long a promotion stays active after its latest detection.
func WithTTL(d time.Duration) Option { return func(l *Ledger) { l.ttl = d } }

// WithIncrement sets the fitness added per detection.
func WithIncrement(inc float64) Option { return func(l *Ledger) { l.increment = inc } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

// WithObserver adds an observer. Observers run in the order they were added.
func WithObserver(o Observer) Option {
	return func(l *Ledger) {
		if o != nil {
			l.observers = append(l.observers, o)
		}
	}
}

// New creates a Ledger over store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:     store,
		ttl:       engine.DefaultPromoTTL,
		increment: engine.DefaultFitnessIncrease,
		now:       time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Record persists a promotion for video and credits its creator.
//
// A new creator starts at fitness 1.0 plus the increment; a known one gains the
// increment and takes the latest channel name. The promotion row is keyed by
// video id: a repeat detection replaces its payload and pushes its expiry to
// now + TTL. Both writes commit together or not at all.
func (l *Ledger) Record(ctx context.Context, video engine.CandidateVideo, rec engine.PromoRecord) (engine.Creator, error) {
	now := l.now().UTC()
	rec = rec.Normalize()
	d := Detection{
		Video:      video,
		Promo:      rec,
		UploadDate: engine.ParseUploadDate(video.UploadDateText, now),
		DetectedAt: now,
		ExpiresAt:  now.Add(l.ttl),
		Increment:  l.increment,
	}

	c, createdAt, err := l.store.Record(ctx, d)
	if err != nil {
		engine.IncrLedgerError()
		return engine.Creator{}, fmt.Errorf("ledger: record %s: %w", video.VideoID, err)
	}
	engine.IncrLedgerRecord()
	slog.Info("ledger: promo recorded",
		slog.String("video_id", video.VideoID),
		slog.String("channel_id", c.ChannelID),
		slog.String("brand", engine.Deref(rec.Brand)),
		slog.String("code", engine.Deref(rec.Code)),
		slog.Float64("fitness", c.FitnessScore))

	promo := engine.ActivePromo{
		VideoID:         video.VideoID,
		ChannelID:       video.ChannelID,
		ChannelName:     c.ChannelName,
		Title:           video.Title,
		DetectedDomain:  video.DetectedDomain,
		UploadDate:      d.UploadDate,
		BrandName:       rec.Brand,
		PromoCode:       rec.Code,
		DiscountDetails: rec.Discount,
		RawExtraction:   &rec,
		CreatedAt:       createdAt,
		ExpiresAt:       d.ExpiresAt,
	}
	for _, o := range l.observers {
		if err := o.PromoRecorded(ctx, promo, c); err != nil {
			engine.IncrObserverFailure()
			slog.Warn("ledger: observer failed on record", slog.String("video_id", video.VideoID), slog.Any("error", err))
		}
	}
	return c, nil
}

// Sweep deletes every promotion that expired strictly before now and returns how
// many were removed. Creators are never deleted. Running it twice is harmless.
func (l *Ledger) Sweep(ctx context.Context) (int, error) {
	ids, err := l.store.Sweep(ctx, l.now().UTC())
	if err != nil {
		engine.IncrLedgerError()
		return 0, fmt.Errorf("ledger: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	engine.IncrPromosSwept(len(ids))
	slog.Info("ledger: expired promos swept", slog.Int("removed", len(ids)))

	for _, o := range l.observers {
		if err := o.PromosExpired(ctx, ids); err != nil {
			engine.IncrObserverFailure()
			slog.Warn("ledger: observer failed on sweep", slog.Any("error", err))
		}
	}
	return len(ids), nil
}

// ActivePromos lists unexpired promotions, newest first.
func (l *Ledger) ActivePromos(ctx context.Context, limit int) ([]engine.ActivePromo, error) {
	out, err := l.store.ActivePromos(ctx, l.now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	return out, nil
}

// TopCreators lists creators by fitness, highest first.
func (l *Ledger) TopCreators(ctx context.Context, limit int) ([]engine.Creator, error) {
	out, err := l.store.TopCreators(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	return out, nil
}

// Creator returns one creator, or ErrNotFound.
func (l *Ledger) Creator(ctx context.Context, channelID string) (engine.Creator, error) {
	return l.store.Creator(ctx, channelID)
}

// RunSweeper sweeps every interval until ctx is done.
func (l *Ledger) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := l.Sweep(ctx); err != nil {
				slog.Warn("ledger: sweep failed", slog.Any("error", err))
			}
		}
	}
}

// Close closes the underlying store.
func (l *Ledger) Close() error { return l.store.Close() }

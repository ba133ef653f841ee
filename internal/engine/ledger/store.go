package ledger

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/anatolykoptev/go_promo/internal/engine"
)

//go:embed schema/postgres/*.sql schema/sqlite/*.sql
var schemaFS embed.FS

// ErrNotFound is returned when a creator does not exist.
var ErrNotFound = errors.New("ledger: not found")

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// Detection is one sighting of a promotion, ready to persist.
type Detection struct {
	Video      engine.CandidateVideo
	Promo      engine.PromoRecord
	UploadDate time.Time
	DetectedAt time.Time
	ExpiresAt  time.Time
	Increment  float64 // added to the creator's fitness
}

// Store persists creators and active promotions.
//
// Record must apply the creator upsert and the promo upsert atomically: either
// both are visible afterwards or neither is.
type Store interface {
	Record(ctx context.Context, d Detection) (engine.Creator, time.Time, error)
	Sweep(ctx context.Context, now time.Time) ([]string, error)
	ActivePromos(ctx context.Context, now time.Time, limit int) ([]engine.ActivePromo, error)
	TopCreators(ctx context.Context, limit int) ([]engine.Creator, error)
	Creator(ctx context.Context, channelID string) (engine.Creator, error)
	Close() error
}

// clampLimit applies the default and the ceiling for list queries.
func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultListLimit
	case n > maxListLimit:
		return maxListLimit
	default:
		return n
	}
}

// schemaFiles returns the migration scripts for dialect, ordered by file name.
func schemaFiles(dialect string) ([]string, error) {
	dir := "schema/" + dialect
	entries, err := schemaFS.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	var out []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile(dir + "/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		out = append(out, string(data))
	}
	return out, nil
}

// rawJSON encodes the model's record for the raw_extraction column.
func rawJSON(rec engine.PromoRecord) ([]byte, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode raw extraction: %w", err)
	}
	return b, nil
}

func decodeRaw(b []byte) *engine.PromoRecord {
	if len(b) == 0 {
		return nil
	}
	var rec engine.PromoRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil
	}
	return &rec
}

func decodeMetadata(b []byte) map[string]any {
	if len(b) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anatolykoptev/go_promo/internal/engine"
)

// SQLiteStore is the single-node Store used when no DATABASE_URL is set, and in tests.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the ledger database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("ledger: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("ledger: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger: init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	scripts, err := schemaFiles("sqlite")
	if err != nil {
		return err
	}
	for _, script := range scripts {
		for _, stmt := range strings.Split(script, ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func millis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

const sqliteUpsertCreator = `
INSERT INTO creators (channel_id, channel_name, fitness_score, last_detected_at)
VALUES (?1, ?2, 1.0 + ?3, ?4)
ON CONFLICT (channel_id) DO UPDATE SET
    channel_name     = excluded.channel_name,
    fitness_score    = creators.fitness_score + ?3,
    last_detected_at = excluded.last_detected_at
RETURNING channel_id, channel_name, country_code, fitness_score, last_detected_at, metadata`

const sqliteUpsertPromo = `
INSERT INTO active_promos (video_id, channel_id, title, detected_domain, upload_date,
    brand_name, promo_code, discount_details, raw_extraction, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (video_id) DO UPDATE SET
    channel_id       = excluded.channel_id,
    title            = excluded.title,
    detected_domain  = excluded.detected_domain,
    upload_date      = excluded.upload_date,
    brand_name       = excluded.brand_name,
    promo_code       = excluded.promo_code,
    discount_details = excluded.discount_details,
    raw_extraction   = excluded.raw_extraction,
    expires_at       = excluded.expires_at
RETURNING created_at`

// Record upserts the creator and the promotion in one transaction.
func (s *SQLiteStore) Record(ctx context.Context, d Detection) (engine.Creator, time.Time, error) {
	raw, err := rawJSON(d.Promo)
	if err != nil {
		return engine.Creator{}, time.Time{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return engine.Creator{}, time.Time{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	c, err := scanSQLiteCreator(tx.QueryRowContext(ctx, sqliteUpsertCreator,
		d.Video.ChannelID, d.Video.ChannelName, d.Increment, millis(d.DetectedAt)))
	if err != nil {
		return engine.Creator{}, time.Time{}, fmt.Errorf("upsert creator %s: %w", d.Video.ChannelID, err)
	}

	var createdAt int64
	err = tx.QueryRowContext(ctx, sqliteUpsertPromo,
		d.Video.VideoID, d.Video.ChannelID, d.Video.Title, d.Video.DetectedDomain, millis(d.UploadDate),
		d.Promo.Brand, d.Promo.Code, d.Promo.Discount, string(raw), millis(d.DetectedAt), millis(d.ExpiresAt),
	).Scan(&createdAt)
	if err != nil {
		return engine.Creator{}, time.Time{}, fmt.Errorf("upsert promo %s: %w", d.Video.VideoID, err)
	}

	if err := tx.Commit(); err != nil {
		return engine.Creator{}, time.Time{}, fmt.Errorf("commit: %w", err)
	}
	return c, fromMillis(createdAt), nil
}

// Sweep deletes promotions whose expiry is strictly before now.
func (s *SQLiteStore) Sweep(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `DELETE FROM active_promos WHERE expires_at < ? RETURNING video_id`, millis(now))
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sweep: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ActivePromos lists unexpired promotions, newest first.
func (s *SQLiteStore) ActivePromos(ctx context.Context, now time.Time, limit int) ([]engine.ActivePromo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.video_id, p.channel_id, c.channel_name, p.title, p.detected_domain, p.upload_date,
		       p.brand_name, p.promo_code, p.discount_details, p.raw_extraction, p.created_at, p.expires_at
		FROM active_promos p JOIN creators c ON c.channel_id = p.channel_id
		WHERE p.expires_at >= ?
		ORDER BY p.created_at DESC, p.video_id
		LIMIT ?`, millis(now), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("active promos: %w", err)
	}
	defer rows.Close()

	var out []engine.ActivePromo
	for rows.Next() {
		var (
			p                          engine.ActivePromo
			brand, code, discount, raw sql.NullString
			uploaded, created, expires int64
		)
		if err := rows.Scan(&p.VideoID, &p.ChannelID, &p.ChannelName, &p.Title, &p.DetectedDomain, &uploaded,
			&brand, &code, &discount, &raw, &created, &expires); err != nil {
			return nil, fmt.Errorf("active promos: scan: %w", err)
		}
		p.UploadDate = fromMillis(uploaded)
		p.CreatedAt = fromMillis(created)
		p.ExpiresAt = fromMillis(expires)
		p.BrandName = nullPtr(brand)
		p.PromoCode = nullPtr(code)
		p.DiscountDetails = nullPtr(discount)
		p.RawExtraction = decodeRaw([]byte(raw.String))
		out = append(out, p)
	}
	return out, rows.Err()
}

// TopCreators lists creators by fitness, highest first.
func (s *SQLiteStore) TopCreators(ctx context.Context, limit int) ([]engine.Creator, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT channel_id, channel_name, country_code, fitness_score, last_detected_at, metadata
		FROM creators ORDER BY fitness_score DESC, channel_id LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("top creators: %w", err)
	}
	defer rows.Close()

	var out []engine.Creator
	for rows.Next() {
		c, err := scanSQLiteCreator(rows)
		if err != nil {
			return nil, fmt.Errorf("top creators: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Creator returns one creator or ErrNotFound.
func (s *SQLiteStore) Creator(ctx context.Context, channelID string) (engine.Creator, error) {
	c, err := scanSQLiteCreator(s.db.QueryRowContext(ctx, `
		SELECT channel_id, channel_name, country_code, fitness_score, last_detected_at, metadata
		FROM creators WHERE channel_id = ?`, channelID))
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Creator{}, ErrNotFound
	}
	if err != nil {
		return engine.Creator{}, fmt.Errorf("creator %s: %w", channelID, err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteCreator(row rowScanner) (engine.Creator, error) {
	var (
		c             engine.Creator
		country, meta sql.NullString
		detected      int64
	)
	if err := row.Scan(&c.ChannelID, &c.ChannelName, &country, &c.FitnessScore, &detected, &meta); err != nil {
		return engine.Creator{}, err
	}
	c.CountryCode = country.String
	c.LastDetectedAt = fromMillis(detected)
	c.Metadata = decodeMetadata([]byte(meta.String))
	return c, nil
}

func nullPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

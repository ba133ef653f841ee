package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anatolykoptev/go_promo/internal/engine"
)

// PostgresStore is the production Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres creates a pgx pool and applies the embedded schema.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("ledger: DATABASE_URL is required")
	}
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("ledger: parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("ledger: create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ledger: ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ledger: run migrations: %w", err)
	}
	slog.Info("ledger: postgres connected", slog.String("addr", config.ConnConfig.Host))
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	scripts, err := schemaFiles("postgres")
	if err != nil {
		return err
	}
	for i, script := range scripts {
		if _, err := s.pool.Exec(ctx, script); err != nil {
			return fmt.Errorf("execute migration %d: %w", i+1, err)
		}
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const pgUpsertCreator = `
INSERT INTO creators (channel_id, channel_name, fitness_score, last_detected_at)
VALUES ($1, $2, 1.0 + $3::double precision, $4)
ON CONFLICT (channel_id) DO UPDATE SET
    channel_name     = EXCLUDED.channel_name,
    fitness_score    = creators.fitness_score + $3,
    last_detected_at = EXCLUDED.last_detected_at
RETURNING channel_id, channel_name, country_code, fitness_score, last_detected_at, metadata`

const pgUpsertPromo = `
INSERT INTO active_promos (video_id, channel_id, title, detected_domain, upload_date,
    brand_name, promo_code, discount_details, raw_extraction, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (video_id) DO UPDATE SET
    channel_id       = EXCLUDED.channel_id,
    title            = EXCLUDED.title,
    detected_domain  = EXCLUDED.detected_domain,
    upload_date      = EXCLUDED.upload_date,
    brand_name       = EXCLUDED.brand_name,
    promo_code       = EXCLUDED.promo_code,
    discount_details = EXCLUDED.discount_details,
    raw_extraction   = EXCLUDED.raw_extraction,
    expires_at       = EXCLUDED.expires_at
RETURNING created_at`

// Record upserts the creator and the promotion in one transaction.
func (s *PostgresStore) Record(ctx context.Context, d Detection) (engine.Creator, time.Time, error) {
	raw, err := rawJSON(d.Promo)
	if err != nil {
		return engine.Creator{}, time.Time{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return engine.Creator{}, time.Time{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	c, err := scanCreator(tx.QueryRow(ctx, pgUpsertCreator,
		d.Video.ChannelID, d.Video.ChannelName, d.Increment, d.DetectedAt))
	if err != nil {
		return engine.Creator{}, time.Time{}, fmt.Errorf("upsert creator %s: %w", d.Video.ChannelID, err)
	}

	var createdAt time.Time
	err = tx.QueryRow(ctx, pgUpsertPromo,
		d.Video.VideoID, d.Video.ChannelID, d.Video.Title, d.Video.DetectedDomain, d.UploadDate,
		d.Promo.Brand, d.Promo.Code, d.Promo.Discount, raw, d.DetectedAt, d.ExpiresAt,
	).Scan(&createdAt)
	if err != nil {
		return engine.Creator{}, time.Time{}, fmt.Errorf("upsert promo %s: %w", d.Video.VideoID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return engine.Creator{}, time.Time{}, fmt.Errorf("commit: %w", err)
	}
	return c, createdAt, nil
}

// Sweep deletes promotions whose expiry is strictly before now.
func (s *PostgresStore) Sweep(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx, `DELETE FROM active_promos WHERE expires_at < $1 RETURNING video_id`, now)
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	return ids, nil
}

// ActivePromos lists unexpired promotions, newest first.
func (s *PostgresStore) ActivePromos(ctx context.Context, now time.Time, limit int) ([]engine.ActivePromo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.video_id, p.channel_id, c.channel_name, p.title, p.detected_domain, p.upload_date,
		       p.brand_name, p.promo_code, p.discount_details, p.raw_extraction, p.created_at, p.expires_at
		FROM active_promos p JOIN creators c ON c.channel_id = p.channel_id
		WHERE p.expires_at >= $1
		ORDER BY p.created_at DESC, p.video_id
		LIMIT $2`, now, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("active promos: %w", err)
	}
	defer rows.Close()

	var out []engine.ActivePromo
	for rows.Next() {
		var (
			p   engine.ActivePromo
			raw []byte
		)
		if err := rows.Scan(&p.VideoID, &p.ChannelID, &p.ChannelName, &p.Title, &p.DetectedDomain, &p.UploadDate,
			&p.BrandName, &p.PromoCode, &p.DiscountDetails, &raw, &p.CreatedAt, &p.ExpiresAt); err != nil {
			return nil, fmt.Errorf("active promos: scan: %w", err)
		}
		p.RawExtraction = decodeRaw(raw)
		out = append(out, p)
	}
	return out, rows.Err()
}

// TopCreators lists creators by fitness, highest first.
func (s *PostgresStore) TopCreators(ctx context.Context, limit int) ([]engine.Creator, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT channel_id, channel_name, country_code, fitness_score, last_detected_at, metadata
		FROM creators ORDER BY fitness_score DESC, channel_id LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("top creators: %w", err)
	}
	defer rows.Close()

	var out []engine.Creator
	for rows.Next() {
		c, err := scanCreator(rows)
		if err != nil {
			return nil, fmt.Errorf("top creators: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Creator returns one creator or ErrNotFound.
func (s *PostgresStore) Creator(ctx context.Context, channelID string) (engine.Creator, error) {
	c, err := scanCreator(s.pool.QueryRow(ctx, `
		SELECT channel_id, channel_name, country_code, fitness_score, last_detected_at, metadata
		FROM creators WHERE channel_id = $1`, channelID))
	if errors.Is(err, pgx.ErrNoRows) {
		return engine.Creator{}, ErrNotFound
	}
	if err != nil {
		return engine.Creator{}, fmt.Errorf("creator %s: %w", channelID, err)
	}
	return c, nil
}

func scanCreator(row pgx.Row) (engine.Creator, error) {
	var (
		c       engine.Creator
		country *string
		meta    []byte
	)
	if err := row.Scan(&c.ChannelID, &c.ChannelName, &country, &c.FitnessScore, &c.LastDetectedAt, &meta); err != nil {
		return engine.Creator{}, err
	}
	c.CountryCode = engine.Deref(country)
	c.Metadata = decodeMetadata(meta)
	return c, nil
}

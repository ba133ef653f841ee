package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meilisearch/meilisearch-go"

	"github.com/anatolykoptev/go_promo/internal/engine"
)

const (
	indexPrimaryKey = "video_id"
	statusActive    = "active"
	statusExpired   = "expired"
)

// PromoIndex mirrors active promotions into a Meilisearch index so that codes can be
// searched by brand, channel or domain. Expired promos stay in the index with
// status "expired" rather than being deleted.
type PromoIndex struct {
	index meilisearch.IndexManager
}

// NewPromoIndex connects to Meilisearch and makes sure the index and its settings
// exist. Setup failures are logged; the index may already be configured.
func NewPromoIndex(host, apiKey, name string) *PromoIndex {
	client := meilisearch.New(host, meilisearch.WithAPIKey(apiKey))

	if _, err := client.CreateIndex(&meilisearch.IndexConfig{Uid: name, PrimaryKey: indexPrimaryKey}); err != nil {
		slog.Warn("index: create (ok if it exists)", slog.String("index", name), slog.Any("error", err))
	}

	idx := client.Index(name)
	if _, err := idx.UpdateSearchableAttributes(&[]string{
		"brand", "code", "channel_name", "title", "detected_domain",
	}); err != nil {
		slog.Warn("index: searchable attributes", slog.Any("error", err))
	}
	filterable := []interface{}{"status", "detected_domain", "channel_id"}
	if _, err := idx.UpdateFilterableAttributes(&filterable); err != nil {
		slog.Warn("index: filterable attributes", slog.Any("error", err))
	}
	if _, err := idx.UpdateSortableAttributes(&[]string{"fitness_score", "expires_at"}); err != nil {
		slog.Warn("index: sortable attributes", slog.Any("error", err))
	}

	slog.Info("index: meilisearch ready", slog.String("host", host), slog.String("index", name))
	return &PromoIndex{index: idx}
}

// PromoRecorded upserts the promotion document.
func (x *PromoIndex) PromoRecorded(_ context.Context, p engine.ActivePromo, c engine.Creator) error {
	doc := map[string]interface{}{
		"video_id":        p.VideoID,
		"channel_id":      p.ChannelID,
		"channel_name":    c.ChannelName,
		"title":           p.Title,
		"detected_domain": p.DetectedDomain,
		"brand":           engine.Deref(p.BrandName),
		"code":            engine.Deref(p.PromoCode),
		"discount":        engine.Deref(p.DiscountDetails),
		"fitness_score":   c.FitnessScore,
		"upload_date":     p.UploadDate.Unix(),
		"expires_at":      p.ExpiresAt.Unix(),
		"status":          statusActive,
	}
	return x.update([]map[string]interface{}{doc})
}

// PromosExpired marks swept promotions as expired with a partial update.
func (x *PromoIndex) PromosExpired(_ context.Context, videoIDs []string) error {
	docs := make([]map[string]interface{}, 0, len(videoIDs))
	for _, id := range videoIDs {
		docs = append(docs, map[string]interface{}{indexPrimaryKey: id, "status": statusExpired})
	}
	return x.update(docs)
}

func (x *PromoIndex) update(docs []map[string]interface{}) error {
	if len(docs) == 0 {
		return nil
	}
	pk := indexPrimaryKey
	task, err := x.index.UpdateDocuments(docs, &meilisearch.DocumentOptions{PrimaryKey: &pk})
	if err != nil {
		return fmt.Errorf("index: update documents: %w", err)
	}
	slog.Debug("index: documents queued", slog.Int("count", len(docs)), slog.Any("task_uid", task.TaskUID))
	return nil
}

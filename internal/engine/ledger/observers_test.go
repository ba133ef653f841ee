package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_promo/internal/engine"
)

type publishedMsg struct {
	subject string
	data    []byte
}

// fakeJetStream records published messages.
type fakeJetStream struct {
	mu   sync.Mutex
	msgs []publishedMsg
	err  error
}

func (f *fakeJetStream) Publish(subj string, data []byte, _ ...nats.PubOpt) (*nats.PubAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, publishedMsg{subject: subj, data: data})
	return &nats.PubAck{Stream: eventStream}, nil
}

func TestEventPublisher(t *testing.T) {
	js := &fakeJetStream{}
	pub := NewEventPublisher(js)
	ctx := context.Background()

	p := engine.ActivePromo{VideoID: "v1", PromoCode: engine.StrPtr("SOLENE")}
	c := engine.Creator{ChannelID: "UC1", FitnessScore: 1.5}
	require.NoError(t, pub.PromoRecorded(ctx, p, c))
	require.NoError(t, pub.PromosExpired(ctx, []string{"v0", "v1"}))

	require.Len(t, js.msgs, 2)
	assert.Equal(t, SubjectDetected, js.msgs[0].subject)
	assert.Equal(t, SubjectExpired, js.msgs[1].subject)

	var detected Event
	require.NoError(t, json.Unmarshal(js.msgs[0].data, &detected))
	assert.NotEmpty(t, detected.ID)
	assert.Equal(t, SubjectDetected, detected.Type)
	require.NotNil(t, detected.Promo)
	assert.Equal(t, "SOLENE", engine.Deref(detected.Promo.PromoCode))
	require.NotNil(t, detected.Creator)
	assert.Equal(t, "UC1", detected.Creator.ChannelID)

	var expired Event
	require.NoError(t, json.Unmarshal(js.msgs[1].data, &expired))
	assert.Equal(t, []string{"v0", "v1"}, expired.VideoIDs)
	assert.NotEqual(t, detected.ID, expired.ID)
}

func TestEventPublisherError(t *testing.T) {
	pub := NewEventPublisher(&fakeJetStream{err: errors.New("no responders")})
	err := pub.PromosExpired(context.Background(), []string{"v1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), SubjectExpired)
}

func TestConnectEventsDisabled(t *testing.T) {
	pub, closeFn, err := ConnectEvents("")
	require.NoError(t, err)
	assert.Nil(t, pub)
	closeFn()
}

// fakeMeili accepts every request with an enqueued task and records document writes.
type fakeMeili struct {
	mu     sync.Mutex
	writes []string
}

func (f *fakeMeili) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	if strings.HasSuffix(r.URL.Path, "/documents") {
		f.mu.Lock()
		f.writes = append(f.writes, string(body))
		f.mu.Unlock()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_, _ = io.WriteString(w, `{"taskUid":1,"indexUid":"promos","status":"enqueued","type":"documentAdditionOrUpdate","enqueuedAt":"2026-10-17T12:00:00Z"}`)
}

func TestPromoIndex(t *testing.T) {
	meili := &fakeMeili{}
	srv := httptest.NewServer(meili)
	defer srv.Close()

	idx := NewPromoIndex(srv.URL, "key", "promos")
	ctx := context.Background()

	p := engine.ActivePromo{
		VideoID:   "v1",
		ChannelID: "UC1",
		Title:     "Mon VPS",
		BrandName: engine.StrPtr("Hostinger"),
		PromoCode: engine.StrPtr("SOLENE"),
		ExpiresAt: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, idx.PromoRecorded(ctx, p, engine.Creator{ChannelName: "Solene", FitnessScore: 1.5}))
	require.NoError(t, idx.PromosExpired(ctx, []string{"v1"}))
	require.NoError(t, idx.PromosExpired(ctx, nil))

	meili.mu.Lock()
	defer meili.mu.Unlock()
	require.Len(t, meili.writes, 2, "empty batches are skipped")

	var docs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(meili.writes[0]), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "SOLENE", docs[0]["code"])
	assert.Equal(t, "active", docs[0]["status"])

	docs = nil
	require.NoError(t, json.Unmarshal([]byte(meili.writes[1]), &docs))
	assert.Equal(t, []map[string]any{{"video_id": "v1", "status": "expired"}}, docs)
}

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/anatolykoptev/go_promo/internal/engine"
)

// JetStream subjects for ledger events.
const (
	SubjectDetected = "promo.detected"
	SubjectExpired  = "promo.expired"

	eventStream = "PROMOS"
)

// Event is the JSON payload published for every ledger change.
type Event struct {
	ID         string              `json:"id"`
	Type       string              `json:"type"`
	OccurredAt time.Time           `json:"occurred_at"`
	Promo      *engine.ActivePromo `json:"promo,omitempty"`
	Creator    *engine.Creator     `json:"creator,omitempty"`
	VideoIDs   []string            `json:"video_ids,omitempty"`
}

// jetStreamPublisher is the part of nats.JetStreamContext the publisher uses.
type jetStreamPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// EventPublisher forwards ledger changes to NATS JetStream.
type EventPublisher struct {
	js  jetStreamPublisher
	now func() time.Time
}

// NewEventPublisher wraps a JetStream context.
func NewEventPublisher(js jetStreamPublisher) *EventPublisher {
	return &EventPublisher{js: js, now: time.Now}
}

// ConnectEvents dials NATS, makes sure the PROMOS stream exists and returns a
// publisher plus a close func. An empty url disables events (nil, no-op, nil).
func ConnectEvents(url string) (*EventPublisher, func(), error) {
	if url == "" {
		return nil, func() {}, nil
	}
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, func() {}, fmt.Errorf("events: connect: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, func() {}, fmt.Errorf("events: jetstream: %w", err)
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     eventStream,
		Subjects: []string{SubjectDetected, SubjectExpired},
		Storage:  nats.FileStorage,
	})
	if err != nil {
		slog.Warn("events: add stream (ok if it exists)", slog.String("stream", eventStream), slog.Any("error", err))
	}
	slog.Info("events: nats connected", slog.String("url", nc.ConnectedUrlRedacted()))
	return NewEventPublisher(js), nc.Close, nil
}

// PromoRecorded publishes a promo.detected event.
func (p *EventPublisher) PromoRecorded(_ context.Context, promo engine.ActivePromo, c engine.Creator) error {
	return p.publish(SubjectDetected, Event{Promo: &promo, Creator: &c})
}

// PromosExpired publishes one promo.expired event for the whole batch.
func (p *EventPublisher) PromosExpired(_ context.Context, videoIDs []string) error {
	return p.publish(SubjectExpired, Event{VideoIDs: videoIDs})
}

func (p *EventPublisher) publish(subject string, ev Event) error {
	ev.ID = uuid.NewString()
	ev.Type = subject
	ev.OccurredAt = p.now().UTC()
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", subject, err)
	}
	if _, err := p.js.Publish(subject, data, nats.MsgId(ev.ID)); err != nil {
		return fmt.Errorf("events: publish %s: %w", subject, err)
	}
	return nil
}

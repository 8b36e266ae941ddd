package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/neighbridge/neighbridge-backend/pkg/logger"
)

const defaultPublishTimeout = 5 * time.Second

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// Publisher emits community events after the owning transaction committed.
// Delivery is best effort: failures are logged and never surface to callers.
type Publisher struct {
	pub     publisher
	logg    *logger.Logger
	now     func() time.Time
	timeout time.Duration
	ordered bool
}

// NewPublisher wraps a Pub/Sub publisher. A nil topic yields a publisher that
// drops every event. When the topic has ordering enabled, messages are keyed
// by community id.
func NewPublisher(topic *gcppubsub.Publisher, logg *logger.Logger) *Publisher {
	if topic == nil {
		return newPublisher(nil, logg)
	}
	p := newPublisher(&gcpPublisher{Publisher: topic}, logg)
	p.ordered = topic.EnableMessageOrdering
	return p
}

func newPublisher(pub publisher, logg *logger.Logger) *Publisher {
	return &Publisher{
		pub:     pub,
		logg:    logg,
		now:     time.Now,
		timeout: defaultPublishTimeout,
	}
}

// Emit publishes the event and reports delivery failures through the logger.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil || p.pub == nil {
		return
	}
	if err := p.publish(ctx, event); err != nil && p.logg != nil {
		logCtx := p.logg.WithFields(ctx, map[string]any{
			"event_type":   string(event.Type),
			"community_id": event.CommunityID,
		})
		p.logg.Error(logCtx, "failed to publish community event", err)
	}
}

func (p *Publisher) publish(ctx context.Context, event Event) error {
	if !event.Type.IsValid() {
		return fmt.Errorf("unknown event type %q", event.Type)
	}

	var data json.RawMessage
	if event.Data != nil {
		raw, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("marshal event data: %w", err)
		}
		data = raw
	}

	envelope := Envelope{
		Version:     envelopeVersion,
		EventID:     uuid.NewString(),
		Type:        event.Type,
		OccurredAt:  p.now().UTC(),
		ActorID:     event.ActorID,
		CommunityID: event.CommunityID,
		Data:        data,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := &gcppubsub.Message{
		Data: body,
		Attributes: map[string]string{
			"event_id":     envelope.EventID,
			"event_type":   string(envelope.Type),
			"community_id": envelope.CommunityID,
			"occurred_at":  envelope.OccurredAt.Format(time.RFC3339Nano),
		},
	}
	if p.ordered {
		msg.OrderingKey = envelope.CommunityID
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	result := p.pub.Publish(publishCtx, msg)
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publish %s: %w", envelope.Type, err)
	}
	return nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{
		PublishResult: p.Publisher.Publish(ctx, msg),
		publisher:     p.Publisher,
		orderingKey:   msg.OrderingKey,
	}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
	publisher   *gcppubsub.Publisher
	orderingKey string
}

// Get waits for the server ack. A failed ordered publish pauses its key, so
// the key is resumed before the error is returned.
func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	id, err := r.PublishResult.Get(ctx)
	if err != nil && r.orderingKey != "" && r.publisher != nil {
		r.publisher.ResumePublish(r.orderingKey)
	}
	return id, err
}

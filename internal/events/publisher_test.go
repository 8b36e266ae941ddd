package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/neighbridge/neighbridge-backend/pkg/enums"
	"github.com/neighbridge/neighbridge-backend/pkg/logger"
)

type stubResult struct {
	err error
}

func (r stubResult) Get(context.Context) (string, error) {
	return "msg-1", r.err
}

type stubPublisher struct {
	messages []*gcppubsub.Message
	err      error
}

func (s *stubPublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	s.messages = append(s.messages, msg)
	return stubResult{err: s.err}
}

func TestPublisherEmitWritesEnvelope(t *testing.T) {
	stub := &stubPublisher{}
	pub := newPublisher(stub, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	actor := uuid.New()
	pub.Emit(context.Background(), Event{
		Type:        enums.EventMembershipApproved,
		ActorID:     actor,
		CommunityID: "comm_123",
		Data:        MembershipData{MembershipID: "memb_1", Role: enums.MemberRoleMember, Status: enums.MembershipStatusActive},
	})

	if len(stub.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(stub.messages))
	}
	msg := stub.messages[0]
	if msg.Attributes["event_type"] != "membership.approved" || msg.Attributes["community_id"] != "comm_123" {
		t.Fatalf("unexpected attributes %v", msg.Attributes)
	}

	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Version != envelopeVersion || env.ActorID != actor || !env.OccurredAt.Equal(fixed) {
		t.Fatalf("unexpected envelope %+v", env)
	}
	var data MembershipData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.MembershipID != "memb_1" || data.Status != enums.MembershipStatusActive {
		t.Fatalf("unexpected data %+v", data)
	}
}

func TestPublisherOrderingKey(t *testing.T) {
	stub := &stubPublisher{}
	pub := newPublisher(stub, nil)
	pub.Emit(context.Background(), Event{Type: enums.EventCommunityCreated, CommunityID: "comm_1"})

	pub.ordered = true
	pub.Emit(context.Background(), Event{Type: enums.EventMembershipJoined, CommunityID: "comm_1"})

	if stub.messages[0].OrderingKey != "" {
		t.Fatalf("unordered publisher set key %q", stub.messages[0].OrderingKey)
	}
	if stub.messages[1].OrderingKey != "comm_1" {
		t.Fatalf("expected community ordering key, got %q", stub.messages[1].OrderingKey)
	}
}

func TestPublisherEmitLogsFailures(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	stub := &stubPublisher{err: errors.New("deadline exceeded")}
	pub := newPublisher(stub, logg)

	pub.Emit(context.Background(), Event{Type: enums.EventMembershipLeft, CommunityID: "comm_9"})

	if !strings.Contains(buf.String(), "failed to publish community event") {
		t.Fatalf("expected failure log, got %s", buf.String())
	}
}

func TestPublisherRejectsUnknownType(t *testing.T) {
	stub := &stubPublisher{}
	pub := newPublisher(stub, nil)
	pub.Emit(context.Background(), Event{Type: "membership.teleported"})
	if len(stub.messages) != 0 {
		t.Fatal("expected unknown event type to be dropped")
	}
}

func TestNilPublisherIsNoop(t *testing.T) {
	var pub *Publisher
	pub.Emit(context.Background(), Event{Type: enums.EventCommunityCreated})

	empty := NewPublisher(nil, nil)
	empty.Emit(context.Background(), Event{Type: enums.EventCommunityCreated})
}

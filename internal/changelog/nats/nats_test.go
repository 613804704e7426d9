package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/kailas-cloud/venuedex/internal/changelog"
	"github.com/kailas-cloud/venuedex/internal/domain"
)

// --- Mocks ---

type published struct {
	subject string
	data    []byte
}

type mockJetStream struct {
	streams   []jetstream.StreamConfig
	consumers []jetstream.ConsumerConfig
	published []published
	streamErr error
	pubErr    error
	consumer  jetstream.Consumer
}

func (m *mockJetStream) CreateOrUpdateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	m.streams = append(m.streams, cfg)
	return nil, m.streamErr
}

func (m *mockJetStream) CreateOrUpdateConsumer(_ context.Context, _ string, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error) {
	m.consumers = append(m.consumers, cfg)
	if m.consumer == nil {
		return nil, errors.New("no consumer")
	}
	return m.consumer, nil
}

func (m *mockJetStream) Publish(_ context.Context, subject string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if m.pubErr != nil {
		return nil, m.pubErr
	}
	m.published = append(m.published, published{subject: subject, data: data})
	return &jetstream.PubAck{Stream: "VENUES"}, nil
}

// mockMsg records the acknowledgement sent for a message.
type mockMsg struct {
	jetstream.Msg
	data   []byte
	result string
}

func (m *mockMsg) Data() []byte    { return m.data }
func (m *mockMsg) Subject() string { return "venues.changes.upsert" }
func (m *mockMsg) Ack() error      { m.result = "ack"; return nil }
func (m *mockMsg) Nak() error      { m.result = "nak"; return nil }
func (m *mockMsg) Term() error     { m.result = "term"; return nil }
func (m *mockMsg) NakWithDelay(time.Duration) error {
	m.result = "nak"
	return nil
}

type mockApplier struct {
	err error
	ids []string
}

func (m *mockApplier) IndexOne(_ context.Context, id string) (string, error) {
	m.ids = append(m.ids, id)
	return "", m.err
}

func (m *mockApplier) RemoveOne(_ context.Context, id string) error {
	m.ids = append(m.ids, id)
	return m.err
}

func eventMsg(t *testing.T, e changelog.Event) *mockMsg {
	t.Helper()
	data, err := e.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &mockMsg{data: data}
}

// --- Stream ---

func TestEnsureStream_Defaults(t *testing.T) {
	js := &mockJetStream{}
	if err := EnsureStream(context.Background(), js, Config{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(js.streams) != 1 {
		t.Fatalf("expected one stream, got %d", len(js.streams))
	}
	s := js.streams[0]
	if s.Name != "VENUES" || s.Subjects[0] != "venues.changes.>" || s.Storage != jetstream.FileStorage {
		t.Fatalf("unexpected stream config: %+v", s)
	}
}

func TestEnsureStream_Error(t *testing.T) {
	js := &mockJetStream{streamErr: errors.New("no permission")}
	if err := EnsureStream(context.Background(), js, Config{Stream: "X"}); err == nil {
		t.Fatal("expected error")
	}
}

// --- Publisher ---

func TestPublish_SubjectByOp(t *testing.T) {
	js := &mockJetStream{}
	p := NewPublisher(js, Config{Subject: "venues.changes"})

	e := changelog.Event{ID: "v1", Op: changelog.OpDelete, At: time.Unix(1700000000, 0)}
	if err := p.Publish(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(js.published) != 1 {
		t.Fatalf("expected one message, got %d", len(js.published))
	}
	if js.published[0].subject != "venues.changes.delete" {
		t.Fatalf("unexpected subject: %s", js.published[0].subject)
	}
	got, err := changelog.Unmarshal(js.published[0].data)
	if err != nil || got.ID != "v1" {
		t.Fatalf("unexpected payload: %+v %v", got, err)
	}
}

func TestPublish_Error(t *testing.T) {
	js := &mockJetStream{pubErr: errors.New("nats: timeout")}
	p := NewPublisher(js, Config{})
	err := p.Publish(context.Background(), changelog.Event{ID: "v1", Op: changelog.OpUpsert})
	if err == nil {
		t.Fatal("expected error")
	}
}

// --- Consumer ---

func TestHandle_Ack(t *testing.T) {
	a := &mockApplier{}
	c := NewConsumer(&mockJetStream{}, Config{}, a, nil)

	msg := eventMsg(t, changelog.Event{ID: "v1", Op: changelog.OpUpsert})
	c.Handle(context.Background(), msg)

	if msg.result != "ack" {
		t.Fatalf("expected ack, got %q", msg.result)
	}
	if len(a.ids) != 1 || a.ids[0] != "v1" {
		t.Fatalf("unexpected applied ids: %v", a.ids)
	}
}

func TestHandle_UnavailableNaks(t *testing.T) {
	a := &mockApplier{err: domain.Unavailable("index venue v1", context.DeadlineExceeded)}
	c := NewConsumer(&mockJetStream{}, Config{}, a, nil)

	msg := eventMsg(t, changelog.Event{ID: "v1", Op: changelog.OpDelete})
	c.Handle(context.Background(), msg)

	if msg.result != "nak" {
		t.Fatalf("expected nak, got %q", msg.result)
	}
}

func TestHandle_PermanentFailureTerminates(t *testing.T) {
	a := &mockApplier{err: domain.ErrDocumentInvalid}
	c := NewConsumer(&mockJetStream{}, Config{}, a, nil)

	msg := eventMsg(t, changelog.Event{ID: "v1", Op: changelog.OpUpsert})
	c.Handle(context.Background(), msg)

	if msg.result != "term" {
		t.Fatalf("expected term, got %q", msg.result)
	}
}

func TestHandle_MalformedTerminates(t *testing.T) {
	a := &mockApplier{}
	c := NewConsumer(&mockJetStream{}, Config{}, a, nil)

	msg := &mockMsg{data: []byte("not json")}
	c.Handle(context.Background(), msg)

	if msg.result != "term" {
		t.Fatalf("expected term, got %q", msg.result)
	}
	if len(a.ids) != 0 {
		t.Fatal("applier must not run for malformed events")
	}
}

func TestRun_ConsumerError(t *testing.T) {
	js := &mockJetStream{}
	c := NewConsumer(js, Config{Durable: "d1"}, &mockApplier{}, nil)

	if err := c.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(js.consumers) != 1 || js.consumers[0].Durable != "d1" ||
		js.consumers[0].AckPolicy != jetstream.AckExplicitPolicy {
		t.Fatalf("unexpected consumer config: %+v", js.consumers)
	}
}

package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freight-platform/pricing-service/pkg/cloudevents"
	"github.com/freight-platform/pricing-service/pkg/logging"
	"github.com/freight-platform/pricing-service/pkg/metrics"
)

type recordingWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func newTestProducer(w *recordingWriter) *Producer {
	p := NewProducer(DefaultConfig())
	p.newWriter = func(string) MessageWriter { return w }
	return p
}

func testEvent() *cloudevents.CloudEvent {
	f := cloudevents.NewEventFactory(cloudevents.SourcePricing)
	return f.CreateDecisionsRecordedEvent(context.Background(), "corr-1", cloudevents.PricingDecisionsRecordedData{CaseID: "case-9"})
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestNewMessage_Headers(t *testing.T) {
	event := testEvent()

	msg, err := NewMessage(event)
	require.NoError(t, err)

	assert.Equal(t, "case/case-9", string(msg.Key))
	assert.Equal(t, "1.0", header(msg, "ce-specversion"))
	assert.Equal(t, cloudevents.PricingDecisionsRecorded, header(msg, "ce-type"))
	assert.Equal(t, "corr-1", header(msg, "ce-freightcorrelationid"))
	assert.Equal(t, "case-9", header(msg, "ce-freightcaseid"))
	assert.Empty(t, header(msg, "ce-freighttenantid"))
}

func TestProducer_PublishEvent(t *testing.T) {
	w := &recordingWriter{}
	p := newTestProducer(w)

	require.NoError(t, p.PublishEvent(context.Background(), Topics.PricingEvents, testEvent()))
	require.NoError(t, p.PublishEvent(context.Background(), Topics.PricingEvents, testEvent()))

	assert.Len(t, w.messages, 2)
	assert.Len(t, p.writers, 1)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishEventError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := newTestProducer(w)

	err := p.PublishEvent(context.Background(), Topics.PricingEvents, testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), Topics.PricingEvents)
}

func TestInstrumentedProducer_PublishEvent(t *testing.T) {
	w := &recordingWriter{}
	m := metrics.New(metrics.DefaultConfig("pricing-test"))
	logger := logging.New(&logging.Config{ServiceName: "pricing-test", Output: io.Discard})
	p := NewInstrumentedProducer(newTestProducer(w), m, logger)

	require.NoError(t, p.PublishEvent(context.Background(), Topics.PricingEvents, testEvent()))
	assert.Len(t, w.messages, 1)
	require.NoError(t, p.Close())
}

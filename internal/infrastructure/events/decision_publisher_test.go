package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freight-platform/pricing-service/internal/domain"
	"github.com/freight-platform/pricing-service/pkg/cloudevents"
	"github.com/freight-platform/pricing-service/pkg/kafka"
	"github.com/freight-platform/pricing-service/pkg/tenant"
)

type recordingPublisher struct {
	publishFn func(ctx context.Context, topic string, event *cloudevents.CloudEvent) error
	topic     string
	events    []*cloudevents.CloudEvent
}

func (r *recordingPublisher) PublishEvent(ctx context.Context, topic string, event *cloudevents.CloudEvent) error {
	r.topic = topic
	r.events = append(r.events, event)
	if r.publishFn != nil {
		return r.publishFn(ctx, topic, event)
	}
	return nil
}

func recordedEvent() *domain.DecisionsRecordedEvent {
	rate := decimal.RequireFromString("95000.50")
	qty := 4.0
	return &domain.DecisionsRecordedEvent{
		RunID:    "run-1",
		CaseID:   "CASE-1",
		TenantID: "agency-1",
		PricedAt: time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC),
		Lines: []domain.PricedLine{
			{ID: "l-1", ServiceKey: "terminal_handling", Rate: &rate, Currency: "XOF", Source: "catalog:2026", Confidence: 0.9, QuantityUsed: &qty, UnitUsed: "EVP"},
			{ID: "l-2", ServiceKey: "documentation", Currency: "XOF", Source: domain.SourceNoMatch},
		},
		Missing: []string{"documentation"},
	}
}

func TestDecisionPublisher_Publish(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewDecisionPublisher(rec, cloudevents.NewEventFactory(cloudevents.SourcePricing), "")

	ctx := tenant.ToContext(context.Background(), &tenant.Context{TenantID: "agency-1", UserID: "user-7"})
	require.NoError(t, p.PublishDecisionsRecorded(ctx, recordedEvent(), "corr-1"))

	assert.Equal(t, kafka.Topics.PricingEvents, rec.topic)
	require.Len(t, rec.events, 1)
	ev := rec.events[0]
	assert.Equal(t, cloudevents.PricingDecisionsRecorded, ev.Type)
	assert.Equal(t, cloudevents.SourcePricing, ev.Source)
	assert.Equal(t, "case/CASE-1", ev.Subject)
	assert.Equal(t, "CASE-1", ev.CaseID)
	assert.Equal(t, "corr-1", ev.CorrelationID)
	assert.Equal(t, "agency-1", ev.TenantID)

	data, ok := ev.Data.(cloudevents.PricingDecisionsRecordedData)
	require.True(t, ok)
	assert.Equal(t, "run-1", data.RunID)
	assert.Equal(t, 1, data.Priced)
	assert.Equal(t, []string{"documentation"}, data.Missing)
	require.Len(t, data.Decisions, 2)
	require.NotNil(t, data.Decisions[0].Rate)
	assert.Equal(t, "95000.5", *data.Decisions[0].Rate)
	assert.Nil(t, data.Decisions[1].Rate)
}

func TestDecisionPublisher_TenantFromRunWithoutRequestTenant(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewDecisionPublisher(rec, cloudevents.NewEventFactory(cloudevents.SourcePricing), "custom.topic")

	e := recordedEvent()
	e.Missing = nil
	require.NoError(t, p.PublishDecisionsRecorded(context.Background(), e, ""))

	assert.Equal(t, "custom.topic", rec.topic)
	assert.Equal(t, "agency-1", rec.events[0].TenantID)
	assert.Equal(t, []string{}, rec.events[0].Data.(cloudevents.PricingDecisionsRecordedData).Missing)
}

func TestDecisionPublisher_Error(t *testing.T) {
	broker := errors.New("leader not available")
	rec := &recordingPublisher{publishFn: func(context.Context, string, *cloudevents.CloudEvent) error { return broker }}
	p := NewDecisionPublisher(rec, cloudevents.NewEventFactory(cloudevents.SourcePricing), "")

	err := p.PublishDecisionsRecorded(context.Background(), recordedEvent(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, broker)
	assert.Contains(t, err.Error(), "CASE-1")
}

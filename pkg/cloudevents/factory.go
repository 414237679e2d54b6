package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/freight-platform/pricing-service/pkg/tenant"
)

// EventFactory creates CloudEvents for one source
type EventFactory struct {
	source string
	now    func() time.Time
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{
		source: source,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateEvent builds an event carrying the tenant and trace context of ctx
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data interface{}) *CloudEvent {
	event := &CloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            f.now(),
		DataContentType: "application/json",
		Data:            data,
	}
	event.WithTenantContext(tenant.FromContextOptional(ctx))
	event.InjectTraceContext(ctx)
	return event
}

// CreateDecisionsRecordedEvent builds the event announcing a recorded pricing run
func (f *EventFactory) CreateDecisionsRecordedEvent(ctx context.Context, correlationID string, data PricingDecisionsRecordedData) *CloudEvent {
	event := f.CreateEvent(ctx, PricingDecisionsRecorded, "case/"+data.CaseID, data)
	event.CaseID = data.CaseID
	event.CorrelationID = correlationID
	return event
}

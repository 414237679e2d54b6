// Package events turns recorded pricing runs into CloudEvents on Kafka.
package events

import (
	"context"
	"fmt"

	"github.com/freight-platform/pricing-service/internal/domain"
	"github.com/freight-platform/pricing-service/pkg/cloudevents"
	"github.com/freight-platform/pricing-service/pkg/kafka"
)

// DecisionPublisher implements application.DecisionPublisher
type DecisionPublisher struct {
	publisher kafka.EventPublisher
	factory   *cloudevents.EventFactory
	topic     string
}

// NewDecisionPublisher publishes to topic through publisher
func NewDecisionPublisher(publisher kafka.EventPublisher, factory *cloudevents.EventFactory, topic string) *DecisionPublisher {
	if topic == "" {
		topic = kafka.Topics.PricingEvents
	}
	return &DecisionPublisher{publisher: publisher, factory: factory, topic: topic}
}

// PublishDecisionsRecorded announces a stored pricing run
func (p *DecisionPublisher) PublishDecisionsRecorded(ctx context.Context, e *domain.DecisionsRecordedEvent, correlationID string) error {
	event := p.factory.CreateDecisionsRecordedEvent(ctx, correlationID, toEventData(e))
	if event.TenantID == "" {
		event.TenantID = e.TenantID
	}

	if err := p.publisher.PublishEvent(ctx, p.topic, event); err != nil {
		return fmt.Errorf("publish %s for case %s: %w", event.Type, e.CaseID, err)
	}
	return nil
}

func toEventData(e *domain.DecisionsRecordedEvent) cloudevents.PricingDecisionsRecordedData {
	data := cloudevents.PricingDecisionsRecordedData{
		CaseID:    e.CaseID,
		RunID:     e.RunID,
		PricedAt:  e.PricedAt,
		Missing:   e.Missing,
		Decisions: make([]cloudevents.DecisionSummary, len(e.Lines)),
	}
	if data.Missing == nil {
		data.Missing = []string{}
	}

	for i, l := range e.Lines {
		summary := cloudevents.DecisionSummary{
			ServiceLineID: l.ID,
			ServiceKey:    l.ServiceKey,
			Currency:      l.Currency,
			Source:        l.Source,
			Confidence:    l.Confidence,
			Quantity:      l.QuantityUsed,
			Unit:          l.UnitUsed,
		}
		if l.Rate != nil {
			rate := l.Rate.String()
			summary.Rate = &rate
			data.Priced++
		}
		data.Decisions[i] = summary
	}
	return data
}

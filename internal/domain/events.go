package domain

import "time"

// DomainEvent is the base interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// DecisionsRecordedEvent is emitted once the decisions of a run are stored
type DecisionsRecordedEvent struct {
	RunID    string
	CaseID   string
	TenantID string
	PricedAt time.Time
	Lines    []PricedLine
	Missing  []string
}

func (e *DecisionsRecordedEvent) EventType() string    { return "freight.pricing.decisions-recorded" }
func (e *DecisionsRecordedEvent) OccurredAt() time.Time { return e.PricedAt }

// NewDecisionsRecordedEvent builds the event for a stored run
func NewDecisionsRecordedEvent(run *PricingRun) *DecisionsRecordedEvent {
	return &DecisionsRecordedEvent{
		RunID:    run.RunID,
		CaseID:   run.CaseID,
		TenantID: run.TenantID,
		PricedAt: run.PricedAt,
		Lines:    run.PricedLines,
		Missing:  run.Missing,
	}
}

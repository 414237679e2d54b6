package cloudevents

import (
	"time"
)

// Event types published by the pricing service
const (
	PricingDecisionsRecorded = "freight.pricing.decisions-recorded"
)

// Event sources
const (
	SourcePricing = "/pricing-service"
)

// CloudEvent is a CloudEvents v1.0 envelope with freight extensions
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	CorrelationID string `json:"freightcorrelationid,omitempty"`
	TenantID      string `json:"freighttenantid,omitempty"`
	CaseID        string `json:"freightcaseid,omitempty"`

	// W3C trace context
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

// PricingDecisionsRecordedData is the payload of PricingDecisionsRecorded
type PricingDecisionsRecordedData struct {
	CaseID    string            `json:"caseId"`
	RunID     string            `json:"runId"`
	PricedAt  time.Time         `json:"pricedAt"`
	Priced    int               `json:"priced"`
	Missing   []string          `json:"missing"`
	Decisions []DecisionSummary `json:"decisions"`
}

// DecisionSummary describes one recorded service line decision
type DecisionSummary struct {
	ServiceLineID string   `json:"serviceLineId"`
	ServiceKey    string   `json:"serviceKey"`
	Rate          *string  `json:"rate"`
	Currency      string   `json:"currency,omitempty"`
	Source        string   `json:"source"`
	Confidence    float64  `json:"confidence"`
	Quantity      *float64 `json:"quantityUsed"`
	Unit          string   `json:"unitUsed,omitempty"`
}

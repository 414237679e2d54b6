package cloudevents

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/freight-platform/pricing-service/pkg/tenant"
)

// Extension attribute names, also used as "ce-" prefixed Kafka headers
const (
	ExtCorrelationID = "freightcorrelationid"
	ExtTenantID      = "freighttenantid"
	ExtCaseID        = "freightcaseid"
	ExtTraceParent   = "traceparent"
	ExtTraceState    = "tracestate"
)

// Extensions returns the set extension attributes in a stable order
func (e *CloudEvent) Extensions() [][2]string {
	var out [][2]string
	for _, kv := range [][2]string{
		{ExtCorrelationID, e.CorrelationID},
		{ExtTenantID, e.TenantID},
		{ExtCaseID, e.CaseID},
		{ExtTraceParent, e.TraceParent},
		{ExtTraceState, e.TraceState},
	} {
		if kv[1] != "" {
			out = append(out, kv)
		}
	}
	return out
}

// WithTenantContext copies the tenant onto the event
func (e *CloudEvent) WithTenantContext(tc *tenant.Context) *CloudEvent {
	if tc != nil {
		e.TenantID = tc.TenantID
	}
	return e
}

// InjectTraceContext stores the span context of ctx on the event
func (e *CloudEvent) InjectTraceContext(ctx context.Context) {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if tp := carrier.Get(ExtTraceParent); tp != "" {
		e.TraceParent = tp
	}
	if ts := carrier.Get(ExtTraceState); ts != "" {
		e.TraceState = ts
	}
}

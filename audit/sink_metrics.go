package audit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const agentTransactionsMetric = "delegation.agent.transactions"

// MetricsSink counts agent transactions on an OpenTelemetry meter, indexed by
// agent id.
type MetricsSink struct {
	transactions metric.Int64Counter
}

func NewMetricsSink(meter metric.Meter) (*MetricsSink, error) {
	counter, err := meter.Int64Counter(agentTransactionsMetric,
		metric.WithDescription("Verified agent-mediated requests"),
		metric.WithUnit("{transaction}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s counter: %w", agentTransactionsMetric, err)
	}

	return &MetricsSink{transactions: counter}, nil
}

func (s *MetricsSink) Name() string {
	return "metrics"
}

func (s *MetricsSink) Write(ctx context.Context, record AuditRecord) error {
	s.transactions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent.id", record.AgentID),
		attribute.String("http.method", record.Method),
		attribute.String("delegation.scope", record.DelegationScope),
	))

	return nil
}

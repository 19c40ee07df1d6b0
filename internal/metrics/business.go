package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics records gateway-level outcomes: generic operations of the
// identity and task layers, authorization decisions and executed actions.
type BusinessMetrics interface {
	// RecordOperation records an operation with its status.
	// Domain examples: "identity", "task"
	// Operation examples: "token_issue", "task_claim"
	// Status examples: "success", "error"
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)

	// RecordAuthzDecision counts policy table decisions per collection and action.
	RecordAuthzDecision(ctx context.Context, collection, action string, allowed bool)

	// RecordAction counts per-item action results.
	RecordAction(ctx context.Context, collection, action string, success bool)
}

type businessMetrics struct {
	operationCounter metric.Int64Counter
	durationHisto    metric.Float64Histogram
	authzCounter     metric.Int64Counter
	actionCounter    metric.Int64Counter
}

// NewBusinessMetrics creates a new BusinessMetrics implementation using the provided meter provider.
// The namespace parameter is used as a prefix for all metric names (e.g., "gateway").
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of business operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of business operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	authzCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_authz_decisions_total", namespace),
		metric.WithDescription("Authorization decisions by collection and action"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authz counter: %w", err)
	}

	actionCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_action_results_total", namespace),
		metric.WithDescription("Per-item action results by collection and action"),
		metric.WithUnit("{result}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create action counter: %w", err)
	}

	return &businessMetrics{
		operationCounter: operationCounter,
		durationHisto:    durationHisto,
		authzCounter:     authzCounter,
		actionCounter:    actionCounter,
	}, nil
}

func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

func (b *businessMetrics) RecordAuthzDecision(ctx context.Context, collection, action string, allowed bool) {
	b.authzCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("collection", collection),
			attribute.String("action", action),
			attribute.String("allowed", strconv.FormatBool(allowed)),
		),
	)
}

func (b *businessMetrics) RecordAction(ctx context.Context, collection, action string, success bool) {
	b.actionCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("collection", collection),
			attribute.String("action", action),
			attribute.String("success", strconv.FormatBool(success)),
		),
	)
}

// NoOpBusinessMetrics is a no-op implementation of BusinessMetrics for when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

func (n *NoOpBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
}

func (n *NoOpBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
}

func (n *NoOpBusinessMetrics) RecordAuthzDecision(ctx context.Context, collection, action string, allowed bool) {
}

func (n *NoOpBusinessMetrics) RecordAction(ctx context.Context, collection, action string, success bool) {
}

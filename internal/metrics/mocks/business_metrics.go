// Package mocks provides testify mocks for metrics interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockBusinessMetrics is a mock implementation of metrics.BusinessMetrics.
type MockBusinessMetrics struct {
	mock.Mock
}

func (m *MockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *MockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func (m *MockBusinessMetrics) RecordAuthzDecision(ctx context.Context, collection, action string, allowed bool) {
	m.Called(ctx, collection, action, allowed)
}

func (m *MockBusinessMetrics) RecordAction(ctx context.Context, collection, action string, success bool) {
	m.Called(ctx, collection, action, success)
}

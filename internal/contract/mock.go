package contract

import (
	"context"

	"github.com/huangsam/pulse/schema"
	"github.com/stretchr/testify/mock"
)

// MockEventSource is a mock implementation of EventSource for testing.
type MockEventSource struct {
	mock.Mock
}

var _ EventSource = &MockEventSource{} // Compile-time check

// Name implements the EventSource interface.
func (m *MockEventSource) Name() string {
	ret := m.Called()
	return ret.String(0)
}

// Fetch implements the EventSource interface.
func (m *MockEventSource) Fetch(ctx context.Context, projectID string, rng schema.DateRange) (schema.RawBatch, error) {
	ret := m.Called(ctx, projectID, rng)
	batch, _ := ret.Get(0).(schema.RawBatch)
	return batch, ret.Error(1)
}

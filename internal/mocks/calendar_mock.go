package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockEventSource is a mock implementation of the calendar reader
type MockEventSource struct {
	mock.Mock
}

func (m *MockEventSource) UpcomingEvents(ctx context.Context, maxResults int) ([]string, error) {
	args := m.Called(ctx, maxResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

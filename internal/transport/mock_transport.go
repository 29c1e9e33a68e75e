package transport

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"am-client/internal/docstore"
)

// MockTransport is a mock implementation of Transport using testify/mock.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Chat(ctx context.Context, message string, opts ChatOptions) (ChatResponse, error) {
	args := m.Called(ctx, message, opts)
	return args.Get(0).(ChatResponse), args.Error(1)
}

func (m *MockTransport) ChatStream(ctx context.Context, message string, opts ChatOptions, h StreamHandlers) {
	m.Called(ctx, message, opts, h)
}

func (m *MockTransport) GetGeneralDocs(ctx context.Context, since *time.Time) ([]docstore.ReferenceDocument, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]docstore.ReferenceDocument), args.Error(1)
}

func (m *MockTransport) GetStatus(ctx context.Context) (StatusResponse, error) {
	args := m.Called(ctx)
	return args.Get(0).(StatusResponse), args.Error(1)
}

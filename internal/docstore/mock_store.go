package docstore

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Store(ctx context.Context, docs []ReferenceDocument) error {
	args := m.Called(ctx, docs)
	return args.Error(0)
}

func (m *MockStore) Retrieve(ctx context.Context) ([]ReferenceDocument, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ReferenceDocument), args.Error(1)
}

func (m *MockStore) LastSync(ctx context.Context) (*time.Time, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) Status(ctx context.Context) (CacheStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(CacheStatus), args.Error(1)
}

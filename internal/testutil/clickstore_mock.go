package testutil

import (
	"context"

	"go-shortlink/internal/analytics/usecase"
	"go-shortlink/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockClickStore is a testify mock for usecase.ClickStore.
type MockClickStore struct {
	mock.Mock
}

func (m *MockClickStore) Insert(ctx context.Context, record *domain.ClickRecord) (string, error) {
	args := m.Called(ctx, record)
	return args.String(0), args.Error(1)
}

func (m *MockClickStore) CountByShortCode(ctx context.Context, shortCode string) (int64, error) {
	args := m.Called(ctx, shortCode)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockClickStore) CountGrouped(ctx context.Context, shortCode string, dim usecase.Dimension) ([]usecase.GroupCount, error) {
	args := m.Called(ctx, shortCode, dim)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usecase.GroupCount), args.Error(1)
}

func (m *MockClickStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

package testutil

import (
	"context"
	"time"

	"go-shortlink/internal/shared/events"

	"github.com/stretchr/testify/mock"
)

// MockStore is a testify mock for codestore.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Exists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) SetWithExpiry(ctx context.Context, code, destinationURL string, ttl time.Duration) error {
	args := m.Called(ctx, code, destinationURL, ttl)
	return args.Error(0)
}

func (m *MockStore) SetIfAbsent(ctx context.Context, code, destinationURL string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, code, destinationURL, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, code string) (string, error) {
	args := m.Called(ctx, code)
	return args.String(0), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, code string) (int64, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockClickSubmitter is a testify mock for usecase.ClickSubmitter.
type MockClickSubmitter struct {
	mock.Mock
}

func (m *MockClickSubmitter) Submit(evt events.ClickEvent) bool {
	args := m.Called(evt)
	return args.Bool(0)
}

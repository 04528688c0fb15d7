package auth_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	auth "github.com/goliatone/go-stateless-auth"
)

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// MockAccountLoader implements auth.AccountLoader
type MockAccountLoader struct {
	mock.Mock
}

func (m *MockAccountLoader) LoadByID(ctx context.Context, id uuid.UUID) (*auth.Account, error) {
	args := m.Called(ctx, id)
	if acc, ok := args.Get(0).(*auth.Account); ok {
		return acc, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockObserver implements auth.ValidationObserver
type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) TokenIssued(audience auth.Audience) {
	m.Called(audience)
}

func (m *MockObserver) TokenValidated(audience auth.Audience, outcome string) {
	m.Called(audience, outcome)
}

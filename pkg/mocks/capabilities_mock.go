// Package mocks holds testify mocks of the capabilities step handlers and
// trigger components depend on.
package mocks

import (
	"context"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock implementation of protocol.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, channel, recipient, message string) error {
	return m.Called(ctx, channel, recipient, message).Error(0)
}

// MockEmailQueue is a mock implementation of protocol.EmailQueue.
type MockEmailQueue struct {
	mock.Mock
}

func (m *MockEmailQueue) Enqueue(ctx context.Context, to, subject, body string) (*models.EmailRecord, error) {
	args := m.Called(ctx, to, subject, body)

	record, _ := args.Get(0).(*models.EmailRecord)

	return record, args.Error(1)
}

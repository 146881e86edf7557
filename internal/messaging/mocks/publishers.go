package mocks

import (
	"context"

	"tinypot-server/internal/messaging"

	"github.com/stretchr/testify/mock"
)

// Mock ScriptUpdatePublisher
type ScriptUpdatePublisher struct {
	mock.Mock
}

func (m *ScriptUpdatePublisher) PublishScriptUpdate(ctx context.Context, payload messaging.ScriptUpdatePayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

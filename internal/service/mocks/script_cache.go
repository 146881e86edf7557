package mocks

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock ScriptCache
type ScriptCache struct {
	mock.Mock
}

func (m *ScriptCache) GetCurrent(ctx context.Context, scriptID uuid.UUID) (int, json.RawMessage, error) {
	args := m.Called(ctx, scriptID)
	content, _ := args.Get(1).(json.RawMessage)
	return args.Int(0), content, args.Error(2)
}
func (m *ScriptCache) Set(ctx context.Context, scriptID uuid.UUID, version int, content json.RawMessage) error {
	args := m.Called(ctx, scriptID, version, content)
	return args.Error(0)
}
func (m *ScriptCache) Invalidate(ctx context.Context, scriptID uuid.UUID, versions ...int) error {
	args := m.Called(ctx, scriptID, versions)
	return args.Error(0)
}

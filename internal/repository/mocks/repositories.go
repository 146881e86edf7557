package mocks

import (
	"context"
	"encoding/json"

	"tinypot-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock ScriptRepository
type ScriptRepository struct {
	mock.Mock
}

func (m *ScriptRepository) Create(ctx context.Context, script *models.Script) error {
	args := m.Called(ctx, script)
	return args.Error(0)
}
func (m *ScriptRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Script, error) {
	args := m.Called(ctx, id)
	script, _ := args.Get(0).(*models.Script)
	return script, args.Error(1)
}
func (m *ScriptRepository) UpdateContent(ctx context.Context, id uuid.UUID, content json.RawMessage) (*models.Script, error) {
	args := m.Called(ctx, id, content)
	script, _ := args.Get(0).(*models.Script)
	return script, args.Error(1)
}
func (m *ScriptRepository) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]*models.Script, error) {
	args := m.Called(ctx, authorID)
	scripts, _ := args.Get(0).([]*models.Script)
	return scripts, args.Error(1)
}
func (m *ScriptRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock PlaythroughRepository
type PlaythroughRepository struct {
	mock.Mock
}

func (m *PlaythroughRepository) Create(ctx context.Context, record *models.PlaythroughRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}
func (m *PlaythroughRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PlaythroughRecord, error) {
	args := m.Called(ctx, id)
	record, _ := args.Get(0).(*models.PlaythroughRecord)
	return record, args.Error(1)
}
func (m *PlaythroughRepository) Update(ctx context.Context, record *models.PlaythroughRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}
func (m *PlaythroughRepository) ListActiveByScript(ctx context.Context, scriptID uuid.UUID) ([]*models.PlaythroughRecord, error) {
	args := m.Called(ctx, scriptID)
	records, _ := args.Get(0).([]*models.PlaythroughRecord)
	return records, args.Error(1)
}
func (m *PlaythroughRepository) ListByPlayer(ctx context.Context, playerID uuid.UUID, scriptID *uuid.UUID) ([]*models.PlaythroughRecord, error) {
	args := m.Called(ctx, playerID, scriptID)
	records, _ := args.Get(0).([]*models.PlaythroughRecord)
	return records, args.Error(1)
}
func (m *PlaythroughRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

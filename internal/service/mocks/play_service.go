package mocks

import (
	"context"
	"encoding/json"

	"tinypot-server/internal/messaging"
	"tinypot-server/internal/models"
	"tinypot-server/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock PlayService
type PlayService struct {
	mock.Mock
}

func (m *PlayService) StartPlaythrough(ctx context.Context, playerID, scriptID uuid.UUID) (*service.PlaythroughView, error) {
	args := m.Called(ctx, playerID, scriptID)
	view, _ := args.Get(0).(*service.PlaythroughView)
	return view, args.Error(1)
}
func (m *PlayService) GetPlaythrough(ctx context.Context, playerID, playthroughID uuid.UUID) (*service.PlaythroughView, error) {
	args := m.Called(ctx, playerID, playthroughID)
	view, _ := args.Get(0).(*service.PlaythroughView)
	return view, args.Error(1)
}
func (m *PlayService) ListPlaythroughs(ctx context.Context, playerID uuid.UUID, scriptID *uuid.UUID) ([]*models.PlaythroughRecord, error) {
	args := m.Called(ctx, playerID, scriptID)
	records, _ := args.Get(0).([]*models.PlaythroughRecord)
	return records, args.Error(1)
}
func (m *PlayService) MakeChoice(ctx context.Context, playerID, playthroughID uuid.UUID, choiceIndex int) (*service.PlaythroughView, error) {
	args := m.Called(ctx, playerID, playthroughID, choiceIndex)
	view, _ := args.Get(0).(*service.PlaythroughView)
	return view, args.Error(1)
}
func (m *PlayService) SubmitText(ctx context.Context, playerID, playthroughID uuid.UUID, input string) (*service.TextTurnView, error) {
	args := m.Called(ctx, playerID, playthroughID, input)
	view, _ := args.Get(0).(*service.TextTurnView)
	return view, args.Error(1)
}
func (m *PlayService) DeletePlaythrough(ctx context.Context, playerID, playthroughID uuid.UUID) error {
	args := m.Called(ctx, playerID, playthroughID)
	return args.Error(0)
}
func (m *PlayService) CreateScript(ctx context.Context, script *models.Script) error {
	args := m.Called(ctx, script)
	return args.Error(0)
}
func (m *PlayService) UpdateScriptContent(ctx context.Context, scriptID uuid.UUID, content json.RawMessage) (*models.Script, error) {
	args := m.Called(ctx, scriptID, content)
	script, _ := args.Get(0).(*models.Script)
	return script, args.Error(1)
}
func (m *PlayService) RefreshScriptSessions(ctx context.Context, scriptID uuid.UUID) ([]messaging.RefreshedSession, error) {
	args := m.Called(ctx, scriptID)
	sessions, _ := args.Get(0).([]messaging.RefreshedSession)
	return sessions, args.Error(1)
}

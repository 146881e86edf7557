package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tinypot-server/internal/engine"
	"tinypot-server/internal/messaging"
	messagingMocks "tinypot-server/internal/messaging/mocks"
	"tinypot-server/internal/models"
	repositoryMocks "tinypot-server/internal/repository/mocks"
	"tinypot-server/internal/service"
	serviceMocks "tinypot-server/internal/service/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// campScript pauses at a two-option menu after two narrative lines.
// Entry 3 is the first option of the run.
const campScript = `[
	{"kind": "narrative", "text": "You wake up."},
	{"kind": "scene", "label": "camp"},
	{"kind": "narrative", "text": "The fire is low."},
	{"kind": "option", "text": "feed the fire", "then": [
		{"kind": "narrative", "text": "The flames rise."},
		{"kind": "jump", "target": "END"}
	]},
	{"kind": "option", "text": "look around"}
]`

type playFixture struct {
	scriptRepo *repositoryMocks.ScriptRepository
	playRepo   *repositoryMocks.PlaythroughRepository
	cache      *serviceMocks.ScriptCache
	publisher  *messagingMocks.ScriptUpdatePublisher
	svc        service.PlayService
}

func newPlayFixture() *playFixture {
	f := &playFixture{
		scriptRepo: new(repositoryMocks.ScriptRepository),
		playRepo:   new(repositoryMocks.PlaythroughRepository),
		cache:      new(serviceMocks.ScriptCache),
		publisher:  new(messagingMocks.ScriptUpdatePublisher),
	}
	f.svc = service.NewPlayService(f.scriptRepo, f.playRepo, f.cache, f.publisher, zap.NewNop())
	return f
}

func (f *playFixture) assertExpectations(t *testing.T) {
	t.Helper()
	f.scriptRepo.AssertExpectations(t)
	f.playRepo.AssertExpectations(t)
	f.cache.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func mustHistoryJSON(t *testing.T, entries []engine.HistoryEntry) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	return data
}

func campRecord(t *testing.T, playerID, scriptID uuid.UUID) *models.PlaythroughRecord {
	t.Helper()
	return &models.PlaythroughRecord{
		ID:            uuid.New(),
		PlayerID:      playerID,
		ScriptID:      scriptID,
		ScriptVersion: 1,
		Position:      3,
		History: mustHistoryJSON(t, []engine.HistoryEntry{
			{Kind: engine.HistoryNarrative, Text: "You wake up."},
			{Kind: engine.HistoryNarrative, Text: "The fire is low."},
		}),
		Status:         models.PlaythroughStatusPlaying,
		StartedAt:      time.Now().Add(-time.Hour),
		LastActivityAt: time.Now().Add(-time.Minute),
	}
}

func TestStartPlaythrough(t *testing.T) {
	ctx := context.Background()
	playerID := uuid.New()
	scriptID := uuid.New()

	t.Run("Cache miss falls through to the database", func(t *testing.T) {
		f := newPlayFixture()
		content := json.RawMessage(campScript)

		f.cache.On("GetCurrent", ctx, scriptID).Return(0, json.RawMessage(nil), nil).Once()
		f.scriptRepo.On("GetByID", ctx, scriptID).
			Return(&models.Script{ID: scriptID, Version: 3, Content: content}, nil).Once()
		f.cache.On("Set", ctx, scriptID, 3, content).Return(nil).Once()
		f.playRepo.On("Create", ctx, mock.MatchedBy(func(record *models.PlaythroughRecord) bool {
			assert.Equal(t, playerID, record.PlayerID)
			assert.Equal(t, scriptID, record.ScriptID)
			assert.Equal(t, 3, record.ScriptVersion)
			assert.Equal(t, 3, record.Position)
			assert.Equal(t, models.PlaythroughStatusPlaying, record.Status)
			return true
		})).Return(nil).Once()

		got, err := f.svc.StartPlaythrough(ctx, playerID, scriptID)

		require.NoError(t, err)
		assert.False(t, got.State.IsEnded)
		assert.Equal(t, 3, got.State.CurrentLineIdx)
		assert.Len(t, got.State.CurrentOptions, 2)
		assert.Equal(t, []string{"You wake up.", "The fire is low."}, got.State.NarrativeLines())
		f.assertExpectations(t)
	})

	t.Run("Unknown script", func(t *testing.T) {
		f := newPlayFixture()
		f.cache.On("GetCurrent", ctx, scriptID).Return(0, json.RawMessage(nil), nil).Once()
		f.scriptRepo.On("GetByID", ctx, scriptID).Return(nil, models.ErrNotFound).Once()

		got, err := f.svc.StartPlaythrough(ctx, playerID, scriptID)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, models.ErrNotFound)
		f.assertExpectations(t)
	})
}

func TestMakeChoice(t *testing.T) {
	ctx := context.Background()
	playerID := uuid.New()
	scriptID := uuid.New()
	content := json.RawMessage(campScript)

	t.Run("Choice with a jump ends the session", func(t *testing.T) {
		f := newPlayFixture()
		record := campRecord(t, playerID, scriptID)

		f.playRepo.On("GetByID", ctx, record.ID).Return(record, nil).Once()
		f.cache.On("GetCurrent", ctx, scriptID).Return(1, content, nil).Once()
		f.playRepo.On("Update", ctx, mock.MatchedBy(func(updated *models.PlaythroughRecord) bool {
			assert.Equal(t, models.PlaythroughStatusEnded, updated.Status)
			assert.NotNil(t, updated.CompletedAt)
			return true
		})).Return(nil).Once()

		got, err := f.svc.MakeChoice(ctx, playerID, record.ID, 0)

		require.NoError(t, err)
		assert.True(t, got.State.IsEnded)
		assert.Equal(t, []string{"You wake up.", "The fire is low.", "The flames rise."},
			got.State.NarrativeLines())
		f.assertExpectations(t)
	})

	t.Run("Choice without a jump re-offers the same menu", func(t *testing.T) {
		f := newPlayFixture()
		record := campRecord(t, playerID, scriptID)

		f.playRepo.On("GetByID", ctx, record.ID).Return(record, nil).Once()
		f.cache.On("GetCurrent", ctx, scriptID).Return(1, content, nil).Once()
		f.playRepo.On("Update", ctx, mock.MatchedBy(func(updated *models.PlaythroughRecord) bool {
			assert.Equal(t, 3, updated.Position)
			assert.Equal(t, models.PlaythroughStatusPlaying, updated.Status)
			return true
		})).Return(nil).Once()

		got, err := f.svc.MakeChoice(ctx, playerID, record.ID, 1)

		require.NoError(t, err)
		assert.False(t, got.State.IsEnded)
		assert.Equal(t, 3, got.State.CurrentLineIdx)
		assert.Len(t, got.State.CurrentOptions, 2)
		f.assertExpectations(t)
	})

	t.Run("Choice index out of range", func(t *testing.T) {
		f := newPlayFixture()
		record := campRecord(t, playerID, scriptID)

		f.playRepo.On("GetByID", ctx, record.ID).Return(record, nil).Once()
		f.cache.On("GetCurrent", ctx, scriptID).Return(1, content, nil).Once()

		got, err := f.svc.MakeChoice(ctx, playerID, record.ID, 5)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, service.ErrInvalidChoiceIndex)
		f.assertExpectations(t)
	})

	t.Run("Finished session rejects further choices", func(t *testing.T) {
		f := newPlayFixture()
		record := campRecord(t, playerID, scriptID)
		record.Status = models.PlaythroughStatusEnded
		record.Position = 5

		f.playRepo.On("GetByID", ctx, record.ID).Return(record, nil).Once()
		f.cache.On("GetCurrent", ctx, scriptID).Return(1, content, nil).Once()

		got, err := f.svc.MakeChoice(ctx, playerID, record.ID, 0)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, engine.ErrSessionEnded)
		f.assertExpectations(t)
	})

	t.Run("Foreign playthrough is forbidden", func(t *testing.T) {
		f := newPlayFixture()
		record := campRecord(t, uuid.New(), scriptID)

		f.playRepo.On("GetByID", ctx, record.ID).Return(record, nil).Once()

		got, err := f.svc.MakeChoice(ctx, playerID, record.ID, 0)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, models.ErrForbidden)
		f.assertExpectations(t)
	})
}

func TestSubmitText(t *testing.T) {
	ctx := context.Background()
	playerID := uuid.New()
	scriptID := uuid.New()
	content := json.RawMessage(campScript)

	t.Run("Matching input advances the session", func(t *testing.T) {
		f := newPlayFixture()
		record := campRecord(t, playerID, scriptID)

		f.playRepo.On("GetByID", ctx, record.ID).Return(record, nil).Once()
		f.cache.On("GetCurrent", ctx, scriptID).Return(1, content, nil).Once()
		f.playRepo.On("Update", ctx, mock.Anything).Return(nil).Once()

		got, err := f.svc.SubmitText(ctx, playerID, record.ID, "please feed it")

		require.NoError(t, err)
		assert.True(t, got.Matched)
		assert.Equal(t, "feed the fire", got.OptionText)
		assert.True(t, got.Playthrough.State.IsEnded)
		f.assertExpectations(t)
	})

	t.Run("Unmatched input leaves the session in place", func(t *testing.T) {
		f := newPlayFixture()
		record := campRecord(t, playerID, scriptID)

		f.playRepo.On("GetByID", ctx, record.ID).Return(record, nil).Once()
		f.cache.On("GetCurrent", ctx, scriptID).Return(1, content, nil).Once()

		got, err := f.svc.SubmitText(ctx, playerID, record.ID, "dance wildly")

		require.NoError(t, err)
		assert.False(t, got.Matched)
		assert.Empty(t, got.OptionText)
		assert.Equal(t, 3, got.Playthrough.State.CurrentLineIdx)
		f.playRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})
}

func TestUpdateScriptContent(t *testing.T) {
	ctx := context.Background()
	scriptID := uuid.New()
	content := json.RawMessage(campScript)

	t.Run("Successful update invalidates cache and publishes", func(t *testing.T) {
		f := newPlayFixture()
		updated := &models.Script{ID: scriptID, Version: 2, Content: content}

		f.scriptRepo.On("UpdateContent", ctx, scriptID, content).Return(updated, nil).Once()
		f.cache.On("Invalidate", ctx, scriptID, []int{1, 2}).Return(nil).Once()
		f.publisher.On("PublishScriptUpdate", ctx,
			messaging.ScriptUpdatePayload{ScriptID: scriptID, Version: 2}).Return(nil).Once()

		got, err := f.svc.UpdateScriptContent(ctx, scriptID, content)

		require.NoError(t, err)
		assert.Equal(t, 2, got.Version)
		f.assertExpectations(t)
	})

	t.Run("Invalid content is rejected before any write", func(t *testing.T) {
		f := newPlayFixture()

		got, err := f.svc.UpdateScriptContent(ctx, scriptID, json.RawMessage(`[{"kind": "scene"}]`))

		assert.Nil(t, got)
		assert.ErrorIs(t, err, service.ErrInvalidScript)
		f.scriptRepo.AssertNotCalled(t, "UpdateContent", mock.Anything, mock.Anything, mock.Anything)
		f.publisher.AssertNotCalled(t, "PublishScriptUpdate", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("Publish failure does not fail the update", func(t *testing.T) {
		f := newPlayFixture()
		updated := &models.Script{ID: scriptID, Version: 2, Content: content}

		f.scriptRepo.On("UpdateContent", ctx, scriptID, content).Return(updated, nil).Once()
		f.cache.On("Invalidate", ctx, scriptID, []int{1, 2}).Return(nil).Once()
		f.publisher.On("PublishScriptUpdate", ctx, mock.Anything).
			Return(errors.New("broker down")).Once()

		got, err := f.svc.UpdateScriptContent(ctx, scriptID, content)

		require.NoError(t, err)
		assert.Equal(t, 2, got.Version)
		f.assertExpectations(t)
	})
}

func TestRefreshScriptSessions(t *testing.T) {
	ctx := context.Background()
	scriptID := uuid.New()
	content := json.RawMessage(campScript)

	t.Run("Live sessions are resynced and persisted", func(t *testing.T) {
		f := newPlayFixture()
		first := campRecord(t, uuid.New(), scriptID)
		// A session whose saved position no longer exists in the edited
		// script anchors backward onto the nearest option run.
		second := campRecord(t, uuid.New(), scriptID)
		second.Position = 42

		f.cache.On("GetCurrent", ctx, scriptID).Return(2, content, nil).Once()
		f.playRepo.On("ListActiveByScript", ctx, scriptID).
			Return([]*models.PlaythroughRecord{first, second}, nil).Once()
		f.playRepo.On("Update", ctx, mock.MatchedBy(func(record *models.PlaythroughRecord) bool {
			assert.Equal(t, 2, record.ScriptVersion)
			assert.Equal(t, 3, record.Position)
			return true
		})).Return(nil).Twice()

		got, err := f.svc.RefreshScriptSessions(ctx, scriptID)

		require.NoError(t, err)
		require.Len(t, got, 2)
		// Both sessions re-run from the scene start with scene-local
		// history; cross-scene history is dropped.
		assert.Equal(t, []string{"The fire is low."}, got[0].State.NarrativeLines())
		assert.Equal(t, []string{"The fire is low."}, got[1].State.NarrativeLines())
		assert.Equal(t, first.PlayerID, got[0].PlayerID)
		f.assertExpectations(t)
	})

	t.Run("Deleted script yields no sessions", func(t *testing.T) {
		f := newPlayFixture()
		f.cache.On("GetCurrent", ctx, scriptID).Return(0, json.RawMessage(nil), nil).Once()
		f.scriptRepo.On("GetByID", ctx, scriptID).Return(nil, models.ErrNotFound).Once()

		got, err := f.svc.RefreshScriptSessions(ctx, scriptID)

		require.NoError(t, err)
		assert.Empty(t, got)
		f.assertExpectations(t)
	})
}

func TestDeletePlaythrough(t *testing.T) {
	ctx := context.Background()
	playerID := uuid.New()
	scriptID := uuid.New()

	t.Run("Owner can delete", func(t *testing.T) {
		f := newPlayFixture()
		record := campRecord(t, playerID, scriptID)

		f.playRepo.On("GetByID", ctx, record.ID).Return(record, nil).Once()
		f.playRepo.On("Delete", ctx, record.ID).Return(nil).Once()

		err := f.svc.DeletePlaythrough(ctx, playerID, record.ID)

		assert.NoError(t, err)
		f.assertExpectations(t)
	})

	t.Run("Non-owner cannot delete", func(t *testing.T) {
		f := newPlayFixture()
		record := campRecord(t, uuid.New(), scriptID)

		f.playRepo.On("GetByID", ctx, record.ID).Return(record, nil).Once()

		err := f.svc.DeletePlaythrough(ctx, playerID, record.ID)

		assert.ErrorIs(t, err, models.ErrForbidden)
		f.playRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})
}

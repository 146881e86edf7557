package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tinypot-server/internal/engine"
	"tinypot-server/internal/messaging"
	"tinypot-server/internal/models"
	"tinypot-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScriptCache abstracts the Redis-backed script content cache so the
// service can be tested without a live Redis.
type ScriptCache interface {
	GetCurrent(ctx context.Context, scriptID uuid.UUID) (int, json.RawMessage, error)
	Set(ctx context.Context, scriptID uuid.UUID, version int, content json.RawMessage) error
	Invalidate(ctx context.Context, scriptID uuid.UUID, versions ...int) error
}

// PlaythroughView is the API-facing shape of a play session: record
// metadata plus the live engine state.
type PlaythroughView struct {
	ID             uuid.UUID        `json:"id"`
	ScriptID       uuid.UUID        `json:"scriptId"`
	ScriptVersion  int              `json:"scriptVersion"`
	Status         string           `json:"status"`
	State          engine.GameState `json:"state"`
	StartedAt      time.Time        `json:"startedAt"`
	LastActivityAt time.Time        `json:"lastActivityAt"`
}

// TextTurnView is the result of a free-text turn against a playthrough.
// When Matched is false the session did not advance and OptionText is
// empty.
type TextTurnView struct {
	Matched     bool             `json:"matched"`
	OptionText  string           `json:"optionText,omitempty"`
	Playthrough *PlaythroughView `json:"playthrough"`
}

// PlayService defines the interface for running play sessions.
type PlayService interface {
	// StartPlaythrough begins a new session at the top of a script.
	StartPlaythrough(ctx context.Context, playerID, scriptID uuid.UUID) (*PlaythroughView, error)

	// GetPlaythrough returns a session, replaying its saved position
	// against the current script when the saved pause point is stale.
	GetPlaythrough(ctx context.Context, playerID, playthroughID uuid.UUID) (*PlaythroughView, error)

	// ListPlaythroughs lists a player's sessions, optionally narrowed to
	// one script.
	ListPlaythroughs(ctx context.Context, playerID uuid.UUID, scriptID *uuid.UUID) ([]*models.PlaythroughRecord, error)

	// MakeChoice advances a session by selecting one of the offered
	// options by index.
	MakeChoice(ctx context.Context, playerID, playthroughID uuid.UUID, choiceIndex int) (*PlaythroughView, error)

	// SubmitText advances a session by matching free-text input against
	// the offered options. An unmatched input leaves the session where it
	// was and reports Matched=false.
	SubmitText(ctx context.Context, playerID, playthroughID uuid.UUID, input string) (*TextTurnView, error)

	// DeletePlaythrough removes a player's session.
	DeletePlaythrough(ctx context.Context, playerID, playthroughID uuid.UUID) error

	// CreateScript registers a new script published by the authoring
	// service.
	CreateScript(ctx context.Context, script *models.Script) error

	// UpdateScriptContent replaces a script's content, invalidates its
	// cache entries and announces the edit to the resync consumer.
	UpdateScriptContent(ctx context.Context, scriptID uuid.UUID, content json.RawMessage) (*models.Script, error)

	// RefreshScriptSessions reconciles every live session of a script
	// with its current content and returns the refreshed states for push
	// delivery. Implements messaging.SessionRefresher.
	RefreshScriptSessions(ctx context.Context, scriptID uuid.UUID) ([]messaging.RefreshedSession, error)
}

type playServiceImpl struct {
	scriptRepo repository.ScriptRepository
	playRepo   repository.PlaythroughRepository
	cache      ScriptCache
	publisher  messaging.ScriptUpdatePublisher
	logger     *zap.Logger
}

var _ PlayService = (*playServiceImpl)(nil)
var _ messaging.SessionRefresher = (*playServiceImpl)(nil)

// NewPlayService creates the play session service.
func NewPlayService(
	scriptRepo repository.ScriptRepository,
	playRepo repository.PlaythroughRepository,
	cache ScriptCache,
	publisher messaging.ScriptUpdatePublisher,
	logger *zap.Logger,
) PlayService {
	return &playServiceImpl{
		scriptRepo: scriptRepo,
		playRepo:   playRepo,
		cache:      cache,
		publisher:  publisher,
		logger:     logger.Named("PlayService"),
	}
}

// loadEngine fetches the current script content, cache first, and builds
// an engine over it. Returns the version the engine was built from.
func (s *playServiceImpl) loadEngine(ctx context.Context, scriptID uuid.UUID) (*engine.Engine, int, error) {
	version, content, err := s.cache.GetCurrent(ctx, scriptID)
	if err == nil && content != nil {
		if eng, buildErr := s.buildEngine(content); buildErr == nil {
			return eng, version, nil
		}
		// A cached blob that no longer parses is poison; drop it and
		// fall through to the database.
		_ = s.cache.Invalidate(ctx, scriptID, version)
	}

	script, err := s.scriptRepo.GetByID(ctx, scriptID)
	if err != nil {
		return nil, 0, err
	}
	eng, err := s.buildEngine(script.Content)
	if err != nil {
		s.logger.Error("Stored script content failed to validate",
			zap.Error(err), zap.String("scriptID", scriptID.String()))
		return nil, 0, fmt.Errorf("%w: %s", ErrInvalidScript, err)
	}
	if cacheErr := s.cache.Set(ctx, scriptID, script.Version, script.Content); cacheErr != nil {
		s.logger.Warn("Failed to cache script content", zap.Error(cacheErr))
	}
	return eng, script.Version, nil
}

func (s *playServiceImpl) buildEngine(content json.RawMessage) (*engine.Engine, error) {
	schema, err := engine.ParseSchema(content)
	if err != nil {
		return nil, err
	}
	return engine.New(schema, s.logger)
}

// ownedRecord fetches a playthrough and enforces that it belongs to the
// requesting player.
func (s *playServiceImpl) ownedRecord(ctx context.Context, playerID, playthroughID uuid.UUID) (*models.PlaythroughRecord, error) {
	record, err := s.playRepo.GetByID(ctx, playthroughID)
	if err != nil {
		return nil, err
	}
	if record.PlayerID != playerID {
		s.logger.Warn("Playthrough access denied",
			zap.String("playthroughID", playthroughID.String()),
			zap.String("requesterID", playerID.String()))
		return nil, models.ErrForbidden
	}
	return record, nil
}

// decodeHistory restores the persisted history log. A record written by
// this service always decodes; a corrupt blob is treated as an empty log
// so the session can still be replayed from its position.
func (s *playServiceImpl) decodeHistory(record *models.PlaythroughRecord) []engine.HistoryEntry {
	if len(record.History) == 0 {
		return nil
	}
	var history []engine.HistoryEntry
	if err := json.Unmarshal(record.History, &history); err != nil {
		s.logger.Error("Failed to decode playthrough history, replaying without it",
			zap.Error(err), zap.String("playthroughID", record.ID.String()))
		return nil
	}
	return history
}

// persistState writes an engine state back onto a record.
func (s *playServiceImpl) persistState(ctx context.Context, record *models.PlaythroughRecord, state engine.GameState, version int) error {
	historyJSON, err := json.Marshal(state.History)
	if err != nil {
		return fmt.Errorf("failed to encode playthrough history: %w", err)
	}
	record.ScriptVersion = version
	record.Position = state.CurrentLineIdx
	record.History = historyJSON
	record.LastActivityAt = time.Now()
	if state.IsEnded {
		record.Status = models.PlaythroughStatusEnded
		if record.CompletedAt == nil {
			now := record.LastActivityAt
			record.CompletedAt = &now
		}
	} else {
		record.Status = models.PlaythroughStatusPlaying
		record.CompletedAt = nil
	}
	return s.playRepo.Update(ctx, record)
}

func view(record *models.PlaythroughRecord, state engine.GameState) *PlaythroughView {
	return &PlaythroughView{
		ID:             record.ID,
		ScriptID:       record.ScriptID,
		ScriptVersion:  record.ScriptVersion,
		Status:         string(record.Status),
		State:          state,
		StartedAt:      record.StartedAt,
		LastActivityAt: record.LastActivityAt,
	}
}

func (s *playServiceImpl) StartPlaythrough(ctx context.Context, playerID, scriptID uuid.UUID) (*PlaythroughView, error) {
	eng, version, err := s.loadEngine(ctx, scriptID)
	if err != nil {
		return nil, err
	}

	state := eng.Initial()
	historyJSON, err := json.Marshal(state.History)
	if err != nil {
		return nil, fmt.Errorf("failed to encode playthrough history: %w", err)
	}

	now := time.Now()
	record := &models.PlaythroughRecord{
		ID:             uuid.New(),
		PlayerID:       playerID,
		ScriptID:       scriptID,
		ScriptVersion:  version,
		Position:       state.CurrentLineIdx,
		History:        historyJSON,
		Status:         models.PlaythroughStatusPlaying,
		StartedAt:      now,
		LastActivityAt: now,
	}
	if state.IsEnded {
		record.Status = models.PlaythroughStatusEnded
		record.CompletedAt = &now
	}
	if err := s.playRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("Playthrough started",
		zap.String("playthroughID", record.ID.String()),
		zap.String("playerID", playerID.String()),
		zap.String("scriptID", scriptID.String()),
		zap.Int("scriptVersion", version))
	return view(record, state), nil
}

func (s *playServiceImpl) GetPlaythrough(ctx context.Context, playerID, playthroughID uuid.UUID) (*PlaythroughView, error) {
	record, err := s.ownedRecord(ctx, playerID, playthroughID)
	if err != nil {
		return nil, err
	}
	eng, version, err := s.loadEngine(ctx, record.ScriptID)
	if err != nil {
		return nil, err
	}

	history := s.decodeHistory(record)
	var state engine.GameState
	if record.Status == models.PlaythroughStatusEnded && record.ScriptVersion == version {
		// A finished session stays finished until the script changes.
		state = engine.GameState{
			History:        history,
			CurrentLineIdx: record.Position,
			IsEnded:        true,
		}
	} else if record.ScriptVersion != version {
		// The script changed underneath this session and the resync
		// consumer has not caught up yet; reconcile now.
		state = eng.Refresh(engine.GameState{
			History:        history,
			CurrentLineIdx: record.Position,
			IsEnded:        record.Status == models.PlaythroughStatusEnded,
		})
	} else {
		state = eng.Resume(engine.Playthrough{Position: record.Position, History: history})
	}

	if state.CurrentLineIdx != record.Position || record.ScriptVersion != version {
		if err := s.persistState(ctx, record, state, version); err != nil {
			return nil, err
		}
	}
	return view(record, state), nil
}

func (s *playServiceImpl) ListPlaythroughs(ctx context.Context, playerID uuid.UUID, scriptID *uuid.UUID) ([]*models.PlaythroughRecord, error) {
	return s.playRepo.ListByPlayer(ctx, playerID, scriptID)
}

// resumeFor rebuilds the live state of a record for an advance operation.
func (s *playServiceImpl) resumeFor(ctx context.Context, record *models.PlaythroughRecord) (*engine.Engine, engine.GameState, int, error) {
	eng, version, err := s.loadEngine(ctx, record.ScriptID)
	if err != nil {
		return nil, engine.GameState{}, 0, err
	}
	history := s.decodeHistory(record)
	if record.Status == models.PlaythroughStatusEnded {
		return eng, engine.GameState{
			History:        history,
			CurrentLineIdx: record.Position,
			IsEnded:        true,
		}, version, nil
	}
	if record.ScriptVersion != version {
		return eng, eng.Refresh(engine.GameState{
			History:        history,
			CurrentLineIdx: record.Position,
		}), version, nil
	}
	return eng, eng.Resume(engine.Playthrough{Position: record.Position, History: history}), version, nil
}

func (s *playServiceImpl) MakeChoice(ctx context.Context, playerID, playthroughID uuid.UUID, choiceIndex int) (*PlaythroughView, error) {
	record, err := s.ownedRecord(ctx, playerID, playthroughID)
	if err != nil {
		return nil, err
	}
	eng, state, version, err := s.resumeFor(ctx, record)
	if err != nil {
		return nil, err
	}
	if choiceIndex < 0 || choiceIndex >= len(state.CurrentOptions) {
		if state.IsEnded {
			return nil, engine.ErrSessionEnded
		}
		return nil, ErrInvalidChoiceIndex
	}

	next, err := eng.Select(state, state.CurrentOptions[choiceIndex])
	if err != nil {
		return nil, err
	}
	if err := s.persistState(ctx, record, next, version); err != nil {
		return nil, err
	}

	s.logger.Debug("Choice applied",
		zap.String("playthroughID", record.ID.String()),
		zap.Int("choiceIndex", choiceIndex),
		zap.Bool("ended", next.IsEnded))
	return view(record, next), nil
}

func (s *playServiceImpl) SubmitText(ctx context.Context, playerID, playthroughID uuid.UUID, input string) (*TextTurnView, error) {
	record, err := s.ownedRecord(ctx, playerID, playthroughID)
	if err != nil {
		return nil, err
	}
	eng, state, version, err := s.resumeFor(ctx, record)
	if err != nil {
		return nil, err
	}
	if state.IsEnded {
		return nil, engine.ErrSessionEnded
	}

	chosen := engine.Match(input, state.CurrentOptions)
	if chosen == nil {
		s.logger.Debug("Free-text input did not match any option",
			zap.String("playthroughID", record.ID.String()))
		return &TextTurnView{Matched: false, Playthrough: view(record, state)}, nil
	}

	next, err := eng.Select(state, *chosen)
	if err != nil {
		return nil, err
	}
	if err := s.persistState(ctx, record, next, version); err != nil {
		return nil, err
	}
	return &TextTurnView{
		Matched:     true,
		OptionText:  chosen.Text,
		Playthrough: view(record, next),
	}, nil
}

func (s *playServiceImpl) DeletePlaythrough(ctx context.Context, playerID, playthroughID uuid.UUID) error {
	if _, err := s.ownedRecord(ctx, playerID, playthroughID); err != nil {
		return err
	}
	return s.playRepo.Delete(ctx, playthroughID)
}

func (s *playServiceImpl) CreateScript(ctx context.Context, script *models.Script) error {
	if _, err := s.buildEngine(script.Content); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidScript, err)
	}
	if script.ID == uuid.Nil {
		script.ID = uuid.New()
	}
	if err := s.scriptRepo.Create(ctx, script); err != nil {
		return err
	}
	s.logger.Info("Script registered",
		zap.String("scriptID", script.ID.String()),
		zap.String("authorID", script.AuthorID.String()))
	return nil
}

func (s *playServiceImpl) UpdateScriptContent(ctx context.Context, scriptID uuid.UUID, content json.RawMessage) (*models.Script, error) {
	if _, err := s.buildEngine(content); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidScript, err)
	}

	script, err := s.scriptRepo.UpdateContent(ctx, scriptID, content)
	if err != nil {
		return nil, err
	}

	// Stale readers must miss, not serve the old version.
	if err := s.cache.Invalidate(ctx, scriptID, script.Version-1, script.Version); err != nil {
		s.logger.Warn("Failed to invalidate script cache after update", zap.Error(err))
	}

	payload := messaging.ScriptUpdatePayload{ScriptID: scriptID, Version: script.Version}
	if err := s.publisher.PublishScriptUpdate(ctx, payload); err != nil {
		// The edit is committed; live sessions will still reconcile
		// lazily on their next request.
		s.logger.Error("Failed to announce script update", zap.Error(err))
	}

	s.logger.Info("Script content updated",
		zap.String("scriptID", scriptID.String()),
		zap.Int("version", script.Version))
	return script, nil
}

func (s *playServiceImpl) RefreshScriptSessions(ctx context.Context, scriptID uuid.UUID) ([]messaging.RefreshedSession, error) {
	eng, version, err := s.loadEngine(ctx, scriptID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// The script was deleted between the event and now; there
			// is nothing to resync.
			return nil, nil
		}
		return nil, err
	}

	records, err := s.playRepo.ListActiveByScript(ctx, scriptID)
	if err != nil {
		return nil, err
	}

	refreshed := make([]messaging.RefreshedSession, 0, len(records))
	for _, record := range records {
		state := eng.Refresh(engine.GameState{
			History:        s.decodeHistory(record),
			CurrentLineIdx: record.Position,
		})
		if err := s.persistState(ctx, record, state, version); err != nil {
			s.logger.Error("Failed to persist refreshed session",
				zap.Error(err), zap.String("playthroughID", record.ID.String()))
			continue
		}
		refreshed = append(refreshed, messaging.RefreshedSession{
			PlaythroughID: record.ID,
			PlayerID:      record.PlayerID,
			State:         state,
		})
	}

	s.logger.Info("Script sessions refreshed",
		zap.String("scriptID", scriptID.String()),
		zap.Int("version", version),
		zap.Int("sessions", len(refreshed)))
	return refreshed, nil
}

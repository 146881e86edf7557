package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tinypot-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	playthroughFields = `id, player_id, script_id, script_version, position, history, status, started_at, last_activity_at, completed_at`

	insertPlaythroughQuery = `
        INSERT INTO playthroughs
            (id, player_id, script_id, script_version, position, history, status, started_at, last_activity_at, completed_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	updatePlaythroughQuery = `
        UPDATE playthroughs SET
            script_version = $2,
            position = $3,
            history = $4,
            status = $5,
            last_activity_at = $6,
            completed_at = $7
            -- player_id, script_id and started_at never change
        WHERE id = $1
        RETURNING id
    `
	getPlaythroughByIDQuery = `
        SELECT ` + playthroughFields + `
        FROM playthroughs
        WHERE id = $1
    `
	listActivePlaythroughsByScriptQuery = `
        SELECT ` + playthroughFields + `
        FROM playthroughs
        WHERE script_id = $1 AND status = 'playing'
        ORDER BY last_activity_at DESC
    `
	listPlaythroughsByPlayerQuery = `
        SELECT ` + playthroughFields + `
        FROM playthroughs
        WHERE player_id = $1
        ORDER BY last_activity_at DESC
    `
	listPlaythroughsByPlayerAndScriptQuery = `
        SELECT ` + playthroughFields + `
        FROM playthroughs
        WHERE player_id = $1 AND script_id = $2
        ORDER BY last_activity_at DESC
    `
	deletePlaythroughQuery = `DELETE FROM playthroughs WHERE id = $1`
)

// Compile-time check
var _ PlaythroughRepository = (*pgPlaythroughRepository)(nil)

type pgPlaythroughRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgPlaythroughRepository creates a PostgreSQL-backed PlaythroughRepository.
func NewPgPlaythroughRepository(pool *pgxpool.Pool, logger *zap.Logger) PlaythroughRepository {
	return &pgPlaythroughRepository{
		pool:   pool,
		logger: logger.Named("PgPlaythroughRepo"),
	}
}

func (r *pgPlaythroughRepository) Create(ctx context.Context, record *models.PlaythroughRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := time.Now().UTC()
	if record.StartedAt.IsZero() {
		record.StartedAt = now
	}
	record.LastActivityAt = now
	if record.Status == "" {
		record.Status = models.PlaythroughStatusPlaying
	}

	_, err := r.pool.Exec(ctx, insertPlaythroughQuery,
		record.ID, record.PlayerID, record.ScriptID, record.ScriptVersion,
		record.Position, record.History, record.Status,
		record.StartedAt, record.LastActivityAt, record.CompletedAt)
	if err != nil {
		r.logger.Error("Failed to insert playthrough", zap.Error(err), zap.String("playthroughID", record.ID.String()))
		return fmt.Errorf("failed to insert playthrough: %w", err)
	}
	r.logger.Debug("Playthrough created",
		zap.String("playthroughID", record.ID.String()),
		zap.String("scriptID", record.ScriptID.String()))
	return nil
}

func (r *pgPlaythroughRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PlaythroughRecord, error) {
	var record models.PlaythroughRecord
	err := pgxscan.Get(ctx, r.pool, &record, getPlaythroughByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get playthrough", zap.Error(err), zap.String("playthroughID", id.String()))
		return nil, fmt.Errorf("failed to get playthrough %s: %w", id, err)
	}
	return &record, nil
}

func (r *pgPlaythroughRepository) Update(ctx context.Context, record *models.PlaythroughRecord) error {
	record.LastActivityAt = time.Now().UTC()

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, updatePlaythroughQuery,
		record.ID, record.ScriptVersion, record.Position, record.History,
		record.Status, record.LastActivityAt, record.CompletedAt).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrNotFound
		}
		r.logger.Error("Failed to update playthrough", zap.Error(err), zap.String("playthroughID", record.ID.String()))
		return fmt.Errorf("failed to update playthrough %s: %w", record.ID, err)
	}
	return nil
}

func (r *pgPlaythroughRepository) ListActiveByScript(ctx context.Context, scriptID uuid.UUID) ([]*models.PlaythroughRecord, error) {
	var records []*models.PlaythroughRecord
	err := pgxscan.Select(ctx, r.pool, &records, listActivePlaythroughsByScriptQuery, scriptID)
	if err != nil {
		r.logger.Error("Failed to list active playthroughs", zap.Error(err), zap.String("scriptID", scriptID.String()))
		return nil, fmt.Errorf("failed to list active playthroughs for script %s: %w", scriptID, err)
	}
	return records, nil
}

func (r *pgPlaythroughRepository) ListByPlayer(ctx context.Context, playerID uuid.UUID, scriptID *uuid.UUID) ([]*models.PlaythroughRecord, error) {
	var records []*models.PlaythroughRecord
	var err error
	if scriptID != nil {
		err = pgxscan.Select(ctx, r.pool, &records, listPlaythroughsByPlayerAndScriptQuery, playerID, *scriptID)
	} else {
		err = pgxscan.Select(ctx, r.pool, &records, listPlaythroughsByPlayerQuery, playerID)
	}
	if err != nil {
		r.logger.Error("Failed to list playthroughs by player", zap.Error(err), zap.String("playerID", playerID.String()))
		return nil, fmt.Errorf("failed to list playthroughs for player %s: %w", playerID, err)
	}
	return records, nil
}

func (r *pgPlaythroughRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, deletePlaythroughQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete playthrough", zap.Error(err), zap.String("playthroughID", id.String()))
		return fmt.Errorf("failed to delete playthrough %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

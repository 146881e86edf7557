package repository

import (
	"context"
	"encoding/json"
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
	scriptFields = `id, author_id, title, content, version, created_at, updated_at`

	insertScriptQuery = `
        INSERT INTO scripts (id, author_id, title, content, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	getScriptByIDQuery = `
        SELECT ` + scriptFields + `
        FROM scripts
        WHERE id = $1
    `
	updateScriptContentQuery = `
        UPDATE scripts SET
            content = $2,
            version = version + 1,
            updated_at = $3
        WHERE id = $1
        RETURNING ` + scriptFields + `
    `
	listScriptsByAuthorQuery = `
        SELECT ` + scriptFields + `
        FROM scripts
        WHERE author_id = $1
        ORDER BY updated_at DESC
    `
	deleteScriptQuery = `DELETE FROM scripts WHERE id = $1`
)

// Compile-time check
var _ ScriptRepository = (*pgScriptRepository)(nil)

type pgScriptRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgScriptRepository creates a PostgreSQL-backed ScriptRepository.
func NewPgScriptRepository(pool *pgxpool.Pool, logger *zap.Logger) ScriptRepository {
	return &pgScriptRepository{
		pool:   pool,
		logger: logger.Named("PgScriptRepo"),
	}
}

func (r *pgScriptRepository) Create(ctx context.Context, script *models.Script) error {
	if script.ID == uuid.Nil {
		script.ID = uuid.New()
	}
	now := time.Now().UTC()
	if script.CreatedAt.IsZero() {
		script.CreatedAt = now
	}
	script.UpdatedAt = now
	if script.Version == 0 {
		script.Version = 1
	}

	_, err := r.pool.Exec(ctx, insertScriptQuery,
		script.ID, script.AuthorID, script.Title, script.Content,
		script.Version, script.CreatedAt, script.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert script", zap.Error(err), zap.String("scriptID", script.ID.String()))
		return fmt.Errorf("failed to insert script: %w", err)
	}
	r.logger.Debug("Script created", zap.String("scriptID", script.ID.String()))
	return nil
}

func (r *pgScriptRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Script, error) {
	var script models.Script
	err := r.pool.QueryRow(ctx, getScriptByIDQuery, id).Scan(
		&script.ID, &script.AuthorID, &script.Title, &script.Content,
		&script.Version, &script.CreatedAt, &script.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get script", zap.Error(err), zap.String("scriptID", id.String()))
		return nil, fmt.Errorf("failed to get script %s: %w", id, err)
	}
	return &script, nil
}

func (r *pgScriptRepository) UpdateContent(ctx context.Context, id uuid.UUID, content json.RawMessage) (*models.Script, error) {
	var script models.Script
	err := r.pool.QueryRow(ctx, updateScriptContentQuery, id, content, time.Now().UTC()).Scan(
		&script.ID, &script.AuthorID, &script.Title, &script.Content,
		&script.Version, &script.CreatedAt, &script.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to update script content", zap.Error(err), zap.String("scriptID", id.String()))
		return nil, fmt.Errorf("failed to update script %s: %w", id, err)
	}
	r.logger.Info("Script content updated",
		zap.String("scriptID", id.String()),
		zap.Int("version", script.Version))
	return &script, nil
}

func (r *pgScriptRepository) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]*models.Script, error) {
	var scripts []*models.Script
	err := pgxscan.Select(ctx, r.pool, &scripts, listScriptsByAuthorQuery, authorID)
	if err != nil {
		r.logger.Error("Failed to list scripts by author", zap.Error(err), zap.String("authorID", authorID.String()))
		return nil, fmt.Errorf("failed to list scripts for author %s: %w", authorID, err)
	}
	return scripts, nil
}

func (r *pgScriptRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, deleteScriptQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete script", zap.Error(err), zap.String("scriptID", id.String()))
		return fmt.Errorf("failed to delete script %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

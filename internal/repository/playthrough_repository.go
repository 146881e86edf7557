package repository

import (
	"context"

	"tinypot-server/internal/models"

	"github.com/google/uuid"
)

// PlaythroughRepository defines the interface for play-session storage.
type PlaythroughRepository interface {
	// Create persists a new playthrough record.
	Create(ctx context.Context, record *models.PlaythroughRecord) error

	// GetByID retrieves a playthrough by its ID. Returns models.ErrNotFound
	// when no such record exists.
	GetByID(ctx context.Context, id uuid.UUID) (*models.PlaythroughRecord, error)

	// Update persists position, history, status and script version of an
	// existing record.
	Update(ctx context.Context, record *models.PlaythroughRecord) error

	// ListActiveByScript lists all playthroughs of a script that are still
	// playing. Used to resync live sessions after a script edit.
	ListActiveByScript(ctx context.Context, scriptID uuid.UUID) ([]*models.PlaythroughRecord, error)

	// ListByPlayer lists a player's playthroughs, most recently active
	// first. scriptID narrows the list to one script when non-nil.
	ListByPlayer(ctx context.Context, playerID uuid.UUID, scriptID *uuid.UUID) ([]*models.PlaythroughRecord, error)

	// Delete removes a playthrough by its ID.
	Delete(ctx context.Context, id uuid.UUID) error
}

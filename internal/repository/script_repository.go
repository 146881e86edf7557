package repository

import (
	"context"
	"encoding/json"

	"tinypot-server/internal/models"

	"github.com/google/uuid"
)

// ScriptRepository defines the interface for script storage.
type ScriptRepository interface {
	// Create persists a new script with its initial content.
	Create(ctx context.Context, script *models.Script) error

	// GetByID retrieves a script by its ID. Returns models.ErrNotFound when
	// no such script exists.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Script, error)

	// UpdateContent replaces a script's content and bumps its version.
	// Returns the updated record.
	UpdateContent(ctx context.Context, id uuid.UUID, content json.RawMessage) (*models.Script, error)

	// ListByAuthor lists all scripts owned by an author, most recently
	// updated first.
	ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]*models.Script, error)

	// Delete removes a script by its ID.
	Delete(ctx context.Context, id uuid.UUID) error
}

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Script is a parsed interactive-fiction script as produced by the script
// parser. Content holds the entry sequence as JSON; the engine package
// decodes and validates it. Version is bumped on every content update so
// live sessions can detect that they were started against an older
// snapshot.
type Script struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	AuthorID  uuid.UUID       `db:"author_id" json:"authorId"`
	Title     string          `db:"title" json:"title"`
	Content   json.RawMessage `db:"content" json:"content"`
	Version   int             `db:"version" json:"version"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

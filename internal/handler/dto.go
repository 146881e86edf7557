package handler

import (
	"encoding/json"

	"github.com/google/uuid"
)

// MakeChoiceRequest selects one of the currently offered options by its
// zero-based index. A pointer so that index 0 survives binding validation.
type MakeChoiceRequest struct {
	OptionIndex *int `json:"option_index" binding:"required"`
}

// TextTurnRequest carries a free-text command for the current menu.
type TextTurnRequest struct {
	Input string `json:"input" binding:"required"`
}

// CreateScriptRequest registers a script published by the authoring
// service.
type CreateScriptRequest struct {
	ID       uuid.UUID       `json:"id"`
	AuthorID uuid.UUID       `json:"author_id" binding:"required"`
	Title    string          `json:"title" binding:"required"`
	Content  json.RawMessage `json:"content" binding:"required"`
}

// UpdateScriptContentRequest replaces a script's content wholesale.
type UpdateScriptContentRequest struct {
	Content json.RawMessage `json:"content" binding:"required"`
}

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PlaythroughStatus mirrors the playthrough_status enum in the database.
type PlaythroughStatus string

const (
	PlaythroughStatusPlaying PlaythroughStatus = "playing"
	PlaythroughStatusEnded   PlaythroughStatus = "ended"
)

// PlaythroughRecord is the persisted shape of one play session: the paused
// position within the script plus the committed history. History stores the
// engine's []HistoryEntry as JSON. ScriptVersion is the script version the
// position was recorded against; when it trails the script's current
// version the session must be resynced before play continues.
type PlaythroughRecord struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	PlayerID       uuid.UUID         `db:"player_id" json:"playerId"`
	ScriptID       uuid.UUID         `db:"script_id" json:"scriptId"`
	ScriptVersion  int               `db:"script_version" json:"scriptVersion"`
	Position       int               `db:"position" json:"position"`
	History        json.RawMessage   `db:"history" json:"history"`
	Status         PlaythroughStatus `db:"status" json:"status"`
	StartedAt      time.Time         `db:"started_at" json:"startedAt"`
	LastActivityAt time.Time         `db:"last_activity_at" json:"lastActivityAt"`
	CompletedAt    *time.Time        `db:"completed_at" json:"completedAt,omitempty"`
}

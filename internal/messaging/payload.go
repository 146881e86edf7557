package messaging

import "github.com/google/uuid"

// ScriptUpdatePayload announces that a script's content changed. Every live
// session of that script must be resynced against the new version before
// play continues.
type ScriptUpdatePayload struct {
	ScriptID uuid.UUID `json:"script_id"`
	Version  int       `json:"version"`
}

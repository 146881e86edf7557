package engine

// HistoryKind distinguishes story text from recorded player choices in the
// playthrough log.
type HistoryKind string

const (
	HistoryNarrative HistoryKind = "narrative"
	HistoryChoice    HistoryKind = "choice"
)

// HistoryEntry is one line of the append-only playthrough log.
type HistoryEntry struct {
	Kind HistoryKind `json:"kind"`
	Text string      `json:"text"`
}

// EndKind names why a session ended, so the presentation layer can decide
// how to surface it.
type EndKind string

const (
	// EndByJump marks a deliberate jump to the reserved END target.
	EndByJump EndKind = "jump_end"
	// EndMissingScene marks a jump whose target label does not exist.
	EndMissingScene EndKind = "missing_scene"
	// EndExhausted marks running off the end of a schema that has no
	// decision point to fall back to.
	EndExhausted EndKind = "exhausted"
)

// EndReason records how a session ended. Target carries the failed label
// for EndMissingScene.
type EndReason struct {
	Kind   EndKind `json:"kind"`
	Target string  `json:"target,omitempty"`
}

// GameState is an immutable snapshot of traversal progress. Every engine
// operation returns a fresh GameState; callers must discard prior values
// rather than alias or mutate them.
//
// Invariant: CurrentLineIdx of a non-ended state always indexes the first
// option entry of the offered run. An ended state carries the schema length.
type GameState struct {
	History        []HistoryEntry `json:"history"`
	CurrentLineIdx int            `json:"current_line_idx"`
	CurrentOptions []Entry        `json:"current_options"`
	IsEnded        bool           `json:"is_ended"`
	EndReason      *EndReason     `json:"end_reason,omitempty"`
}

// Playthrough is the persisted shape of a session: the paused position plus
// the committed history. The engine consumes it on resume but does not own
// its storage.
type Playthrough struct {
	Position int            `json:"position"`
	History  []HistoryEntry `json:"history"`
}

// NarrativeLines returns the story text lines of the history, excluding
// recorded choices.
func (g GameState) NarrativeLines() []string {
	var lines []string
	for _, h := range g.History {
		if h.Kind == HistoryNarrative {
			lines = append(lines, h.Text)
		}
	}
	return lines
}

// cloneHistory copies a history log so appends on the new state can never
// reach back into a prior state's backing array.
func cloneHistory(history []HistoryEntry) []HistoryEntry {
	if history == nil {
		return nil
	}
	out := make([]HistoryEntry, len(history))
	copy(out, history)
	return out
}

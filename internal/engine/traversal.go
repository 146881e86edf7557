package engine

import "go.uber.org/zap"

// Initial creates the game state for a fresh playthrough: run from the top
// of the schema with an empty history.
func (e *Engine) Initial() GameState {
	return e.RunFrom(0, nil)
}

// RunFrom advances through the schema starting at startIdx until it pauses
// at an option run or reaches an ending. prior is taken as the committed
// history so far and is never mutated; the returned state owns its own copy.
//
// No cycle detection is performed: a script whose jumps form an
// unconditional loop with no option in between will spin here. Guarding
// loops is the script author's responsibility.
func (e *Engine) RunFrom(startIdx int, prior []HistoryEntry) GameState {
	history := cloneHistory(prior)
	idx := startIdx
	if idx < 0 {
		idx = 0
	}

	for idx < len(e.schema) {
		entry := e.schema[idx]
		switch entry.Kind {
		case EntryNarrative:
			history = append(history, HistoryEntry{Kind: HistoryNarrative, Text: entry.Text})
			idx++
		case EntryScene:
			// Checkpoint marker only.
			idx++
		case EntryOption:
			return e.paused(history, idx)
		case EntryJump:
			if entry.Target == EndTarget {
				return e.ended(history, &EndReason{Kind: EndByJump})
			}
			target, ok := e.scenes[entry.Target]
			if !ok {
				e.logger.Warn("Jump target not found, ending session",
					zap.String("target", entry.Target),
					zap.Int("position", idx))
				return e.ended(history, &EndReason{Kind: EndMissingScene, Target: entry.Target})
			}
			idx = target
		default:
			// Validate rejects unknown kinds; skip defensively if one
			// arrives through an unvalidated schema.
			idx++
		}
	}

	// Ran off the end without an explicit terminal: fall through into the
	// last decision point when one exists.
	if anchor, ok := e.lastDecisionPoint(); ok {
		return e.paused(history, anchor)
	}
	return e.ended(history, &EndReason{Kind: EndExhausted})
}

// paused builds the state for a session waiting at an option run. idx is
// normalized to the head of the run so re-entry is position-stable.
func (e *Engine) paused(history []HistoryEntry, idx int) GameState {
	anchor := e.runStart(idx)
	return GameState{
		History:        history,
		CurrentLineIdx: anchor,
		CurrentOptions: e.CollectOptions(anchor),
		IsEnded:        false,
	}
}

// ended builds a terminal state. CurrentLineIdx carries the schema length.
func (e *Engine) ended(history []HistoryEntry, reason *EndReason) GameState {
	return GameState{
		History:        history,
		CurrentLineIdx: len(e.schema),
		CurrentOptions: nil,
		IsEnded:        true,
		EndReason:      reason,
	}
}

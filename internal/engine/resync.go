package engine

// Refresh reconciles a live session against this engine's schema after the
// underlying script was edited. Policy:
//
//   - An ended session always hard-restarts. History is deliberately
//     discarded for an edited-after-ended session.
//   - Otherwise the nearest option entry is located by searching forward
//     from the stored position, then backward, and the engine re-runs from
//     the start of the scene containing that anchor with an empty history.
//     Within-scene narrative is regenerated from the current schema rather
//     than diffed against what was previously shown, and cross-scene
//     history is dropped. That tradeoff is intentional: regenerating is
//     simpler than reconciling arbitrary upstream edits.
//   - When no option exists anywhere, the session hard-restarts.
func (e *Engine) Refresh(state GameState) GameState {
	if state.IsEnded {
		return e.Initial()
	}

	anchor, ok := e.findAnchorOption(state.CurrentLineIdx)
	if !ok {
		return e.Initial()
	}
	return e.RunFrom(e.sceneStartBefore(anchor), nil)
}

// Resume restores a persisted playthrough against this engine's schema.
// Fast path: the saved position still lands exactly on an option entry, so
// the option run is recomputed at that index and the committed history is
// kept verbatim. Slow path: replay from the saved position with the
// committed history as prefix. If the schema changed upstream of the saved
// position the replay may duplicate or diverge from what was shown; that
// limitation is documented rather than silently corrected here.
func (e *Engine) Resume(saved Playthrough) GameState {
	pos := saved.Position
	if pos >= 0 && pos < len(e.schema) && e.schema[pos].Kind == EntryOption {
		return GameState{
			History:        cloneHistory(saved.History),
			CurrentLineIdx: pos,
			CurrentOptions: e.CollectOptions(pos),
			IsEnded:        false,
		}
	}
	if pos < 0 {
		pos = 0
	}
	if pos > len(e.schema) {
		pos = len(e.schema)
	}
	return e.RunFrom(pos, saved.History)
}

// findAnchorOption searches forward from idx for an option entry, falling
// back to a backward search when the forward pass finds none.
func (e *Engine) findAnchorOption(idx int) (int, bool) {
	start := idx
	if start < 0 {
		start = 0
	}
	for i := start; i < len(e.schema); i++ {
		if e.schema[i].Kind == EntryOption {
			return i, true
		}
	}
	back := start
	if back > len(e.schema)-1 {
		back = len(e.schema) - 1
	}
	for i := back; i >= 0; i-- {
		if e.schema[i].Kind == EntryOption {
			return i, true
		}
	}
	return 0, false
}

// sceneStartBefore returns the index of the nearest scene marker at or
// before idx, or 0 when the anchor precedes every scene.
func (e *Engine) sceneStartBefore(idx int) int {
	for i := idx; i >= 0; i-- {
		if e.schema[i].Kind == EntryScene {
			return i
		}
	}
	return 0
}

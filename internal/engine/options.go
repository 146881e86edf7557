package engine

// CollectOptions gathers the contiguous run of option entries starting at
// idx. It returns nil when idx does not point at an option. The explicit
// choice flow and the free-text flow both defer to this one collector so
// they can never disagree on which options are current.
func (e *Engine) CollectOptions(idx int) []Entry {
	if idx < 0 || idx >= len(e.schema) || e.schema[idx].Kind != EntryOption {
		return nil
	}
	var run []Entry
	for i := idx; i < len(e.schema) && e.schema[i].Kind == EntryOption; i++ {
		run = append(run, e.schema[i])
	}
	return run
}

// runStart walks back to the first option of the contiguous run containing
// idx, so a paused state always anchors at the head of its menu.
func (e *Engine) runStart(idx int) int {
	for idx > 0 && e.schema[idx-1].Kind == EntryOption {
		idx--
	}
	return idx
}

// lastDecisionPoint searches backward from the end of the schema for the
// nearest option run and returns the index of its first option. Scripts
// without an explicit ending fall through into this run instead of silently
// stopping.
func (e *Engine) lastDecisionPoint() (int, bool) {
	for i := len(e.schema) - 1; i >= 0; i-- {
		if e.schema[i].Kind == EntryOption {
			return e.runStart(i), true
		}
	}
	return 0, false
}

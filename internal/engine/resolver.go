package engine

import "go.uber.org/zap"

// Select applies a chosen option to a paused state and returns the next
// state. Unlike the permissive behavior this replaces, malformed selections
// are rejected explicitly: applying a choice to an ended session returns
// ErrSessionEnded, and an option that is not part of the offered run (by
// display text) returns ErrOptionNotOffered.
func (e *Engine) Select(state GameState, chosen Entry) (GameState, error) {
	if state.IsEnded {
		return state, ErrSessionEnded
	}
	if !offered(state.CurrentOptions, chosen) {
		return state, ErrOptionNotOffered
	}

	history := cloneHistory(state.History)
	history = append(history, HistoryEntry{Kind: HistoryChoice, Text: chosen.Text})

	narratives, target := applyThen(chosen)
	for _, text := range narratives {
		history = append(history, HistoryEntry{Kind: HistoryNarrative, Text: text})
	}

	switch target {
	case EndTarget:
		return e.ended(history, &EndReason{Kind: EndByJump}), nil
	case "":
		// No jump in the then block: re-offer the same menu. This is the
		// designed mechanism for options whose only effect is their
		// narrative side text.
		return GameState{
			History:        history,
			CurrentLineIdx: state.CurrentLineIdx,
			CurrentOptions: e.CollectOptions(state.CurrentLineIdx),
			IsEnded:        false,
		}, nil
	default:
		idx, ok := e.scenes[target]
		if !ok {
			e.logger.Warn("Option jump target not found, ending session",
				zap.String("target", target),
				zap.String("option", chosen.Text))
			return e.ended(history, &EndReason{Kind: EndMissingScene, Target: target}), nil
		}
		return e.RunFrom(idx, history), nil
	}
}

// applyThen walks an option's nested effect block, collecting narrative
// texts in order and extracting the jump target. When several jumps appear
// the last one wins; earlier targets are discarded. That matches how
// authored scripts use a trailing jump as the option's destination.
func applyThen(option Entry) (narratives []string, target string) {
	for _, child := range option.Then {
		switch child.Kind {
		case EntryNarrative:
			narratives = append(narratives, child.Text)
		case EntryJump:
			target = child.Target
		}
		// Nested options are rejected by Validate and never executed.
	}
	return narratives, target
}

// offered reports whether the chosen option's display text matches one of
// the currently presented options. Display texts are unique within a run in
// authored scripts, so text identity is the membership test.
func offered(options []Entry, chosen Entry) bool {
	for _, opt := range options {
		if opt.Text == chosen.Text {
			return true
		}
	}
	return false
}

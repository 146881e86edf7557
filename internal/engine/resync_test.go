package engine_test

import (
	"testing"

	"tinypot-server/internal/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefresh(t *testing.T) {
	t.Run("Ended state always hard-restarts regardless of stored position", func(t *testing.T) {
		e := mustEngine(t, engine.Schema{
			narrative("fresh start"),
			option("begin", jump(engine.EndTarget)),
		})

		ended := engine.GameState{
			History:        []engine.HistoryEntry{{Kind: engine.HistoryNarrative, Text: "stale"}},
			CurrentLineIdx: 42,
			IsEnded:        true,
		}

		refreshed := e.Refresh(ended)

		assert.Equal(t, e.Initial(), refreshed)
	})

	t.Run("Forward anchor search re-runs from the containing scene with empty history", func(t *testing.T) {
		e := mustEngine(t, engine.Schema{
			scene("intro"),
			narrative("old line"),
			scene("middle"),
			narrative("regenerated line"),
			option("continue", jump(engine.EndTarget)),
		})

		live := engine.GameState{
			History:        []engine.HistoryEntry{{Kind: engine.HistoryNarrative, Text: "shown before the edit"}},
			CurrentLineIdx: 3,
		}

		refreshed := e.Refresh(live)

		require.False(t, refreshed.IsEnded)
		// Cross-scene history is dropped; within-scene text is regenerated.
		assert.Equal(t, []string{"regenerated line"}, historyTexts(refreshed.History))
		assert.Equal(t, 4, refreshed.CurrentLineIdx)
	})

	t.Run("Backward anchor search applies when nothing lies ahead", func(t *testing.T) {
		e := mustEngine(t, engine.Schema{
			scene("A"),
			narrative("line"),
			option("only choice", jump(engine.EndTarget)),
			narrative("tail"),
		})

		live := engine.GameState{CurrentLineIdx: 3}

		refreshed := e.Refresh(live)

		require.False(t, refreshed.IsEnded)
		require.Len(t, refreshed.CurrentOptions, 1)
		assert.Equal(t, "only choice", refreshed.CurrentOptions[0].Text)
	})

	t.Run("No option anywhere hard-restarts", func(t *testing.T) {
		e := mustEngine(t, engine.Schema{
			scene("A"),
			narrative("options were edited away"),
		})

		live := engine.GameState{CurrentLineIdx: 1}

		refreshed := e.Refresh(live)

		assert.Equal(t, e.Initial(), refreshed)
	})

	t.Run("Position beyond the edited schema still recovers", func(t *testing.T) {
		e := mustEngine(t, engine.Schema{
			scene("A"),
			option("pick", jump(engine.EndTarget)),
		})

		live := engine.GameState{CurrentLineIdx: 10}

		refreshed := e.Refresh(live)

		require.False(t, refreshed.IsEnded)
		assert.Equal(t, 1, refreshed.CurrentLineIdx)
	})
}

func TestResume(t *testing.T) {
	schema := engine.Schema{
		scene("A"),
		narrative("Hi"),
		option("go", jump("B")),
		option("stay"),
		scene("B"),
		narrative("Bye"),
		jump(engine.EndTarget),
	}

	t.Run("Fast path keeps committed history verbatim", func(t *testing.T) {
		e := mustEngine(t, schema)
		saved := engine.Playthrough{
			Position: 2,
			History: []engine.HistoryEntry{
				{Kind: engine.HistoryNarrative, Text: "Hi"},
				{Kind: engine.HistoryNarrative, Text: "a line the current schema no longer has"},
			},
		}

		state := e.Resume(saved)

		assert.False(t, state.IsEnded)
		assert.Equal(t, 2, state.CurrentLineIdx)
		require.Len(t, state.CurrentOptions, 2)
		assert.Equal(t, historyTexts(saved.History), historyTexts(state.History))
	})

	t.Run("Slow path replays from the saved position with history prefix", func(t *testing.T) {
		e := mustEngine(t, schema)
		saved := engine.Playthrough{
			Position: 4, // a scene marker, not an option
			History:  []engine.HistoryEntry{{Kind: engine.HistoryChoice, Text: "go"}},
		}

		state := e.Resume(saved)

		assert.True(t, state.IsEnded)
		assert.Equal(t, []string{"go", "Bye"}, historyTexts(state.History))
	})

	t.Run("Out-of-range saved position clamps instead of panicking", func(t *testing.T) {
		e := mustEngine(t, schema)

		past := e.Resume(engine.Playthrough{Position: 99})
		assert.False(t, past.IsEnded) // falls through to the last decision point

		negative := e.Resume(engine.Playthrough{Position: -5})
		assert.False(t, negative.IsEnded)
		assert.Equal(t, []string{"Hi"}, historyTexts(negative.History))
	})
}

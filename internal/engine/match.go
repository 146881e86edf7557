package engine

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"
)

// TextMatchResult describes where a free-text turn landed. The free-text
// path computes a position delta and never touches a stored GameState; the
// caller owns persisting the new position.
type TextMatchResult struct {
	Matched    bool     `json:"matched"`
	Ended      bool     `json:"ended"`
	SceneLabel string   `json:"scene_label,omitempty"`
	LineIdx    int      `json:"line_idx"`
	OptionText string   `json:"option_text,omitempty"`
	Narratives []string `json:"narratives,omitempty"`
}

// normalizeText lowercases the input and maps the punctuation class to
// spaces, leaving only letters, digits and single separators.
func normalizeText(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return ""
	}
	var b strings.Builder
	lastSpace := false
	for _, r := range raw {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
			}
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokenize yields the word set of a string: lowercase, split on whitespace
// and punctuation. No stemming, no partial tokens.
func Tokenize(s string) map[string]struct{} {
	fields := strings.Fields(normalizeText(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Match scores player-typed text against the offered options and returns
// the winner, or nil when nothing matches.
//
// Rules, in order:
//   - A single available option is auto-selected regardless of text.
//   - An input within a length-scaled edit distance of a declared alias
//     selects that option outright.
//   - Otherwise each option scores the size of the intersection between the
//     input's word set and the option text's word set. Strict highest score
//     wins; ties keep the first option in list order. A best score of zero
//     is no match even when several options are offered.
func Match(input string, options []Entry) *Entry {
	if len(options) == 0 {
		return nil
	}
	if len(options) == 1 {
		return &options[0]
	}

	norm := normalizeText(input)
	for i := range options {
		for _, alias := range options[i].Aliases {
			if aliasMatches(norm, normalizeText(alias)) {
				return &options[i]
			}
		}
	}

	inputTokens := Tokenize(input)
	var best *Entry
	bestScore := 0
	for i := range options {
		score := overlap(inputTokens, Tokenize(options[i].Text))
		if score > bestScore {
			bestScore = score
			best = &options[i]
		}
	}
	return best
}

func aliasMatches(input, alias string) bool {
	if alias == "" || input == "" {
		return false
	}
	if input == alias {
		return true
	}
	if len(input) < 3 {
		return false
	}
	return levenshtein.ComputeDistance(input, alias) <= levenshteinLimit(len(alias))
}

// levenshteinLimit scales the tolerated edit distance with alias length so
// short aliases stay strict.
func levenshteinLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for word := range a {
		if _, ok := b[word]; ok {
			n++
		}
	}
	return n
}

// OptionsAt finds the options current at a free-text position: walk forward
// from the scene's start counting narrative lines until lineIdx have been
// passed, then collect the option run found at or after that count. A jump
// encountered first aborts with an empty result, because control has left
// the scene. Collection goes through CollectOptions, the same primitive the
// explicit-choice flow uses.
func (e *Engine) OptionsAt(sceneLabel string, lineIdx int) []Entry {
	start, ok := e.scenes[sceneLabel]
	if !ok {
		return nil
	}
	seen := 0
	for i := start; i < len(e.schema); i++ {
		switch e.schema[i].Kind {
		case EntryNarrative:
			seen++
		case EntryOption:
			if seen >= lineIdx {
				return e.CollectOptions(i)
			}
		case EntryJump:
			return nil
		}
	}
	return nil
}

// ApplyText resolves one free-text turn at the given position. It matches
// the input against the current options and, on a match, executes the
// option's then block with the same narrative/jump extraction rules the
// explicit-choice resolver uses. The result describes the new position; no
// state is stored here.
func (e *Engine) ApplyText(sceneLabel string, lineIdx int, input string) (TextMatchResult, error) {
	if _, ok := e.scenes[sceneLabel]; !ok {
		return TextMatchResult{}, ErrUnknownScene
	}

	options := e.OptionsAt(sceneLabel, lineIdx)
	matched := Match(input, options)
	if matched == nil {
		return TextMatchResult{Matched: false, SceneLabel: sceneLabel, LineIdx: lineIdx}, nil
	}

	narratives, target := applyThen(*matched)
	result := TextMatchResult{
		Matched:    true,
		OptionText: matched.Text,
		Narratives: narratives,
	}
	switch target {
	case EndTarget:
		result.Ended = true
	case "":
		// Loop back to the same decision point.
		result.SceneLabel = sceneLabel
		result.LineIdx = lineIdx
	default:
		if _, ok := e.scenes[target]; !ok {
			e.logger.Warn("Free-text jump target not found, ending session",
				zap.String("target", target),
				zap.String("option", matched.Text))
			result.Ended = true
			return result, nil
		}
		result.SceneLabel = target
		result.LineIdx = 0
	}
	return result, nil
}

package engine

import (
	"encoding/json"
	"fmt"
)

// EntryKind discriminates the variants of a script entry.
type EntryKind string

const (
	EntryNarrative EntryKind = "narrative"
	EntryScene     EntryKind = "scene"
	EntryJump      EntryKind = "jump"
	EntryOption    EntryKind = "option"
)

// EndTarget is the reserved jump target that ends a session.
const EndTarget = "END"

// Entry is a single instruction of a parsed script. Exactly one variant is
// populated depending on Kind:
//   - narrative: Text
//   - scene:     Label
//   - jump:      Target (a scene label, or EndTarget)
//   - option:    Text, optional Aliases, and a Then block of nested effects
//
// Then is a tree, not a graph: entries own their children outright and no
// entry is referenced from two places.
type Entry struct {
	Kind    EntryKind `json:"kind"`
	Text    string    `json:"text,omitempty"`
	Label   string    `json:"label,omitempty"`
	Target  string    `json:"target,omitempty"`
	Aliases []string  `json:"aliases,omitempty"`
	Then    []Entry   `json:"then,omitempty"`
}

// Schema is the ordered, immutable sequence of entries produced by the
// script parser. The engine never modifies a Schema after construction.
type Schema []Entry

// ParseSchema decodes a stored script content blob and validates it.
func ParseSchema(raw json.RawMessage) (Schema, error) {
	var s Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode script content: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate enforces the structural invariants the traversal engine relies on.
// Duplicate scene labels are rejected outright rather than resolved by a
// wins-policy, and options nested inside a Then block are rejected because
// the traversal engine does not execute them.
func (s Schema) Validate() error {
	labels := make(map[string]int, len(s))
	for i, entry := range s {
		switch entry.Kind {
		case EntryNarrative, EntryOption, EntryScene, EntryJump:
		default:
			return fmt.Errorf("entry %d: unknown kind %q", i, entry.Kind)
		}
		if entry.Kind == EntryScene {
			if entry.Label == "" {
				return fmt.Errorf("entry %d: scene without label", i)
			}
			if entry.Label == EndTarget {
				return fmt.Errorf("entry %d: scene label %q is reserved", i, EndTarget)
			}
			if prev, ok := labels[entry.Label]; ok {
				return fmt.Errorf("entry %d: duplicate scene label %q (first declared at %d)", i, entry.Label, prev)
			}
			labels[entry.Label] = i
		}
		if entry.Kind == EntryJump && entry.Target == "" {
			return fmt.Errorf("entry %d: jump without target", i)
		}
		if entry.Kind == EntryOption {
			if err := validateThen(entry.Then, i); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateThen(then []Entry, parent int) error {
	for _, child := range then {
		switch child.Kind {
		case EntryNarrative:
		case EntryJump:
			if child.Target == "" {
				return fmt.Errorf("entry %d: nested jump without target", parent)
			}
		case EntryOption:
			return fmt.Errorf("entry %d: options cannot be nested inside a then block", parent)
		case EntryScene:
			return fmt.Errorf("entry %d: scenes cannot be declared inside a then block", parent)
		default:
			return fmt.Errorf("entry %d: unknown nested kind %q", parent, child.Kind)
		}
	}
	return nil
}

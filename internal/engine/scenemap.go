package engine

// SceneMap indexes scene labels to their position in the schema. It is
// rebuilt from scratch whenever the schema changes and never persisted.
type SceneMap map[string]int

// BuildSceneMap performs a single forward pass over the schema recording the
// position of each scene entry. Schema.Validate rejects duplicate labels; if
// an unvalidated schema slips through anyway, the first occurrence wins so
// the mapping stays deterministic.
func BuildSceneMap(s Schema) SceneMap {
	m := make(SceneMap)
	for i, entry := range s {
		if entry.Kind != EntryScene {
			continue
		}
		if _, ok := m[entry.Label]; ok {
			continue
		}
		m[entry.Label] = i
	}
	return m
}

package engine

import (
	"go.uber.org/zap"
)

// Engine executes a validated schema. It holds the schema snapshot and its
// scene index; all traversal state lives in the GameState values passed in
// and returned. An Engine is safe for concurrent use because it never
// mutates after construction.
type Engine struct {
	schema Schema
	scenes SceneMap
	logger *zap.Logger
}

// New validates the schema, builds its scene index and returns an engine
// bound to that snapshot. A new Engine must be constructed whenever the
// underlying script changes.
func New(schema Schema, logger *zap.Logger) (*Engine, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		schema: schema,
		scenes: BuildSceneMap(schema),
		logger: logger.Named("Engine"),
	}, nil
}

// Schema returns the snapshot this engine executes.
func (e *Engine) Schema() Schema { return e.schema }

// Scenes returns the label index built from the snapshot.
func (e *Engine) Scenes() SceneMap { return e.scenes }

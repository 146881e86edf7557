package engine

import "errors"

var (
	// ErrSessionEnded is returned when a choice is applied to a state that
	// already reached an ending.
	ErrSessionEnded = errors.New("session has already ended")
	// ErrOptionNotOffered is returned when the chosen option is not part of
	// the currently presented run.
	ErrOptionNotOffered = errors.New("option is not currently offered")
	// ErrUnknownScene is returned by the free-text path when the requested
	// scene label does not exist in the schema.
	ErrUnknownScene = errors.New("scene label not found in schema")
)

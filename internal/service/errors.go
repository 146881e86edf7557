package service

import "errors"

var (
	// ErrInvalidChoiceIndex is returned when a choice index is outside the
	// currently offered option run.
	ErrInvalidChoiceIndex = errors.New("choice index out of range")
	// ErrInvalidScript is returned when submitted script content does not
	// decode or validate as a playable script.
	ErrInvalidScript = errors.New("invalid script content")
)

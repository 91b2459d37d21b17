package buildconfig

import "errors"

var (
	// ErrInvalidMode indicates a mode other than development or production
	ErrInvalidMode = errors.New("invalid build mode")
	// ErrInvalidConfig indicates a BuildConfig that breaks one of its invariants
	ErrInvalidConfig = errors.New("invalid build config")
	// ErrUnknownVariant indicates a variant name that is not plain or styled
	ErrUnknownVariant = errors.New("unknown config variant")
)

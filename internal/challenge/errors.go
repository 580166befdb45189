package challenge

import "errors"

var (
	// ErrEmptyCatalog indicates a catalog without any challenge definitions.
	ErrEmptyCatalog = errors.New("challenge catalog is empty")
	// ErrInvalidDefinition indicates a definition that failed validation.
	ErrInvalidDefinition = errors.New("invalid challenge definition")
	// ErrMissingCatalog indicates a machine built without a catalog.
	ErrMissingCatalog = errors.New("challenge catalog is required")
)

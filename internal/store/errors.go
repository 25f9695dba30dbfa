package store

import (
	"errors"

	"github.com/calvinalkan/pagelister/internal/content"
)

// ErrNotFound is [content.ErrNotFound], so callers can test either.
var ErrNotFound = content.ErrNotFound

// ErrSchemaVersion reports a database written by an incompatible version.
var ErrSchemaVersion = errors.New("unsupported schema version")

// ErrInvalidFixture reports a seed document that cannot be loaded.
var ErrInvalidFixture = errors.New("invalid fixture")

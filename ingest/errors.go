package ingest

import "errors"

var (
	// ErrRepositoryRequired is returned when a repository is not provided.
	ErrRepositoryRequired = errors.New("repository required")

	// ErrUnknownIDStrategy is returned for an unsupported id strategy.
	ErrUnknownIDStrategy = errors.New("unknown id strategy")

	// ErrInvalidRecord is returned for a line that is not a JSON object.
	ErrInvalidRecord = errors.New("invalid record")
)

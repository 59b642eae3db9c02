package models

import "errors"

var (
	// ErrInvalidArgument reports a bad k/limit or other caller mistake.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound reports an unknown product or document id.
	ErrNotFound = errors.New("not found")

	// ErrEmbedding reports an embedding client failure. Not retried here.
	ErrEmbedding = errors.New("embedding failed")

	// ErrCompletion reports a completion client failure.
	ErrCompletion = errors.New("completion failed")

	// ErrIndexWrite reports a vector store write that failed mid-entity.
	// The entity is left at its prior committed state.
	ErrIndexWrite = errors.New("index write failed")

	// ErrDimensionMismatch reports a vector whose length differs from the
	// configured embedding dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

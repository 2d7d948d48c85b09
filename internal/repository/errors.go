package repository

import "errors"

// Sentinel errors shared by every store implementation, so services do not
// depend on which backend produced them.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict is returned by ConditionalUpdate when the record's
	// current version no longer matches the version the caller observed.
	ErrVersionConflict = errors.New("version conflict")

	// ErrEmptyQueue is returned by EngineerQueue operations when the rotation
	// holds no engineer ids.
	ErrEmptyQueue = errors.New("engineer queue empty")
)

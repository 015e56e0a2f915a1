package domain

import "errors"

// Progress errors
var (
	ErrProfileNotFound = errors.New("profile not found")
)

// Catalog errors
var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrLessonNotFound    = errors.New("lesson not found")
)

// Storage errors
var (
	// ErrStoreUnavailable is returned when a remote store is shedding load
	// (circuit open or bulkhead full).
	ErrStoreUnavailable = errors.New("store unavailable")
)

// General errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
)

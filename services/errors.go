package services

import "github.com/Laisky/errors/v2"

var (
	// ErrNotFound is returned by single-document lookups. List queries never
	// return it; an unknown anchor yields an empty list instead.
	ErrNotFound = errors.New("not found")
	// ErrMissingField is returned when a required input is empty.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidArgument is returned when an input is present but out of range.
	ErrInvalidArgument = errors.New("invalid argument")
)

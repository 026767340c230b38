package errors

import "errors"

var (
	// ErrNoProvider means no generation provider is configured. The pipeline
	// fails loud on this; it never degrades to placeholder content.
	ErrNoProvider = errors.New("no generation provider configured")
	// ErrUnknownProtocol is returned when a caller forces a protocol id that
	// was never registered.
	ErrUnknownProtocol = errors.New("unknown protocol")
	// ErrInsufficientInput means the source material is too thin to build a
	// kit (word count or concept count below minimum).
	ErrInsufficientInput = errors.New("insufficient source material")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)

package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound  = errors.New("player not found")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUsernameTaken   = errors.New("username taken")

	// Connection errors
	ErrNotFound        = errors.New("connection not found")
	ErrDeliveryFailure = errors.New("delivery failed")

	// Message errors
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownMessage   = errors.New("unknown message type")

	// Session state errors
	ErrSessionStateNotFound = errors.New("session state not found")
	ErrInvalidColor         = errors.New("invalid color")
	ErrInvalidHole          = errors.New("invalid hole number")
	ErrInvalidScore         = errors.New("invalid score")
)

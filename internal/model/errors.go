package model

import "errors"

// Common errors used across the application
var (
	// Race errors
	ErrRaceNotFound       = errors.New("race not found")
	ErrRaceAlreadyStarted = errors.New("race has already started")
	ErrRaceFull           = errors.New("race is full")
	ErrRaceNotRacing      = errors.New("race is not in progress")
	ErrInvalidTransition  = errors.New("invalid race status transition")

	// Participant errors
	ErrParticipantNotFound = errors.New("participant not found")
	ErrNotInRace           = errors.New("participant is not in this race")

	// User and session errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionInvalid     = errors.New("session is missing, expired, or invalid")

	// Retryable errors
	ErrConcurrencyConflict = errors.New("concurrent modification conflict")
	ErrContentUnavailable  = errors.New("no content available")
)

// IsRetryable reports whether the error is transient and worth retrying
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict) || errors.Is(err, ErrContentUnavailable)
}

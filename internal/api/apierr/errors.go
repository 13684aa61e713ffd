package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/typerush/typerush/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeRaceNotFound        = "RACE_NOT_FOUND"
	CodeRaceAlreadyStarted  = "RACE_ALREADY_STARTED"
	CodeRaceFull            = "RACE_FULL"
	CodeRaceNotRacing       = "RACE_NOT_RACING"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeParticipantNotFound = "PARTICIPANT_NOT_FOUND"
	CodeNotInRace           = "NOT_IN_RACE"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeUsernameTaken       = "USERNAME_TAKEN"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeConflict            = "CONFLICT"
	CodeContentUnavailable  = "CONTENT_UNAVAILABLE"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrRaceNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRaceNotFound, "Race not found"}}
	case errors.Is(err, model.ErrRaceAlreadyStarted):
		return &httpError{http.StatusConflict, APIError{CodeRaceAlreadyStarted, "Race has already started"}}
	case errors.Is(err, model.ErrRaceFull):
		return &httpError{http.StatusConflict, APIError{CodeRaceFull, "Race is full"}}
	case errors.Is(err, model.ErrRaceNotRacing):
		return &httpError{http.StatusConflict, APIError{CodeRaceNotRacing, "Race is not in progress"}}
	case errors.Is(err, model.ErrInvalidTransition):
		return &httpError{http.StatusConflict, APIError{CodeInvalidTransition, "Race cannot move to that state"}}
	case errors.Is(err, model.ErrParticipantNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeParticipantNotFound, "Participant not found"}}
	case errors.Is(err, model.ErrNotInRace):
		return &httpError{http.StatusForbidden, APIError{CodeNotInRace, "Not a participant of this race"}}
	case errors.Is(err, model.ErrUserNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeUserNotFound, "User not found"}}
	case errors.Is(err, model.ErrUsernameTaken):
		return &httpError{http.StatusConflict, APIError{CodeUsernameTaken, "Username already exists"}}
	case errors.Is(err, model.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, model.ErrSessionInvalid):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, model.ErrConcurrencyConflict):
		return &httpError{http.StatusConflict, APIError{CodeConflict, "Conflicting update, try again"}}
	case errors.Is(err, model.ErrContentUnavailable):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeContentUnavailable, "No race content available"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

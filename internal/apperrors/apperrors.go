// Package apperrors defines the error taxonomy of the blog list service
// and maps classified errors to HTTP statuses and client messages.
package apperrors

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Taxonomy kinds. Match them with errors.Is.
var (
	ErrTokenMissing       = errors.New("token missing")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrValidation         = errors.New("validation failed")
	ErrMalformedID        = errors.New("malformatted id")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnknownResource    = errors.New("unknown endpoint")
)

type kindStatus struct {
	kind   error
	status int
}

// kinds is ordered: an error wrapping several kinds is classified by the first match.
var kinds = []kindStatus{
	{ErrTokenMissing, http.StatusUnauthorized},
	{ErrInvalidToken, http.StatusBadRequest},
	{ErrExpiredToken, http.StatusUnauthorized},
	{ErrNotFound, http.StatusBadRequest},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrValidation, http.StatusBadRequest},
	{ErrMalformedID, http.StatusBadRequest},
	{ErrInvalidCredentials, http.StatusUnauthorized},
	{ErrUnknownResource, http.StatusNotFound},
}

func statusOf(kind error) (int, bool) {
	for _, ks := range kinds {
		if ks.kind == kind {
			return ks.status, true
		}
	}

	return 0, false
}

// Error is a classified error carrying the message shown to the client.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

// New builds a classified error. An empty message falls back to the kind's text.
func New(kind error, message string, cause error) *Error {
	if message == "" {
		message = kind.Error()
	}

	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}

	return e.Message
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Classify returns the HTTP status and the client message for err.
// ok is false for errors outside the taxonomy.
func Classify(err error) (status int, message string, ok bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		if status, found := statusOf(appErr.Kind); found {
			return status, appErr.Message, true
		}
	}

	for _, ks := range kinds {
		if errors.Is(err, ks.kind) {
			return ks.status, ks.kind.Error(), true
		}
	}

	return 0, "", false
}

type errorResponse struct {
	Error string `json:"error"`
}

// Write renders err as {"error": message} with its taxonomy status.
// Errors outside the taxonomy get a bare 500.
func Write(w http.ResponseWriter, err error) {
	status, message, ok := Classify(err)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}

package messaging

import (
	"errors"
	"fmt"

	"pawpost-backend/internal/models"
	"pawpost-backend/internal/store"
)

// Error kinds returned by the service. Callers dispatch on them with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrBlocked     = errors.New("blocked by receiver")
	ErrForbidden   = errors.New("forbidden")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("storage unavailable")
)

var kinds = []error{ErrValidation, ErrBlocked, ErrForbidden, ErrNotFound, ErrConflict, ErrUnavailable}

func failf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// classify maps store and model errors onto the service taxonomy. Anything unrecognised is a
// storage failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return err
		}
	}
	switch {
	case errors.Is(err, store.ErrMessageNotFound),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrGroupNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, store.ErrNotGroupMember):
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	case errors.Is(err, store.ErrEmailExists), errors.Is(err, store.ErrGroupExists):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, models.ErrInvalidPayload),
		errors.Is(err, models.ErrUnknownKind),
		errors.Is(err, models.ErrInvalidConversationID):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Code names the error kind for API responses.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrBlocked):
		return "blocked"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	}
	return "unavailable"
}

// Package service holds the business rules of the marketplace.  Every
// exported operation returns errors wrapping one of the sentinel kinds
// below so the HTTP layer can map them to status codes without looking
// at messages.
package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/rentable/internal/repository"
)

var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not_found")
	ErrInvalidInput        = errors.New("invalid_input")
	ErrConflict            = errors.New("conflict")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrExternalService     = errors.New("external_service_error")
)

var kinds = []error{
	ErrUnauthenticated, ErrForbidden, ErrNotFound, ErrInvalidInput,
	ErrConflict, ErrInsufficientBalance, ErrExternalService,
}

// Kind returns the sentinel err wraps, or nil for unexpected errors.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Message returns the human readable part of a kind-wrapped error.
func Message(err error) string {
	k := Kind(err)
	if k == nil {
		return "internal error"
	}
	msg := strings.TrimPrefix(err.Error(), k.Error()+": ")
	if msg == k.Error() {
		return strings.ReplaceAll(msg, "_", " ")
	}
	return msg
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

// fromRepo translates repository sentinels into service kinds.  what
// names the entity for NotFound messages.
func fromRepo(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s not found", ErrNotFound, what)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %s is not in a valid state for this operation", ErrConflict, what)
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%w: %s already exists", ErrConflict, what)
	case errors.Is(err, repository.ErrInsufficientBalance):
		return fmt.Errorf("%w: token balance is too low", ErrInsufficientBalance)
	case errors.Is(err, repository.ErrForbidden):
		return fmt.Errorf("%w: not allowed", ErrForbidden)
	case Kind(err) != nil:
		return err
	}
	return err
}

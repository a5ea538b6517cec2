package services

import (
	"errors"
	"fmt"

	"github.com/skillbridge/apiserver/internal/authz"
	"github.com/skillbridge/apiserver/internal/store"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNoToken            = fmt.Errorf("no token provided: %w", ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("invalid token: %w", ErrUnauthorized)
	ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", ErrUnauthorized)

	ErrForbidden = authz.ErrForbidden

	ErrInvalidInput    = errors.New("invalid input")
	ErrAlreadyEnrolled = errors.New("already enrolled")
	ErrEmailTaken      = errors.New("email already registered")
	ErrUploadsDisabled = errors.New("content uploads are not configured")

	ErrNotEnrolled = fmt.Errorf("not enrolled: %w", store.ErrNotFound)
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

package apperr

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Sentinel errors for the whole backend. Handlers map these to HTTP status
// codes, repositories translate storage errors into them so nothing above
// the repository layer ever sees a gorm error.
var (
	ErrValidation    = errors.New("validation error")
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
	ErrAuth          = errors.New("authentication failed")
	ErrRepository    = errors.New("repository error")
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func AlreadyExists(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAlreadyExists, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Auth(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAuth, fmt.Sprintf(format, args...))
}

// FromDB translates a gorm error into the taxonomy. The entity name ends up
// in the message, e.g. "not found: chat".
func FromDB(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, entity)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s", ErrAlreadyExists, entity)
	default:
		return fmt.Errorf("%w: %s: %v", ErrRepository, entity, err)
	}
}

package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrVersionConflict is returned when a conditional write finds the row
// changed since it was read.
var ErrVersionConflict = errors.New("record was modified concurrently")

// Repository aggregates the repositories of the service.
type Repository interface {
	Test() TestRepository
	Session() SessionRepository

	// WithTransaction runs fn in a database transaction; repository calls
	// inside fn should pass tx along.
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// IsNotFoundError reports whether err means the record does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

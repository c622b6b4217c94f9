package services

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrStorageDisabled   = errors.New("icon storage not configured")
)

// notFound folds gorm's sentinel into ErrNotFound so handlers only check one.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

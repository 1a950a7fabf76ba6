package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrValidation     = errors.New("validation")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrSearchDisabled = errors.New("search disabled")
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID      uint
	IsAdmin bool
}

func (a Actor) CanAccess(userID uint) bool {
	return a.IsAdmin || a.ID == userID
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s not found: %w", what, ErrNotFound)
	}
	return err
}

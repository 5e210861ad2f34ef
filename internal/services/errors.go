package services

import (
	"errors"

	"github.com/alimgiray/salesconsole/internal/models"
)

var (
	// ErrInvalidPhone is returned when a phone number cannot be normalized
	ErrInvalidPhone = errors.New("invalid phone number")

	// ErrUnknownItem is returned for operations on a confirmation item that does not exist
	ErrUnknownItem = errors.New("unknown confirmation item")

	// ErrSourceUnavailable is returned when the calendar or the contact store cannot be read
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrInvalidTransition is returned when an item cannot move to the requested status
	ErrInvalidTransition = models.ErrInvalidTransition

	// ErrInvalidInput is returned for malformed operator input
	ErrInvalidInput = errors.New("invalid input")
)

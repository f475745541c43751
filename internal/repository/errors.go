package repository

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientSeats = errors.New("insufficient seats")
	ErrCapacityExceeded  = errors.New("release would exceed capacity")
	ErrStatusConflict    = errors.New("booking status changed concurrently")
	ErrUnavailable       = errors.New("store unavailable")
)

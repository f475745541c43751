package flights

import "errors"

var (
	ErrFlightNotFound = errors.New("flight not found")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidRequest = errors.New("invalid request")
)

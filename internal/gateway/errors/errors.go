package errors

import "errors"

var (
	ErrSessionNotFound = errors.New("booking request session not found")
	ErrSessionExpired  = errors.New("booking request session expired")
)

package service

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidPhone    = errors.New("invalid phone format")
	ErrFeatureDisabled = errors.New("feature is not configured")
	ErrTicketNotFound  = errors.New("handover ticket not found")
)

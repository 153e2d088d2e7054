package service

import "errors"

// Sentinel errors returned by the service layer. Handlers map these to
// HTTP status codes with errors.Is; everything else is a storage fault.
var (
	ErrNotFound                = errors.New("not found")
	ErrNotAuthorized           = errors.New("not authorized")
	ErrInvalidState            = errors.New("invalid state for operation")
	ErrInvalidToken            = errors.New("invalid invitation token")
	ErrInvitationExpired       = errors.New("invitation expired")
	ErrLastManager             = errors.New("cannot remove the family's only manager")
	ErrCodeGenerationExhausted = errors.New("could not generate a unique family code")

	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

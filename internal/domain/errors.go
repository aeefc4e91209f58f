package domain

import "errors"

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrProviderFailure   = errors.New("provider failure")
	ErrNoImageProduced   = errors.New("no image produced")
	ErrUnreadableFile    = errors.New("unreadable file")
	ErrNoSourceImage     = errors.New("no source image")
	ErrGenerateInFlight  = errors.New("generation already in flight")
	ErrNoResultImage     = errors.New("no result image")
	ErrSessionNotFound   = errors.New("session not found")
)

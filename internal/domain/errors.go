package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrEngineClosed    = errors.New("speech engine is closed")
	ErrPlaybackStopped = errors.New("playback stopped")
	ErrInvalidVoice    = errors.New("invalid voice configuration")
)

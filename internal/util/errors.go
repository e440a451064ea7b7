package util

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingFields      = errors.New("missing required fields")
	ErrEmptySession       = errors.New("interview session has no answers")
	ErrNoEnrollment       = errors.New("no enrollments found for user")
	ErrNoImages           = errors.New("no images provided")
	ErrTooManyImages      = errors.New("too many images")
	ErrNoFace             = errors.New("no face found in image")
	ErrFaceService        = errors.New("face service unavailable")
	ErrSpeechDisabled     = errors.New("speech transcription is not enabled")
	ErrAIUnconfigured     = errors.New("ai service is not configured")
	ErrLockTimeout        = errors.New("timed out waiting for allocation lock")
)

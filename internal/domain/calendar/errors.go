package calendar

import "errors"

var (
	ErrNotFound      = errors.New("calendar config not found")
	ErrConflict      = errors.New("calendar config already exists for this leave type and calendar")
	ErrNoCredentials = errors.New("google client credentials not configured")
	ErrNoToken       = errors.New("no google oauth token available")
)

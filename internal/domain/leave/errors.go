package leave

import "errors"

var (
	ErrNotFound  = errors.New("leave request not found")
	ErrForbidden = errors.New("not allowed to modify this leave request")
	ErrInvalid   = errors.New("invalid leave request fields")
)

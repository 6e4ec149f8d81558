package user

import "errors"

var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrLastAdmin     = errors.New("cannot delete the last admin")
	ErrWrongPassword = errors.New("current password does not match")
)

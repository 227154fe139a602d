package models

import "errors"

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrPlaceNotFound = errors.New("place not found")
	ErrUnknownField  = errors.New("unknown profile field")
	ErrInvalidValue  = errors.New("invalid profile value")
)

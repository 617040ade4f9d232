package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidTag    = errors.New("invalid tag")
	ErrNotAnImage    = errors.New("not an image")
	ErrValidation    = errors.New("validation failed")
)

package storage

import "errors"

var (
	ErrNotFound        = errors.New("record not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrRenameNotFound  = errors.New("rename intent not found")
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidKey     = errors.New("invalid object key")
	ErrFileTooLarge   = errors.New("file size exceeds limit")
)

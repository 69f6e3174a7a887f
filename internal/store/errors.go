package store

import "github.com/pkg/errors"

var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
	ErrInvalidQuery  = errors.New("invalid query")
)

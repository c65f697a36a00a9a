package domain

import "errors"

var (
	ErrPropertyNotFound  = errors.New("property not found")
	ErrKarmaNotFound     = errors.New("karma not found")
	ErrAlreadyLinked     = errors.New("already linked, split first")
	ErrNotLinked         = errors.New("not linked")
	ErrInvalidLinkSyntax = errors.New("invalid link syntax")
	ErrUnknownCommand    = errors.New("unknown command")
)

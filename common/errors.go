package common

import "errors"

var (
	// ErrInvalidArgument reports a malformed request: a negative clip index, a crossfade without replace,
	// mismatched buffer lengths.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPreconditionFailed reports an operation on an entity that lacks a required component or capability.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrNotFound reports an unresolvable entity, instance, skin, joint or clip reference.
	ErrNotFound = errors.New("not found")
)

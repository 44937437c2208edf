package chatstore

import "errors"

// Errors crossing the request/reply boundary arrive as text, so the API layer
// matches on these messages.
var (
	// ErrNotFound is returned when a user, chat or message does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUserExists is returned when registering an email that is already taken.
	ErrUserExists = errors.New("user with this email already exists")
	// ErrNotMember is returned when a user acts on a chat they do not belong to.
	ErrNotMember = errors.New("user is not a member of this chat")
	// ErrInvalidInput is returned for requests missing required fields.
	ErrInvalidInput = errors.New("invalid input")
)

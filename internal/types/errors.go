package types

import "errors"

// Failure taxonomy raised by the query layer. Handlers map these to HTTP
// statuses without inspecting message text.
var ErrNotFound = errors.New("requested item not found")
var ErrConflict = errors.New("item already exists or conflict")
var ErrUnauthorized = errors.New("no qualifying active subscription")
var ErrInvalidArgument = errors.New("invalid argument")
var ErrTransient = errors.New("temporary database failure, retry")

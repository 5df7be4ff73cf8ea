package notifications

import "errors"

var (
	ErrInvalidJob     = errors.New("invalid notification job")
	ErrUnknownChannel = errors.New("no sender for channel")
	ErrNoRecipient    = errors.New("notification job has no recipient")
)

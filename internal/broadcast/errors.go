package broadcast

import "errors"

var (
	// ErrSlowSubscriber ends a subscription whose buffer overflowed.
	ErrSlowSubscriber = errors.New("broadcast: subscriber fell behind")

	// ErrClosed ends subscriptions when the broadcaster shuts down.
	ErrClosed = errors.New("broadcast: broadcaster is closed")
)

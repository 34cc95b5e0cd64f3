package port

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreadableVideo means the video could not be opened or holds no frames.
	ErrUnreadableVideo = errors.New("unreadable video")

	// ErrMidStreamRead means the video stopped being readable after frames were produced.
	ErrMidStreamRead = errors.New("video stream read failed")

	// ErrFrameBudgetExceeded ends a stream once the configured frame cap is reached.
	ErrFrameBudgetExceeded = errors.New("frame budget exceeded")

	// ErrUndecodableFrame is returned by decoders for a frame they cannot process.
	ErrUndecodableFrame = errors.New("undecodable frame")

	ErrProductNotFound = errors.New("product not found")
)

// RetryError asks the message transport to redeliver a scan request later.
// Attempt is the number of tries the job has already used.
type RetryError struct {
	Attempt int
	Err     error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("retryable failure (attempt %d): %v", e.Attempt, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

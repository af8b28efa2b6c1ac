package playlist

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by a LineReader that has no source.
	ErrNotReady = errors.New("line reader used before its source was opened")
	// ErrRecursion is returned when Process is called while the driver
	// already has an active session.
	ErrRecursion = errors.New("playlist driver is already processing a playlist")
	// ErrUnsupportedType is returned for objects that are not playlist files.
	ErrUnsupportedType = errors.New("object is not a playlist file")
	// ErrShutdownRequested is returned when the context was cancelled while
	// draining. It is an expected termination, not a failure of the playlist.
	ErrShutdownRequested = errors.New("playlist processing stopped by shutdown")
	// ErrLineTooLong is returned for lines longer than MaxLineLength.
	ErrLineTooLong = errors.New("playlist line exceeds maximum length")
)

// OpenError reports a playlist that could not be opened.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open playlist %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// EvaluationError reports a failure while evaluating one playlist line.
// Line is the 1-based physical line number; it is 0 when the failure
// happened after the last line was read.
type EvaluationError struct {
	Path string
	Line int
	Err  error
}

func (e *EvaluationError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("evaluate playlist %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("evaluate playlist %s line %d: %v", e.Path, e.Line, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

package ingestor

import (
	"errors"
	"fmt"

	"github.com/baldanca/bike-ingestor/sink"
	"github.com/baldanca/bike-ingestor/source"
)

var (
	ErrMalformedPage = errors.New("malformed page")
	ErrPageLimit     = errors.New("page limit reached")
)

// Stage names the step of a run that failed.
type Stage string

const (
	StageFetch  Stage = "fetch"
	StageParse  Stage = "parse"
	StageEncode Stage = "encode"
	StageWrite  Stage = "write"
)

// Class tells the caller whether running again may help.
type Class int

const (
	ClassFatal Class = iota
	ClassRetryable
)

func (c Class) String() string {
	if c == ClassRetryable {
		return "retryable"
	}
	return "fatal"
}

// StageError is the single error type returned by Run.
type StageError struct {
	Stage Stage
	Class Class
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Stage, e.Class, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a StageError of class retryable.
func IsRetryable(err error) bool {
	var se *StageError
	return errors.As(err, &se) && se.Class == ClassRetryable
}

func fatal(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Class: ClassFatal, Err: err}
}

func fetchError(err error) *StageError {
	if source.Retryable(err) {
		return &StageError{Stage: StageFetch, Class: ClassRetryable, Err: err}
	}
	return fatal(StageFetch, err)
}

func writeError(err error) *StageError {
	if sink.Retryable(err) {
		return &StageError{Stage: StageWrite, Class: ClassRetryable, Err: err}
	}
	return fatal(StageWrite, err)
}

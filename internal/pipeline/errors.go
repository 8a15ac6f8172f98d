package pipeline

import "errors"

// Fatal marks a stage error as permanent: the executor fails the job
// immediately instead of retrying. Unmarked errors are treated as transient
// and retried up to the attempt budget.
type Fatal struct{ Err error }

func (e *Fatal) Error() string { return e.Err.Error() }
func (e *Fatal) Unwrap() error { return e.Err }

// FatalErr wraps err so the executor skips remaining retries.
func FatalErr(err error) error { return &Fatal{Err: err} }

func IsFatal(err error) bool { return errors.As(err, new(*Fatal)) }

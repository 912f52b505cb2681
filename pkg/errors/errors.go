package errors

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyQuery          = errors.New("query normalizes to zero terms")
	ErrUndefinedRecall     = errors.New("recall undefined: no relevant documents")
	ErrDepthExceedsResults = errors.New("evaluation depth exceeds ranked results")
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrCorpus              = errors.New("corpus unreadable")
)

type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// Kind returns a stable label for err, suitable for metric labels and report
// columns.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEmptyQuery):
		return "empty_query"
	case errors.Is(err, ErrUndefinedRecall):
		return "undefined_recall"
	case errors.Is(err, ErrDepthExceedsResults):
		return "depth_exceeds_results"
	case errors.Is(err, ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, ErrCorpus):
		return "corpus"
	default:
		return "internal"
	}
}

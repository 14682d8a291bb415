package usecase

import (
	"errors"
	"time"

	"github.com/example/catalog-service/internal/domain"
)

// ErrorKind classifies a failed Result.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindRepository ErrorKind = "repository"
	KindInternal   ErrorKind = "internal"
)

// Result — единый ответ use-case: при Success заполнено Data, иначе Error.
// Kind и Field уточняют причину отказа, Error остаётся читаемым текстом.
type Result[T any] struct {
	Success bool
	Data    T
	Error   string
	Kind    ErrorKind
	Field   string
}

// Clock returns the current time. Use-cases never read the wall clock directly.
type Clock func() time.Time

// Ok wraps data in a successful Result.
func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Fail converts err into a failed Result. Validation errors keep their field;
// anything else is reported as a repository failure.
func Fail[T any](err error) Result[T] {
	res := Result[T]{Error: err.Error(), Kind: KindRepository}
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		res.Kind = KindValidation
		res.Field = verr.Field
	case errors.Is(err, domain.ErrValidation):
		res.Kind = KindValidation
	case errors.Is(err, errNoClock):
		res.Kind = KindInternal
	}
	return res
}

// Err returns the failure as an error, nil on success. Validation failures
// match domain.ErrValidation.
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	if r.Kind == KindValidation {
		return &domain.ValidationError{Field: r.Field, Message: r.Error}
	}
	return errors.New(r.Error)
}

package transpile

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/convert"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter"
)

// Stage names a step of the pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageParse     Stage = "parse"
	StageValidate  Stage = "validate"
	StageFilter    Stage = "filter"
	StageConvert   Stage = "convert"
	StageSerialize Stage = "serialize"
)

// Stages lists the pipeline stages in execution order.
func Stages() []Stage {
	return []Stage{StageParse, StageValidate, StageFilter, StageConvert, StageSerialize}
}

// Error wraps the failure of one stage. Span and Kind locate the offending
// node when the stage error carries one; errors.As still reaches the stage
// error types through Unwrap.
type Error struct {
	Err   error
	File  string
	Stage Stage
	Span  ast.Span
	Kind  ast.Kind
}

func (stageErr *Error) Error() string {
	if stageErr.File == "" {
		return fmt.Sprintf("%s: %v", stageErr.Stage, stageErr.Err)
	}

	return fmt.Sprintf("%s: %s: %v", stageErr.File, stageErr.Stage, stageErr.Err)
}

func (stageErr *Error) Unwrap() error {
	return stageErr.Err
}

// spanError is implemented by front-end errors that know where they occurred.
type spanError interface {
	ErrorSpan() ast.Span
}

func wrap(stage Stage, err error) *Error {
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}

	wrapped := &Error{Stage: stage, Err: err}

	var (
		malformed *ast.MalformedTreeError
		filterErr *filter.FilterError
		notImpl   *convert.NotImplementedError
		located   spanError
	)

	switch {
	case errors.As(err, &malformed):
		wrapped.Span, wrapped.Kind = malformed.Span, malformed.Kind
	case errors.As(err, &filterErr):
		wrapped.Span, wrapped.Kind = filterErr.Span, filterErr.Kind
	case errors.As(err, &notImpl):
		wrapped.Span, wrapped.Kind = notImpl.Span, notImpl.Kind
	case errors.As(err, &located):
		wrapped.Span = located.ErrorSpan()
	}

	return wrapped
}

func withFile(err error, name string) error {
	var stageErr *Error
	if name != "" && errors.As(err, &stageErr) && stageErr.File == "" {
		stageErr.File = name
	}

	return err
}

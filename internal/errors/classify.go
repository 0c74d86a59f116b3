package errors

import (
	"context"
	stderrors "errors"

	"github.com/vango-dev/cascade/pkg/cascade"
	"github.com/vango-dev/cascade/pkg/template"
	"github.com/vango-dev/cascade/pkg/tracestore"
)

// Classify maps err to a coded Error. An *Error anywhere in the chain is
// returned as is; anything unrecognised becomes C120.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var coded *Error
	if stderrors.As(err, &coded) {
		return coded
	}

	var (
		structural   *cascade.StructuralError
		notification *cascade.NotificationError
		panicked     *cascade.PanicError
		syntax       *template.SyntaxError
		warning      *cascade.DeprecatedMutationWarning
	)

	var e *Error
	switch {
	case stderrors.Is(err, cascade.ErrRerenderOutOfScope):
		e = New("C040")
	case stderrors.Is(err, cascade.ErrReentrancyLimit):
		e = New("C041")
	case stderrors.Is(err, cascade.ErrDestroyed):
		e = New("C042")
	case stderrors.Is(err, cascade.ErrNotRoot):
		e = New("C043")
	case stderrors.Is(err, cascade.ErrInPass):
		e = New("C044")
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		e = New("C045")
	case stderrors.As(err, &syntax):
		e = New("C004")
	case stderrors.As(err, &structural):
		switch {
		case stderrors.Is(err, cascade.ErrUnknownComponent):
			e = New("C001")
		case stderrors.Is(err, cascade.ErrUnknownTemplate):
			e = New("C002")
		default:
			e = New("C003")
		}
		e.Node = structural.Label
		if e.Node == "" {
			e.Node = structural.Component
		}
	case stderrors.As(err, &panicked):
		e = New("C021")
	case stderrors.As(err, &notification):
		e = New("C020")
	case stderrors.As(err, &warning):
		e = New("C022").WithNode(warning.Label, warning.Hook.String())
	case stderrors.Is(err, tracestore.ErrNotFound):
		e = New("C100")
	default:
		e = New("C120")
	}

	if notification != nil || stderrors.As(err, &notification) {
		e.WithNode(notification.Label, notification.Hook.String())
	}
	return e.Wrap(err)
}

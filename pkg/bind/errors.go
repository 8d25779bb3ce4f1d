package bind

import (
	"errors"

	sberrors "github.com/vango-dev/scopebind/internal/errors"
)

// Sentinel errors. Errors returned or logged by the engine are coded
// *internal/errors.Error values that wrap one of these, so callers can test
// them with errors.Is.
var (
	// ErrTargetMissing means the Bind or Unbind target does not resolve to
	// an element.
	ErrTargetMissing = errors.New("binding target missing")

	// ErrUnknownCommand means a token names a command with no registered
	// binder. It is never returned; unknown commands are skipped.
	ErrUnknownCommand = errors.New("unknown binding command")

	// ErrHandlerRuntime wraps a panic or error raised by a binder or a
	// scheduled callback.
	ErrHandlerRuntime = errors.New("binding handler failed")

	// ErrMalformedArgument means a binder received an argument of the wrong
	// shape. The binder performs no mutation.
	ErrMalformedArgument = errors.New("malformed binding argument")

	// ErrInvalidTarget means Bind received a target or data value of an
	// unsupported type.
	ErrInvalidTarget = errors.New("invalid binding target")
)

// Malformed returns an ErrMalformedArgument error for the given command
// argument. Binders return it instead of mutating the document.
func Malformed(command, argument, reason string) error {
	return sberrors.New(sberrors.CodeMalformedArg).
		WithDetailf("%s:%s: %s", command, argument, reason).
		Wrap(ErrMalformedArgument)
}

func targetMissing(detail string) error {
	return sberrors.New(sberrors.CodeTargetMissing).WithDetail(detail).Wrap(ErrTargetMissing)
}

func invalidTarget(detail string) error {
	return sberrors.New(sberrors.CodeInvalidTarget).WithDetail(detail).Wrap(ErrInvalidTarget)
}

func handlerRuntime(detail string, cause error) error {
	e := sberrors.New(sberrors.CodeHandlerRuntime).WithDetail(detail)
	if cause != nil {
		return e.Wrap(errors.Join(ErrHandlerRuntime, cause))
	}
	return e.Wrap(ErrHandlerRuntime)
}

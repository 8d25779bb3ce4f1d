// Package errors provides coded, structured errors for scopebind.
//
// Every error condition the engine reports has a code (e.g., "SB001") that
// maps to a category, a short message and a longer explanation. Errors wrap
// the package-level sentinel they correspond to, so callers test them with
// the standard errors.Is:
//
//	err := errors.New(errors.CodeTargetMissing).
//	    WithDetail("selector #app matched nothing").
//	    Wrap(bind.ErrTargetMissing)
//
// # Error Categories
//
//   - setup: raised synchronously to the caller of Bind or Unbind
//   - binding: contained at a binder boundary and logged
//   - runtime: contained at a scheduled callback and logged
//   - config: configuration file problems
//   - cli: command-line usage problems
package errors

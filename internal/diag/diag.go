// Package diag holds the typed compile-time diagnostics funcps's passes
// raise, grounded on internal/typesystem/error.go's one-struct-per-kind
// pattern from the teacher: each diagnostic is its own type with an
// Error() method and a constructor, collected rather than returned
// eagerly so a single compile can surface every problem at once
// (spec.md §7, and internal/pipeline/pipeline.go's "continue on errors to
// collect diagnostics from all stages").
package diag

import "fmt"

// NestedTryError is raised when the splitter encounters a Try inside the
// protected region of another Try (spec.md §7: "not allowed to nest
// try/except").
type NestedTryError struct {
	FuncName string
}

func (e *NestedTryError) Error() string {
	return "not allowed to nest try/except"
}

func NewNestedTryError(funcName string) *NestedTryError {
	return &NestedTryError{FuncName: funcName}
}

// UnknownNameContextError is raised when variable analysis meets a Name
// whose ExprContext it does not recognise.
type UnknownNameContextError struct {
	Name string
}

func (e *UnknownNameContextError) Error() string {
	return fmt.Sprintf("unsupported context for name %q", e.Name)
}

func NewUnknownNameContextError(name string) *UnknownNameContextError {
	return &UnknownNameContextError{Name: name}
}

// DuplicateContinuationError is a fatal internal-invariant violation: two
// continuations were generated with the same name within one SplitState
// (spec.md §5).
type DuplicateContinuationError struct {
	Name string
}

func (e *DuplicateContinuationError) Error() string {
	return fmt.Sprintf("duplicate continuation name: %s", e.Name)
}

func NewDuplicateContinuationError(name string) *DuplicateContinuationError {
	return &DuplicateContinuationError{Name: name}
}

// NoSplitPointsWarning is a soft warning: the function contains no split
// points, so the compiler returns it unchanged (spec.md §6, §7).
type NoSplitPointsWarning struct {
	FuncName string
}

func (e *NoSplitPointsWarning) Error() string {
	return fmt.Sprintf("no split points found in function %s", e.FuncName)
}

func NewNoSplitPointsWarning(funcName string) *NoSplitPointsWarning {
	return &NoSplitPointsWarning{FuncName: funcName}
}

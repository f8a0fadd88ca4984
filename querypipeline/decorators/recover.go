package decorators

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
)

// PanicRecoveryType identifies the PanicRecovery decorator in registrations.
const PanicRecoveryType querypipeline.DecoratorType = "PanicRecovery"

// RecoveryError wraps a panic value with the stack trace.
type RecoveryError struct {
	// PanicValue is the original value that was passed to panic().
	PanicValue any
	// StackTrace contains the full stack trace at the point of panic.
	StackTrace string
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("panic recovered: %v", e.PanicValue)
}

// Unwrap returns the panic value if it is an error.
func (e *RecoveryError) Unwrap() error {
	if err, ok := e.PanicValue.(error); ok {
		return err
	}

	return nil
}

// PanicRecovery converts a panic of the inner chain into a *RecoveryError.
// Placed inside FallbackPolicy, a recovered panic becomes eligible for a fallback substitution.
type PanicRecovery struct{}

// NewPanicRecovery creates a PanicRecovery. It matches querypipeline.DecoratorConstructor.
func NewPanicRecovery() (querypipeline.Decorator, error) {
	return PanicRecovery{}, nil
}

// Around implements the cancellable form.
func (PanicRecovery) Around(
	ctx context.Context,
	query querypipeline.Query,
	next querypipeline.Next,
	_ querypipeline.Next,
) (result any, err error) {
	defer recoverInto(&err)

	return next(ctx, query)
}

// AroundSync implements the blocking form.
func (PanicRecovery) AroundSync(
	query querypipeline.Query,
	next querypipeline.SyncNext,
	_ querypipeline.SyncNext,
) (result any, err error) {
	defer recoverInto(&err)

	return next(query)
}

func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = &RecoveryError{
			PanicValue: r,
			StackTrace: string(debug.Stack()),
		}
	}
}

var _ querypipeline.Decorator = PanicRecovery{}

// ABOUTME: Request-context helpers carrying the authenticated operator
// ABOUTME: Handlers downstream of the middleware read the operator via FromContext

package auth

import "context"

// OperatorContext identifies the authenticated operator on a request.
type OperatorContext struct {
	OperatorID  string
	Username    string
	DisplayName string
}

type contextKey struct{}

// WithOperator returns a context carrying the operator identity.
func WithOperator(ctx context.Context, op *OperatorContext) context.Context {
	return context.WithValue(ctx, contextKey{}, op)
}

// FromContext extracts the operator identity, or nil if unauthenticated.
func FromContext(ctx context.Context) *OperatorContext {
	op, _ := ctx.Value(contextKey{}).(*OperatorContext)
	return op
}

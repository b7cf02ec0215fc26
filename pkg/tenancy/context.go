package tenancy

import "context"

// ctxKey is an unexported type used as the context key for TenantContext.
type ctxKey struct{}

// TenantContext carries the resolved namespace and acting identity through
// request context. Actor is recorded in the audit trail.
type TenantContext struct {
	Namespace string
	Actor     string
}

// WithTenant returns a new context with the given TenantContext attached.
func WithTenant(ctx context.Context, tc TenantContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// TenantFromContext retrieves the TenantContext from the context.
// Returns the zero value and false if no tenant is set.
func TenantFromContext(ctx context.Context) (TenantContext, bool) {
	tc, ok := ctx.Value(ctxKey{}).(TenantContext)
	return tc, ok
}

// NamespaceFromContext returns the namespace from the context, or the default
// namespace if no tenant context is set.
func NamespaceFromContext(ctx context.Context) string {
	tc, ok := TenantFromContext(ctx)
	if !ok || tc.Namespace == "" {
		return DefaultNamespace
	}
	return tc.Namespace
}

// ActorFromContext returns the acting identity from the context, or "" if no
// tenant context is set.
func ActorFromContext(ctx context.Context) string {
	tc, _ := TenantFromContext(ctx)
	return tc.Actor
}

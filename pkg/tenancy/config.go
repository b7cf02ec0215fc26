// Package tenancy resolves the namespace and actor for each request and
// carries them through the request context. The hub isolates every dataset,
// snapshot, release and audit trail by namespace.
package tenancy

// TenancyMode controls how the namespace is resolved.
type TenancyMode string

const (
	// ModeSingle pins every request to the default namespace.
	ModeSingle TenancyMode = "single"
	// ModeNamespace resolves the namespace per request, falling back to the
	// default namespace when the caller does not send one.
	ModeNamespace TenancyMode = "namespace"
)

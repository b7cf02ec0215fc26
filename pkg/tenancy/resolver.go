package tenancy

import (
	"fmt"
	"net/http"
	"regexp"
)

// DefaultNamespace is used when a request carries no namespace.
const DefaultNamespace = "default"

// maxNamespaceLen is the maximum length for a namespace, following DNS label
// conventions.
const maxNamespaceLen = 63

// namespaceRe validates namespace format: lowercase alphanumeric and hyphens,
// must start and end with an alphanumeric character (DNS label convention).
var namespaceRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// NamespaceQueryParam is the query parameter name used for namespace resolution.
const NamespaceQueryParam = "namespace"

// NamespaceHeader is the HTTP header used for namespace resolution.
const NamespaceHeader = "X-Namespace"

// ActorHeader is the HTTP header carrying the acting identity for audit.
const ActorHeader = "X-Actor"

// TenantResolver resolves the tenant context from an HTTP request.
type TenantResolver interface {
	Resolve(r *http.Request) (TenantContext, error)
}

// SingleTenantResolver always returns the default namespace.
type SingleTenantResolver struct{}

// Resolve returns a TenantContext pinned to the default namespace. The actor
// header is still honored.
func (s SingleTenantResolver) Resolve(r *http.Request) (TenantContext, error) {
	return TenantContext{
		Namespace: DefaultNamespace,
		Actor:     r.Header.Get(ActorHeader),
	}, nil
}

// NamespaceTenantResolver reads the namespace from the request query parameter
// or header, falling back to the default namespace when neither is set.
type NamespaceTenantResolver struct{}

// Resolve extracts the namespace from the request. It checks the query
// parameter first, then the X-Namespace header, then falls back to the
// default namespace. Returns an error only for an invalid namespace.
func (n NamespaceTenantResolver) Resolve(r *http.Request) (TenantContext, error) {
	ns := r.URL.Query().Get(NamespaceQueryParam)
	if ns == "" {
		ns = r.Header.Get(NamespaceHeader)
	}
	if ns == "" {
		ns = DefaultNamespace
	}

	if err := validateNamespace(ns); err != nil {
		return TenantContext{}, err
	}

	return TenantContext{
		Namespace: ns,
		Actor:     r.Header.Get(ActorHeader),
	}, nil
}

// validateNamespace checks that a namespace string conforms to DNS label rules:
// lowercase alphanumeric and hyphens, 1-63 characters, starts and ends with
// an alphanumeric character.
func validateNamespace(ns string) error {
	if len(ns) > maxNamespaceLen {
		return fmt.Errorf("namespace %q exceeds maximum length of %d characters", ns, maxNamespaceLen)
	}
	if !namespaceRe.MatchString(ns) {
		return fmt.Errorf("namespace %q is invalid: must consist of lowercase alphanumeric characters or hyphens, and must start and end with an alphanumeric character", ns)
	}
	return nil
}

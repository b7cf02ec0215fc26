package ingest

import (
	"fmt"
	"strings"
)

// Scheme identifies how a source entrypoint is resolved. The set is closed:
// every supported entrypoint maps to exactly one member, and dispatch over it
// is exhaustive.
type Scheme int

const (
	// SchemeFixture serves an in-process fixture dataset keyed by the
	// source's dataset variant.
	SchemeFixture Scheme = iota
	// SchemeFile reads a local JSON file (file:///path/to/data.json).
	SchemeFile
	// SchemeHTTP performs an HTTP(S) GET against the entrypoint URL.
	SchemeHTTP
)

// String returns the scheme name.
func (s Scheme) String() string {
	switch s {
	case SchemeFixture:
		return "fixture"
	case SchemeFile:
		return "file"
	case SchemeHTTP:
		return "http"
	}
	return "unknown"
}

// ResolveScheme classifies an entrypoint URI and returns the scheme together
// with the scheme-specific remainder (fixture key, file path, or the full URL
// for HTTP). An entrypoint outside the closed set is an error rather than a
// silent empty payload.
func ResolveScheme(entrypoint string) (Scheme, string, error) {
	ep := strings.TrimSpace(entrypoint)
	switch {
	case strings.HasPrefix(ep, "fixture://"):
		return SchemeFixture, strings.TrimPrefix(ep, "fixture://"), nil
	case strings.HasPrefix(ep, "file://"):
		return SchemeFile, strings.TrimPrefix(ep, "file://"), nil
	case strings.HasPrefix(ep, "http://"), strings.HasPrefix(ep, "https://"):
		return SchemeHTTP, ep, nil
	}
	return 0, "", fmt.Errorf("unsupported entrypoint scheme: %q", entrypoint)
}

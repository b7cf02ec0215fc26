package tenancy

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddleware_AttachesTenant(t *testing.T) {
	var got TenantContext
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = TenantFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	mw := Middleware(NamespaceTenantResolver{})
	srv := mw(handler)

	r := httptest.NewRequest(http.MethodGet, "/api/test?namespace=team-a", nil)
	r.Header.Set(ActorHeader, "alice")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got.Namespace != "team-a" {
		t.Errorf("Namespace = %q, want %q", got.Namespace, "team-a")
	}
	if got.Actor != "alice" {
		t.Errorf("Actor = %q, want %q", got.Actor, "alice")
	}
}

func TestMiddleware_DefaultNamespace(t *testing.T) {
	var got TenantContext
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = TenantFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	mw := Middleware(NamespaceTenantResolver{})
	srv := mw(handler)

	r := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got.Namespace != DefaultNamespace {
		t.Errorf("Namespace = %q, want %q", got.Namespace, DefaultNamespace)
	}
}

func TestMiddleware_InvalidNamespace(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})

	mw := Middleware(NamespaceTenantResolver{})
	srv := mw(handler)

	r := httptest.NewRequest(http.MethodGet, "/api/test?namespace=Bad_NS", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestNewMiddleware_SingleMode(t *testing.T) {
	var got TenantContext
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = TenantFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	srv := NewMiddleware(ModeSingle)(handler)

	r := httptest.NewRequest(http.MethodGet, "/api/test?namespace=team-a", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	if got.Namespace != DefaultNamespace {
		t.Errorf("Namespace = %q, want %q", got.Namespace, DefaultNamespace)
	}
}

package tenancy

import (
	"context"
	"testing"
)

func TestWithTenantAndTenantFromContext(t *testing.T) {
	tc := TenantContext{
		Namespace: "team-a",
		Actor:     "alice",
	}

	ctx := WithTenant(context.Background(), tc)
	got, ok := TenantFromContext(ctx)
	if !ok {
		t.Fatal("expected TenantFromContext to return true")
	}
	if got.Namespace != tc.Namespace {
		t.Errorf("Namespace = %q, want %q", got.Namespace, tc.Namespace)
	}
	if got.Actor != tc.Actor {
		t.Errorf("Actor = %q, want %q", got.Actor, tc.Actor)
	}
}

func TestTenantFromContext_Missing(t *testing.T) {
	_, ok := TenantFromContext(context.Background())
	if ok {
		t.Fatal("expected TenantFromContext to return false for empty context")
	}
}

func TestNamespaceFromContext(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{
			name: "with tenant set",
			ctx:  WithTenant(context.Background(), TenantContext{Namespace: "my-ns"}),
			want: "my-ns",
		},
		{
			name: "without tenant set",
			ctx:  context.Background(),
			want: DefaultNamespace,
		},
		{
			name: "tenant with empty namespace",
			ctx:  WithTenant(context.Background(), TenantContext{}),
			want: DefaultNamespace,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NamespaceFromContext(tt.ctx)
			if got != tt.want {
				t.Errorf("NamespaceFromContext() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActorFromContext(t *testing.T) {
	ctx := WithTenant(context.Background(), TenantContext{Namespace: "ns", Actor: "bob"})
	if got := ActorFromContext(ctx); got != "bob" {
		t.Errorf("ActorFromContext() = %q, want %q", got, "bob")
	}
	if got := ActorFromContext(context.Background()); got != "" {
		t.Errorf("ActorFromContext() = %q, want empty", got)
	}
}

// Package identity resolves who is calling the discussion engine.
package identity

import (
	"context"

	"parenthub/internal/rbac"
)

// Caller is the authenticated user behind a request.
type Caller struct {
	ID          string    `json:"id"`
	Role        rbac.Role `json:"role"`
	DisplayName string    `json:"display_name"`
}

// Provider returns the current caller, or false when the session is anonymous.
type Provider interface {
	CurrentUser(ctx context.Context) (*Caller, bool)
}

type callerKey struct{}

func WithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func FromContext(ctx context.Context) (*Caller, bool) {
	caller, ok := ctx.Value(callerKey{}).(*Caller)
	if !ok || caller == nil || caller.ID == "" {
		return nil, false
	}
	return caller, true
}

type contextProvider struct{}

// NewContextProvider reads the caller that the auth middleware stored on the
// request context.
func NewContextProvider() Provider {
	return contextProvider{}
}

func (contextProvider) CurrentUser(ctx context.Context) (*Caller, bool) {
	return FromContext(ctx)
}

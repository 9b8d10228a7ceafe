// Package auth carries the device role through a request context.
package auth

import (
	"context"

	"github.com/dukerupert/gavel/internal/model"
)

type contextKey struct{}

// WithRole returns a context carrying the role chosen on this device.
func WithRole(ctx context.Context, role model.Role) context.Context {
	return context.WithValue(ctx, contextKey{}, role)
}

// RoleFrom returns the device role, if one was chosen.
func RoleFrom(ctx context.Context) (model.Role, bool) {
	role, ok := ctx.Value(contextKey{}).(model.Role)
	if !ok || !role.Valid() {
		return "", false
	}
	return role, true
}

// Partner returns the partner the device acts as. Observers and devices
// without a role return false.
func Partner(ctx context.Context) (model.Partner, bool) {
	role, ok := RoleFrom(ctx)
	if !ok {
		return "", false
	}
	return role.Partner()
}

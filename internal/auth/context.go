package auth

import "context"

type contextKey string

const (
	contextKeyTenant  contextKey = "windshare/auth.tenant_id"
	contextKeyRole    contextKey = "windshare/auth.role"
	contextKeySubject contextKey = "windshare/auth.subject"
)

// WithIdentity stores the authenticated identity. Every tenant-scoped
// repository call downstream reads the tenant id from here.
func WithIdentity(ctx context.Context, tenantID string, role Role, subject string) context.Context {
	ctx = context.WithValue(ctx, contextKeyTenant, tenantID)
	ctx = context.WithValue(ctx, contextKeyRole, role)
	ctx = context.WithValue(ctx, contextKeySubject, subject)
	return ctx
}

// TenantIDFromContext extracts the tenant id, "" when unauthenticated.
func TenantIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if tenantID, ok := ctx.Value(contextKeyTenant).(string); ok {
		return tenantID
	}
	return ""
}

// RoleFromContext extracts the role, "" when unauthenticated.
func RoleFromContext(ctx context.Context) Role {
	if ctx == nil {
		return ""
	}
	value := ctx.Value(contextKeyRole)
	if role, ok := value.(Role); ok {
		return role
	}
	if raw, ok := value.(string); ok {
		if role, valid := NormalizeRole(raw); valid {
			return role
		}
	}
	return ""
}

// SubjectFromContext extracts the token subject, used as the audit actor.
func SubjectFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if subject, ok := ctx.Value(contextKeySubject).(string); ok {
		return subject
	}
	return ""
}

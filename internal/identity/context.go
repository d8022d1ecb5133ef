package identity

import "context"

type ctxKey string

const (
	userKey     ctxKey = "carehub.user_id"
	providerKey ctxKey = "carehub.provider_id"
)

// WithUserID stores the patient user id in context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// UserIDFromContext extracts the user id if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, userKey)
}

// WithProviderID stores the authenticated provider id in context.
func WithProviderID(ctx context.Context, providerID string) context.Context {
	return context.WithValue(ctx, providerKey, providerID)
}

// ProviderIDFromContext extracts the provider id if present.
func ProviderIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, providerKey)
}

func stringFromContext(ctx context.Context, key ctxKey) (string, bool) {
	val := ctx.Value(key)
	if val == nil {
		return "", false
	}
	id, ok := val.(string)
	return id, ok && id != ""
}

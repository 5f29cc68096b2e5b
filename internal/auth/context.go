package auth

import "context"

// contextKey is a custom type used for context keys to avoid collisions.
type contextKey string

const ClientIDKey contextKey = "clientID"

// WithClientID returns a copy of ctx carrying clientID.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, ClientIDKey, clientID)
}

// GetClientIDFromContext retrieves the client id set by the auth middleware.
func GetClientIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ClientIDKey).(string)
	return id, ok && id != ""
}

package utils

import "context"

type contextKey string

const (
	ClientIDKey    contextKey = "client_id"
	ClientScopeKey contextKey = "client_scope"
)

// SetClientContext stores the authenticated caller (called by middleware).
func SetClientContext(ctx context.Context, clientID, scope string) context.Context {
	ctx = context.WithValue(ctx, ClientIDKey, clientID)
	ctx = context.WithValue(ctx, ClientScopeKey, scope)
	return ctx
}

// GetClientIDFromContext retrieves the client id safely
func GetClientIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ClientIDKey).(string)
	return id, ok && id != ""
}

func GetClientScopeFromContext(ctx context.Context) string {
	scope, _ := ctx.Value(ClientScopeKey).(string)
	return scope
}

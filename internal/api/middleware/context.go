package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const (
	principalKey contextKey = "principal"
	keyPrefixKey contextKey = "key_prefix"
	scopesKey    contextKey = "api_key_scopes"
)

// SetPrincipal attaches the authenticated caller's name to the context.
// Exported so handler tests can build authenticated requests.
func SetPrincipal(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, principalKey, name)
}

// GetPrincipal returns the authenticated caller's name, if any.
func GetPrincipal(r *http.Request) (string, bool) {
	name, ok := r.Context().Value(principalKey).(string)
	return name, ok
}

func setKeyPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

func getKeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}

func setScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, scopesKey, scopes)
}

func getScopes(r *http.Request) []string {
	scopes, _ := r.Context().Value(scopesKey).([]string)
	return scopes
}

package auth

import "context"

// Unexported key types keep other packages from colliding with these values.
type ctxKeyPrincipal struct{}
type ctxKeyToken struct{}

// ContextWithPrincipal returns a child context carrying the resolved caller.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal{}, p)
}

// PrincipalFromContext reports the caller attached by the authn middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(ctxKeyPrincipal{}).(Principal)
	return p, ok
}

// ContextWithToken keeps the raw bearer string alongside the principal for
// code that needs to forward or audit it.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyToken{}, token)
}

// TokenFromContext returns the bearer token when one was attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	tok, ok := ctx.Value(ctxKeyToken{}).(string)
	return tok, ok && tok != ""
}

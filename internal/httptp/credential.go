package httptp

import "context"

type credentialKey struct{}

// WithCredential returns a context carrying the inbound Authorization value
// of a client request. An empty credential leaves ctx unchanged.
func WithCredential(ctx context.Context, credential string) context.Context {
	if credential == "" {
		return ctx
	}
	return context.WithValue(ctx, credentialKey{}, credential)
}

// CredentialFromContext returns the credential stored by WithCredential.
func CredentialFromContext(ctx context.Context) string {
	v, _ := ctx.Value(credentialKey{}).(string)
	return v
}

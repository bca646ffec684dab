// Package common contains constants and small helpers shared by the
// session core, the storage layer and the shell.
package common

const (
	// AuthorizationHeaderName carries the bearer session token on outbound requests.
	AuthorizationHeaderName = "Authorization"

	// CSRFHeaderName carries the per-tab anti-forgery token.
	CSRFHeaderName = "X-CSRF-Token"

	// BearerPrefix prefixes the token in the Authorization header.
	BearerPrefix = "Bearer "

	// AuthStorageKey is the session storage key holding the serialized auth state.
	AuthStorageKey = "auth"

	// CSRFStorageKey is the session storage key holding the anti-forgery token.
	CSRFStorageKey = "csrf_token"
)

// Package auth exchanges facilities API client credentials for a bearer token
// using the OAuth2 client-credentials grant.
//
// The token endpoint receives a form-encoded POST with
// grant_type=client_credentials and the configured scope, authenticated with
// HTTP Basic auth. Tokens are not cached or refreshed: every call to Token
// performs a fresh exchange, and callers obtain one token per run.
package auth

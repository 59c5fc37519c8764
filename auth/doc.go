// Package auth verifies bearer tokens against a remotely-fetched signing key
// set and projects their claims into an AuthenticatedUser.
//
// The package is transport-agnostic: it knows nothing about HTTP headers or
// cookies. Callers hand it a raw token string and receive either a user
// projection or one of the sentinel failures in errors.go.
package auth

// Package httpauth is the HTTP boundary for authentication and
// authorization. It extracts credentials from requests, resolves them
// through the session manager, and maps failures to status codes.
package httpauth

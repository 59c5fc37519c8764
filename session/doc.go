// Package session manages the login → store → refresh → logout lifecycle of
// authenticated sessions.
//
// The Manager exchanges authorization codes with the identity provider,
// stores sessions behind opaque ids, refreshes access tokens before expiry
// (single-flight per session), and deletes sessions on logout or refresh
// rejection. Stores come in two flavors with identical expiry semantics: an
// in-memory backend for single-process deployments and a Redis backend for
// anything that scales horizontally.
package session

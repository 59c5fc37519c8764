// Package resilience provides the retry primitive the auth core applies to
// its identity-provider calls: key-set fetches, token exchanges and
// revocation each get a bounded timeout and at most one retry.
package resilience

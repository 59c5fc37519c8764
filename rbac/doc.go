// Package rbac maps verified users to the data they may see and the
// privileged actions they may take.
//
// Authorization is expressed as a visibility scope derived from roles, not
// as per-request allow/deny lookups. Callers translate the returned scope
// into query filters, so a missing or unknown role can never widen access.
package rbac

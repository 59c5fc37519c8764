// Package health exposes liveness and readiness probes for the service's
// dependencies: the session store and the identity provider's key set.
package health

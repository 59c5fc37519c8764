// Package config loads service configuration from the environment and
// wires the authentication components together.
//
// Secret-bearing values accept a "file://" reference so deployments can
// mount credentials instead of passing them through the environment.
package config

// Package observe provides the telemetry primitives for the auth core: a
// structured logger that redacts credentials, and an OpenTelemetry
// tracer/meter bootstrap with selectable exporters.
//
// It is pure instrumentation: no authentication logic, no I/O beyond
// exporter setup.
package observe

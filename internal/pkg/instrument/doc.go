// Package instrument sets up OpenTelemetry tracing, metrics and logs and the
// process-wide slog handler: JSON on stdout, correlation ids taken from the
// context, and masking of sensitive fields such as passcodes.
package instrument

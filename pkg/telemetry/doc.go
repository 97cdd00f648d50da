// Package telemetry bootstraps OpenTelemetry for the guardian CLI and
// records scan outcome metrics and span events. Scanned text and API keys
// are never attached to exported telemetry.
package telemetry

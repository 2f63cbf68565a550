// Package telemetry exports dispatch counters in the Prometheus format.
package telemetry

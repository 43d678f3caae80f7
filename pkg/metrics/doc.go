// Package metrics exports subscription engine measurements to Prometheus.
package metrics

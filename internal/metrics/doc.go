// Package metrics defines the Prometheus metrics of a mailer run, covering
// send attempts, successes, failures by kind and send latency. Each run owns
// its registry and can dump it as a node exporter textfile.
package metrics

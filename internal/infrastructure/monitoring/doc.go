/*
Package monitoring provides metrics collection for grid runs.

# Overview

This package implements Prometheus-based metrics on a private registry,
tracking grids, tiles, pipe throughput and transcoder launches. A command
line run has no scrape endpoint, so the values are written once at exit in
the text exposition format.

# Features

- Grid outcomes and durations
- Tile counters (fed, drained, short)
- Bytes written to and read from child processes per stage
- Transcoder start and failure counts

# Usage

	metrics := monitoring.NewMetrics()

	timer := monitoring.NewTimer(metrics)
	// ... decode, stitch, encode ...
	timer.Stop(monitoring.StatusSuccess)

	// Dump for the node_exporter textfile collector
	metrics.WriteTextfile("/var/lib/node_exporter/gridstitch.prom")

A nil *Metrics is accepted everywhere and records nothing.
*/
package monitoring

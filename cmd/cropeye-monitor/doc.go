// Package main provides the entry point for cropeye-monitor.
//
// cropeye-monitor is the HTTP monitoring service of the CropEye farming
// assistant. It serves a Prometheus scrape endpoint alongside health,
// farming query and simulated connection endpoints, and records request
// count and latency for every route.
//
// Usage:
//
//	cropeye-monitor [--config FILE] [--addr ADDR] [--log-level LEVEL]
package main

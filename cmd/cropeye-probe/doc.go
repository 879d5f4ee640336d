// Package main provides the entry point for cropeye-probe.
//
// cropeye-probe exercises a running cropeye-monitor from the command line:
// health checks, single requests, scrapes and small load runs.
package main

// Package command provides the cropeye-probe command tree.
//
// Commands built with urfave/cli/v2:
//
//   - health: liveness and readiness of the monitor
//   - query: one farming query
//   - connect: one simulated connection
//   - metrics: scrape and filter the exposition
//   - load: concurrent queries and connects with a latency summary
//
// Global settings resolve as flag > CROPEYE_PROBE_* env > probe.yaml >
// default. Results go to the app's Writer via an output.Formatter; progress
// goes to ErrWriter.
package command

// Package config holds the probe's persistent settings.
//
// Settings come from ~/.cropeye/probe.yaml and CROPEYE_PROBE_* environment
// variables, merged by confloader. Command-line flags override both.
package config

// Package buildinfo provides build information for cropeye-monitor.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/cropeye-monitor/internal/infra/buildinfo.Version=v1.0.0"
//
// When GoVersion is not injected it falls back to the running toolchain.
package buildinfo

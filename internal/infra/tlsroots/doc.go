// Package tlsroots loads TLS material for the monitor and the probe.
//
// Pool builds a root CA set from the system store plus PEM files; the probe
// uses it to trust a private CA. Reloader serves the monitor's key pair and
// swaps it in place when either file changes on disk, so certificates can
// be rotated without a restart.
package tlsroots

// Package confloader loads layered configuration into typed structs.
//
// Sources are merged with koanf, later sources overriding earlier ones:
//
//  1. Values already present in the target struct (defaults)
//  2. A YAML configuration file
//  3. Environment variables under a prefix (CROPEYE_MONITOR_ by default)
//  4. Overrides, usually built from command-line flags
//
// Environment variable names are the upper-cased key path joined with
// underscores. Keys that themselves contain underscores are resolved against
// the koanf tags of the target struct, so CROPEYE_MONITOR_LOG_ACCESS_LOG maps
// to log.access_log rather than log.access.log.
//
// Watcher reports changes to configuration files through fsnotify.
package confloader

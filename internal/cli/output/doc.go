// Package output renders probe results as tables, JSON or YAML.
//
// A Formatter is picked from the --output flag. Table output is derived
// from struct json tags so the same response types drive every format.
// ProgressBar and Spinner write transient status lines to stderr while
// long requests are in flight.
package output

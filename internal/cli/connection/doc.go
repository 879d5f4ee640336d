// Package connection is the probe's HTTP client for a running monitor.
//
// HTTPClient wraps each service endpoint in a typed call returning the
// server's own response types. Non-2xx replies become *APIError carrying
// the status and the service error code. ParseMetrics decodes a text
// exposition scrape into flat samples for display.
package connection

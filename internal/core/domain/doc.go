// Package domain defines the error taxonomy shared by the monitoring service.
//
// Every failure the service can report carries a structured code:
//
//   - MON-CFG-*: configuration errors, fatal at startup
//   - MON-ARG-*: request validation errors, answered with 4xx
//   - MON-MET-*: instrument usage errors
//   - MON-SYS-*: internal errors, answered with 5xx
//
// HTTPStatus maps a code to the response status used by the HTTP layer.
package domain

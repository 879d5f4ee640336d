// Package shutdown coordinates graceful process termination.
//
// A Handler collects named hooks and runs them in reverse registration
// order once SIGINT or SIGTERM arrives, the wait context is cancelled, or
// Trigger is called. All hooks share one deadline.
//
//	h := shutdown.NewHandler(30*time.Second, log)
//	h.OnShutdown("http", srv.Shutdown)
//	err := h.WaitContext(ctx)
package shutdown

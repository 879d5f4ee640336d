package command

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/cropeye-monitor/internal/server/httpserver"
	"github.com/yndnr/cropeye-monitor/internal/server/httpserver/handler"
	"github.com/yndnr/cropeye-monitor/internal/telemetry/metric"
)

// monitor is an in-process service behind httptest with simulated work
// disabled.
type monitor struct {
	*httptest.Server
	handler *handler.Handler
	metrics *metric.ServiceMetrics
}

func newMonitor(t *testing.T) *monitor {
	t.Helper()

	reg := metric.NewRegistry()
	sm, err := metric.NewServiceMetrics(reg, nil)
	if err != nil {
		t.Fatalf("NewServiceMetrics() error = %v", err)
	}
	h := handler.New(handler.Config{
		Registry: reg,
		Metrics:  sm,
		Sleep:    func(handler.DelayRange) {},
	})
	srv := httptest.NewServer(httpserver.NewRouter(&httpserver.RouterConfig{
		Handler: h,
		Metrics: sm,
	}))
	t.Cleanup(srv.Close)

	return &monitor{Server: srv, handler: h, metrics: sm}
}

// runApp runs the probe with args and returns stdout and stderr. HOME is
// pointed at an empty directory so no user config leaks in.
func runApp(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out, errOut bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.ExitErrHandler = func(*cli.Context, error) {}

	err = app.Run(append([]string{"cropeye-probe"}, args...))
	return out.String(), errOut.String(), err
}

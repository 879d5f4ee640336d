package command

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/yndnr/cropeye-monitor/internal/cli/connection"
	"github.com/yndnr/cropeye-monitor/internal/cli/output"
	"github.com/yndnr/cropeye-monitor/internal/server/httpserver/handler"
)

// Load endpoints, named like the server's endpoint label.
const (
	loadQuery   = "farming_query"
	loadConnect = "connect"
)

// loadClient is the part of the HTTP client a load run needs.
type loadClient interface {
	FarmingQuery(ctx context.Context, queryType string) (*handler.FarmingQueryResponse, error)
	Connect(ctx context.Context) (*handler.StatusResponse, error)
}

// LoadPlan describes one load run.
type LoadPlan struct {
	Queries     int
	Connects    int
	Concurrency int
	QueryType   string
}

// LoadResult summarizes one endpoint of a load run.
type LoadResult struct {
	Endpoint string         `json:"endpoint"`
	Requests int            `json:"requests"`
	Failed   int            `json:"failed"`
	Min      time.Duration  `json:"min_ns"`
	Mean     time.Duration  `json:"mean_ns"`
	Max      time.Duration  `json:"max_ns"`
	Errors   map[string]int `json:"errors,omitempty"`
}

// LoadCommand returns the load command.
func LoadCommand() *cli.Command {
	return &cli.Command{
		Name:  "load",
		Usage: "Fire concurrent farming queries and connects, then summarize",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "requests",
				Aliases: []string{"n"},
				Usage:   "Number of farming queries",
				Value:   20,
			},
			&cli.IntFlag{
				Name:  "connects",
				Usage: "Number of simulated connections",
				Value: 2,
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Aliases: []string{"c"},
				Usage:   "Requests in flight at once",
				Value:   4,
			},
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "Query type for every farming query",
			},
		},
		Action: loadAction,
	}
}

func loadAction(c *cli.Context) error {
	client, flags, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	plan := LoadPlan{
		Queries:     c.Int("requests"),
		Connects:    c.Int("connects"),
		Concurrency: c.Int("concurrency"),
		QueryType:   c.String("type"),
	}
	if err := plan.validate(); err != nil {
		return err
	}

	bar := output.NewProgressBar(statusWriter(c, flags), "load", int64(plan.Queries+plan.Connects))
	results, err := runLoad(commandContext(c), client, plan, bar.Increment)
	bar.Finish()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return render(c, flags, results)
}

func (p LoadPlan) validate() error {
	if p.Queries < 0 || p.Connects < 0 {
		return fmt.Errorf("--requests and --connects must not be negative")
	}
	if p.Queries+p.Connects == 0 {
		return fmt.Errorf("nothing to do: --requests and --connects are both 0")
	}
	if p.Concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}
	return nil
}

// runLoad executes plan with at most plan.Concurrency requests in flight.
// Request failures are counted, not returned; only cancellation of ctx
// aborts the run. done is called once per finished request.
func runLoad(ctx context.Context, client loadClient, plan LoadPlan, done func(failed bool)) ([]LoadResult, error) {
	stats := map[string]*loadStats{
		loadQuery:   {},
		loadConnect: {},
	}
	var mu sync.Mutex
	record := func(endpoint string, elapsed time.Duration, err error) {
		mu.Lock()
		stats[endpoint].add(elapsed, err)
		mu.Unlock()
		if done != nil {
			done(err != nil)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(plan.Concurrency)

	// Connects go first so they overlap with the queries.
	jobs := make([]string, 0, plan.Queries+plan.Connects)
	for i := 0; i < plan.Connects; i++ {
		jobs = append(jobs, loadConnect)
	}
	for i := 0; i < plan.Queries; i++ {
		jobs = append(jobs, loadQuery)
	}

	for _, endpoint := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			start := time.Now()
			var err error
			switch endpoint {
			case loadConnect:
				_, err = client.Connect(gctx)
			default:
				_, err = client.FarmingQuery(gctx, plan.QueryType)
			}
			record(endpoint, time.Since(start), err)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load aborted: %w", err)
	}

	var results []LoadResult
	for _, endpoint := range []string{loadQuery, loadConnect} {
		if s := stats[endpoint]; s.count > 0 {
			results = append(results, s.result(endpoint))
		}
	}
	return results, nil
}

type loadStats struct {
	count  int
	failed int
	total  time.Duration
	min    time.Duration
	max    time.Duration
	errors map[string]int
}

func (s *loadStats) add(elapsed time.Duration, err error) {
	if s.count == 0 || elapsed < s.min {
		s.min = elapsed
	}
	if elapsed > s.max {
		s.max = elapsed
	}
	s.count++
	s.total += elapsed

	if err == nil {
		return
	}
	s.failed++
	if s.errors == nil {
		s.errors = map[string]int{}
	}
	s.errors[errorKey(err)]++
}

func (s *loadStats) result(endpoint string) LoadResult {
	r := LoadResult{
		Endpoint: endpoint,
		Requests: s.count,
		Failed:   s.failed,
		Min:      s.min,
		Max:      s.max,
		Errors:   s.errors,
	}
	if s.count > 0 {
		r.Mean = s.total / time.Duration(s.count)
	}
	return r
}

// errorKey buckets an error by HTTP status, or "transport" when the request
// never got a reply.
func errorKey(err error) string {
	if code := connection.StatusCode(err); code != 0 {
		return strconv.Itoa(code)
	}
	return "transport"
}

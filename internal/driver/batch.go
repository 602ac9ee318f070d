package driver

import (
	"context"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stride3d/stride-sub014/internal/trace"
)

// Status of one request in a batch.
type Status int

const (
	StatusQueued Status = iota
	StatusRunning
	StatusDone
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Event reports the progress of request Index of a batch.
type Event struct {
	Index   int
	Name    string
	Status  Status
	Elapsed time.Duration
	Result  *Result // set once the request finished
}

// Observer receives batch events. It is called from worker goroutines.
type Observer func(Event)

// CompileAll compiles reqs on up to jobs goroutines (GOMAXPROCS when jobs
// is not positive). Results are in request order. A failed compilation does
// not stop the batch; only ctx does.
func (c *Compiler) CompileAll(ctx context.Context, reqs []Request, jobs int, obs Observer) ([]*Result, error) {
	if obs == nil {
		obs = func(Event) {}
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	span, ctx := trace.Start(ctx, trace.ScopeDriver, "batch")
	for i, req := range reqs {
		obs(Event{Index: i, Name: req.label(), Status: StatusQueued})
	}

	results := make([]*Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(reqs))))
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			obs(Event{Index: i, Name: req.label(), Status: StatusRunning})
			res, err := c.Compile(trace.WithJob(gctx, i+1), req)
			if err != nil {
				return err
			}
			// index i belongs to this goroutine only
			results[i] = res
			status := StatusDone
			if res.Failed() {
				status = StatusFailed
			}
			obs(Event{Index: i, Name: req.label(), Status: status, Elapsed: time.Since(start), Result: res})
			return nil
		})
	}
	err := g.Wait()
	failed := 0
	for _, r := range results {
		if r == nil || r.Failed() {
			failed++
		}
	}
	span.WithExtra("failed", strconv.Itoa(failed)).End(strconv.Itoa(len(reqs)) + " requests")
	return results, err
}

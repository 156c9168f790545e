package sweeper

import (
    "context"
    "log"
    "time"
)

// Runner executes periodic sweeps for as long as the service is up.  It
// owns its lifecycle explicitly — started once at boot, stopped during
// shutdown — instead of being tied to any request handling.  The runner
// is best-effort: the scheduler-facing HTTP endpoint covers the windows
// when no process is running.
type Runner struct {
    cancel context.CancelFunc
    done   chan struct{}
}

// StartRunner begins sweeping: once immediately, then every interval,
// until Stop is called or the parent context is cancelled.  An in-flight
// sweep is not aborted by a tick; each cycle re-queries from scratch, so
// a failed cycle simply waits for the next one.
func StartRunner(parent context.Context, s *Sweeper, interval time.Duration) *Runner {
    ctx, cancel := context.WithCancel(parent)
    r := &Runner{cancel: cancel, done: make(chan struct{})}
    go func() {
        defer close(r.done)
        run := func() {
            res, err := s.Sweep(ctx)
            if err != nil {
                log.Printf("sweeper: cycle failed: %v", err)
                return
            }
            if res.Cancelled > 0 {
                log.Printf("sweeper: expired %d unpaid reservation(s)", res.Cancelled)
            }
        }
        run()
        ticker := time.NewTicker(interval)
        defer ticker.Stop()
        for {
            select {
            case <-ctx.Done():
                return
            case <-ticker.C:
                run()
            }
        }
    }()
    return r
}

// Stop cancels the runner and waits for the current cycle to finish.
func (r *Runner) Stop() {
    r.cancel()
    <-r.done
}

// Package bulk applies one operation to many inputs with a bounded pool of
// workers, collecting per-input failures instead of aborting on the first.
package bulk

import (
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Operation configures a bulk run.
type Operation struct {
	// Jobs is the number of workers. Zero means one per CPU.
	Jobs int
	// ContinueOnError keeps processing after a failure. Otherwise workers
	// stop picking up new inputs once any input has failed.
	ContinueOnError bool
	Logger          *zap.Logger
}

// Result summarizes a bulk run.
type Result struct {
	TotalItems int         `json:"total"`
	Succeeded  int         `json:"succeeded"`
	Failed     int         `json:"failed"`
	Skipped    int         `json:"skipped"`
	Errors     []ItemError `json:"errors,omitempty"`
}

// ItemError records the failure of a single input.
type ItemError struct {
	Index int    `json:"-"`
	Item  string `json:"item"`
	Err   error  `json:"-"`
	// Message mirrors Err for serialized output.
	Message string `json:"error"`
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Item, e.Err)
}

// ItemFunc processes one input.
type ItemFunc func(item string) error

// Execute runs fn over items. Errors are reported in input order whatever
// order the workers finished in.
func (op *Operation) Execute(items []string, fn ItemFunc) *Result {
	result := &Result{TotalItems: len(items)}
	if len(items) == 0 {
		return result
	}

	logger := op.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	jobs := op.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	var (
		succeeded int32
		stop      int32
		mu        sync.Mutex
		g         errgroup.Group
	)
	g.SetLimit(jobs)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if !op.ContinueOnError && atomic.LoadInt32(&stop) == 1 {
				return nil
			}

			if err := fn(item); err != nil {
				logger.Warn("bulk item failed", zap.String("item", item), zap.Error(err))
				mu.Lock()
				result.Errors = append(result.Errors, ItemError{
					Index:   i,
					Item:    item,
					Err:     err,
					Message: err.Error(),
				})
				mu.Unlock()
				if !op.ContinueOnError {
					atomic.StoreInt32(&stop, 1)
				}
				return nil
			}
			atomic.AddInt32(&succeeded, 1)
			logger.Debug("bulk item done", zap.String("item", item))
			return nil
		})
	}
	g.Wait()

	sort.Slice(result.Errors, func(i, j int) bool {
		return result.Errors[i].Index < result.Errors[j].Index
	})
	result.Succeeded = int(succeeded)
	result.Failed = len(result.Errors)
	result.Skipped = result.TotalItems - result.Succeeded - result.Failed
	return result
}

// ExitCode maps the result to a process exit status: 0 when everything
// succeeded, 5 on partial success, 1 when nothing succeeded.
func (r *Result) ExitCode() int {
	if r.Failed == 0 {
		return 0
	}
	if r.Succeeded > 0 {
		return 5
	}
	return 1
}

// PrintSummary writes a human-readable summary, listing at most ten errors.
func (r *Result) PrintSummary(w io.Writer) {
	switch {
	case r.Failed == 0:
		fmt.Fprintf(w, "✓ All %d operations succeeded\n", r.TotalItems)
	case r.Succeeded == 0:
		fmt.Fprintf(w, "✗ All %d operations failed\n", r.Failed)
	default:
		fmt.Fprintf(w, "⚠ Partial success: %d succeeded, %d failed (out of %d)\n",
			r.Succeeded, r.Failed, r.TotalItems)
	}
	if r.Skipped > 0 {
		fmt.Fprintf(w, "  %d not attempted\n", r.Skipped)
	}

	shown := r.Errors
	if len(shown) > 10 {
		fmt.Fprintf(w, "\nShowing first 10 errors (of %d):\n", len(shown))
		shown = shown[:10]
	} else if len(shown) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
	}
	for _, e := range shown {
		fmt.Fprintf(w, "  %s: %v\n", e.Item, e.Err)
	}
}

// Package dispatch runs one remote query per selected file under a
// shared concurrency limit, collecting per-file outcomes in input
// order. A single file's failure never aborts its siblings.
package dispatch

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spoj/mq-mcp/internal/model"
	"github.com/spoj/mq-mcp/internal/qerr"
	"github.com/spoj/mq-mcp/internal/selector"
)

// Outcome is one file's result: an answer or an error, never both.
type Outcome struct {
	Path   string
	Answer string
	Err    error
}

// Dispatcher fans queries out over a batch of targets. The Limiter is
// shared across all Dispatcher invocations in the process.
type Dispatcher struct {
	limiter *Limiter
	client  model.QueryClient
	retry   RetryPolicy
	logger  *slog.Logger
}

// New creates a Dispatcher.
func New(limiter *Limiter, client model.QueryClient, retry RetryPolicy, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		limiter: limiter,
		client:  client,
		retry:   retry,
		logger:  logger,
	}
}

// Run queries every target with the given query text. The returned
// slice has exactly one outcome per target, in target order, however
// the tasks complete. On ctx cancellation partial outcomes are
// discarded and the ctx error is returned.
func (d *Dispatcher) Run(ctx context.Context, query string, targets []selector.Target) ([]Outcome, error) {
	batchID := uuid.NewString()
	start := time.Now()

	d.logger.Debug("Dispatching batch",
		"batch", batchID,
		"files", len(targets),
	)

	outcomes := make([]Outcome, len(targets))
	var wg sync.WaitGroup

	for i, target := range targets {
		wg.Add(1)
		go func(idx int, tgt selector.Target) {
			defer wg.Done()
			outcomes[idx] = d.runTask(ctx, batchID, query, tgt)
		}(i, target)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		d.logger.Warn("Batch cancelled",
			"batch", batchID,
			"error", err.Error(),
		)
		return nil, err
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	d.logger.Info("Batch complete",
		"batch", batchID,
		"files", len(targets),
		"failed", failed,
		"durationMs", time.Since(start).Milliseconds(),
	)

	return outcomes, nil
}

// runTask processes one target: acquire a slot, read the file, query
// the model under the retry policy. The slot is released on every
// path.
func (d *Dispatcher) runTask(ctx context.Context, batchID, query string, tgt selector.Target) Outcome {
	// Selection-time errors skip dispatch entirely.
	if tgt.Err != nil {
		return Outcome{Path: tgt.Rel, Err: tgt.Err}
	}

	if err := d.limiter.Acquire(ctx); err != nil {
		return Outcome{Path: tgt.Rel, Err: err}
	}
	defer d.limiter.Release()

	content, err := os.ReadFile(tgt.Abs)
	if err != nil {
		d.logger.Debug("File read failed",
			"batch", batchID,
			"path", tgt.Rel,
			"error", err.Error(),
		)
		return Outcome{Path: tgt.Rel, Err: qerr.New(qerr.FileRead, "cannot read "+tgt.Rel, err)}
	}

	answer, err := d.retry.Do(ctx, func() (string, error) {
		return d.client.Ask(ctx, query, string(content))
	})
	if err != nil {
		if qerr.CodeOf(err) == qerr.RateLimited {
			// Retries exhausted; the transient error becomes terminal.
			err = qerr.New(qerr.ModelQuery, "retries exhausted for "+tgt.Rel, err)
		}
		d.logger.Debug("Model query failed",
			"batch", batchID,
			"path", tgt.Rel,
			"error", err.Error(),
		)
		return Outcome{Path: tgt.Rel, Err: err}
	}

	return Outcome{Path: tgt.Rel, Answer: answer}
}

package worker

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/platenhq/platen/prompt"
)

// Batch processes payloads concurrently, at most maxConcurrent at a
// time. The returned slice is indexed like payloads: item i's Result
// lands in slot i, and one failing item never disturbs its neighbors.
//
// The provider is resolved once up front, so a configuration problem
// fails the whole batch before any dispatch. Cancelling ctx stops new
// dispatches, joins the in-flight items, and returns the context's
// error; Batch never returns a partial result list.
func (w *Worker) Batch(ctx context.Context, payloads []any, sel prompt.Selection) ([]Result, error) {
	p, err := w.resolve()
	if err != nil {
		return nil, err
	}

	log := w.log.With("run_id", uuid.NewString())
	log.Info("batch started",
		"items", len(payloads),
		"provider", p.Name(),
		"prompt_type", sel.Type,
		"max_concurrent", w.maxConcurrent)

	sem := semaphore.NewWeighted(int64(w.maxConcurrent))
	results := make([]Result, len(payloads))

	var wg sync.WaitGroup
	var dispatchErr error
	for i, payload := range payloads {
		if err := sem.Acquire(ctx, 1); err != nil {
			dispatchErr = err
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = w.processItem(ctx, log.With("item", i), p, payload, sel)
		}()
	}
	wg.Wait()

	if dispatchErr != nil {
		log.Warn("batch cancelled", "error", dispatchErr)
		return nil, dispatchErr
	}
	if err := ctx.Err(); err != nil {
		log.Warn("batch cancelled", "error", err)
		return nil, err
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	log.Info("batch finished", "succeeded", succeeded, "failed", len(results)-succeeded)

	return results, nil
}

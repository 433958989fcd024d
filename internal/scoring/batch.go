package scoring

import (
	"context"
	"sync"
	"time"

	"home-services-leads/internal/models"
)

// BatchItem is one unit of batch scoring work
type BatchItem struct {
	Inputs Inputs
	Trade  models.Trade
}

// BatchError records a per-item failure without aborting the batch
type BatchError struct {
	PropertyID string
	Trade      models.Trade
	Err        error
}

func (e BatchError) Error() string {
	return "score " + e.PropertyID + "/" + string(e.Trade) + ": " + e.Err.Error()
}

// ScoreBatch scores many (property, trade) pairs on a bounded worker
// pool. Per-item failures are collected, not fatal. On context
// cancellation dispatch stops, in-flight items drain, and completed
// results are returned alongside ctx.Err().
func (e *Engine) ScoreBatch(ctx context.Context, items []BatchItem, asOf time.Time) ([]*ScoreResult, []BatchError, error) {
	workers := e.cfg.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	jobs := make(chan BatchItem)
	var (
		mu      sync.Mutex
		results []*ScoreResult
		errs    []BatchError
		wg      sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				res, err := e.Score(item.Inputs, item.Trade, asOf)
				mu.Lock()
				if err != nil {
					errs = append(errs, BatchError{
						PropertyID: item.Inputs.Property.PropID,
						Trade:      item.Trade,
						Err:        err,
					})
				} else {
					results = append(results, res)
				}
				mu.Unlock()
			}
		}()
	}

	var dispatchErr error
dispatch:
	for _, item := range items {
		select {
		case <-ctx.Done():
			dispatchErr = ctx.Err()
			break dispatch
		case jobs <- item:
		}
	}
	close(jobs)
	wg.Wait()

	return results, errs, dispatchErr
}

package guardian

import (
	"context"
	"sync"
)

// ScanBatch scans every text concurrently over a bounded worker pool and
// returns results index-aligned with the input regardless of dispatch order.
//
// Failure policy: one element's failure never aborts the batch. Each
// element's error is captured in its BatchItem and counted in Failed; the
// aggregate Blocked/Allowed counts cover only completed scans. ScanBatch
// itself returns an error only when the caller's context is cancelled or
// its deadline expires before all elements finish.
func (c *Client) ScanBatch(ctx context.Context, texts []string, opts ...ScanOption) (*BatchResult, error) {
	result := &BatchResult{
		Total: len(texts),
		Items: make([]BatchItem, len(texts)),
	}
	if len(texts) == 0 {
		return result, nil
	}

	workers := c.batchWorkers
	if workers > len(texts) {
		workers = len(texts)
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				res, err := c.Scan(ctx, texts[i], opts...)
				result.Items[i] = BatchItem{Result: res, Err: err}
			}
		}()
	}

dispatch:
	for i := range texts {
		select {
		case indexes <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(indexes)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, item := range result.Items {
		switch {
		case item.Err != nil:
			result.Failed++
		case item.Result.Blocked:
			result.Blocked++
		default:
			result.Allowed++
		}
	}
	return result, nil
}

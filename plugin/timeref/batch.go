package timeref

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Drgblack/timemeaning/plugin/timeref/failure"
)

// ResolveBatch resolves every item independently. Items run on a bounded
// pool; results keep request order. A failing item is reported in its slot
// and never fails the batch.
func (e *Engine) ResolveBatch(ctx context.Context, req *BatchRequest) (*BatchResponse, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, failure.InvalidInput("batch has no items")
	}
	if len(req.Items) > MaxBatchSize {
		return nil, failure.InvalidInput(fmt.Sprintf("batch has %d items; the limit is %d", len(req.Items), MaxBatchSize))
	}

	results := make([]BatchResult, len(req.Items))
	g := new(errgroup.Group)
	g.SetLimit(e.workers)
	for i := range req.Items {
		g.Go(func() error {
			results[i] = e.resolveItem(ctx, i, &req.Items[i])
			return nil
		})
	}
	_ = g.Wait()

	resp := &BatchResponse{Results: results}
	for _, r := range results {
		if r.Error != nil {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}
	return resp, nil
}

func (e *Engine) resolveItem(ctx context.Context, index int, item *Request) BatchResult {
	resp, err := e.Resolve(ctx, item)
	if err != nil {
		body := NewErrorBody(err)
		return BatchResult{Index: index, Error: &body}
	}
	return BatchResult{Index: index, Response: resp}
}

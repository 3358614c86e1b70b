package workflow

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BatchItem is the outcome of one document in a batch.
type BatchItem struct {
	DocumentID uuid.UUID
	Result     *Result
	Err        error
}

// RunBatch runs independent documents in parallel. Items come back in input order; one
// document failing does not stop the others.
func (e *Engine) RunBatch(ctx context.Context, ids []uuid.UUID) []BatchItem {
	items := make([]BatchItem, len(ids))

	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for i, id := range ids {
		g.Go(func() error {
			res, err := e.Run(ctx, id)
			items[i] = BatchItem{DocumentID: id, Result: res, Err: err}

			return nil
		})
	}

	_ = g.Wait()

	return items
}

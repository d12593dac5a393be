package ingest

import (
	"context"
	"fmt"

	"github.com/pierrefittel/okura/pkg/analysis"
)

// AnalyzeAll analyzes docs concurrently on a worker pool and returns the
// results in document order. The first failure aborts the remaining work.
func AnalyzeAll(ctx context.Context, engine Analyzer, lang string, docs []Document, workers int) ([]*analysis.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*analysis.Result, len(docs))
	wp := NewWorkerPool(workers, 0)
	wp.Start(ctx)

	for i, doc := range docs {
		i, doc := i, doc
		err := wp.SubmitCtx(ctx, func(ctx context.Context) error {
			res, err := engine.AnalyzeFile(doc.Data, doc.Name, lang)
			if err != nil {
				cancel()
				return fmt.Errorf("analyze %s: %w", doc.Name, err)
			}
			results[i] = res
			return nil
		})
		if err != nil {
			break
		}
	}
	wp.Close()

	if err := wp.Err(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

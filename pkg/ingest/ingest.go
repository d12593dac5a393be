// Package ingest imports whole documents into a card list: documents are
// analyzed concurrently, reassembled in order, and their new candidates are
// written as cards in batches.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pierrefittel/okura/pkg/analysis"
	"github.com/pierrefittel/okura/pkg/db"
	"github.com/pierrefittel/okura/pkg/srs"
)

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// Analyzer is the part of the analysis engine an import needs.
type Analyzer interface {
	AnalyzeFile(data []byte, filename, lang string) (*analysis.Result, error)
}

// Document is one file to import.
type Document struct {
	Name string
	Data []byte
}

// Ingester handles the import of documents into a card list.
type Ingester struct {
	DB        *sql.DB
	Engine    Analyzer
	Scheduler *srs.Scheduler
	BatchSize int
	// ContentOnly keeps only nouns, verbs, adjectives and adverbs.
	ContentOnly bool
	Logger      *slog.Logger
	// OnProgress is called with the number of documents written so far.
	OnProgress func(current, total int)
	Now        func() time.Time

	// Concurrency settings
	Workers int

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewIngester creates a new Ingester.
func NewIngester(conn *sql.DB, engine Analyzer) *Ingester {
	sched, _ := srs.NewScheduler(srs.DefaultParams())
	return &Ingester{
		DB:        conn,
		Engine:    engine,
		Scheduler: sched,
		BatchSize: 50,
		Workers:   4,
		Logger:    slog.Default(),
		Now:       time.Now,
	}
}

type cardKey struct {
	term, reading, pos string
}

type analyzedDoc struct {
	index  int
	name   string
	result *analysis.Result
	err    error
}

// Ingest analyzes docs in lang and adds one card per candidate not already
// in the list, keeping the first occurrence across all documents. It returns
// the number of cards created.
func (ig *Ingester) Ingest(ctx context.Context, listID uuid.UUID, lang string, docs []Document) (int, error) {
	if _, err := db.GetList(ctx, ig.DB, listID); err != nil {
		return 0, err
	}
	seen, err := ig.existingKeys(ctx, listID)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wp WorkerPoolInterface
	if ig.PoolFactory != nil {
		wp = ig.PoolFactory(ig.Workers, ig.Workers*2)
	} else {
		wp = NewWorkerPool(ig.Workers, ig.Workers*2)
	}
	resultCh := make(chan analyzedDoc, ig.Workers*2)
	bw := NewBatchWriter(ig.DB, ig.BatchSize, 100*time.Millisecond)

	// Cards count as created only once their batch commits.
	var created, pending int64
	bw.OnCommit = func() { atomic.AddInt64(&created, atomic.SwapInt64(&pending, 0)) }
	bw.OnError = func(error) { atomic.StoreInt64(&pending, 0) }
	consumerDone := make(chan error, 1)

	wp.Start(ctx)

	// Results arrive in completion order; they are written in document order
	// so that the first occurrence of a word keeps its context.
	go func() {
		buffer := make(map[int]analyzedDoc)
		next := 0
		for res := range resultCh {
			if res.err != nil {
				cancel()
				consumerDone <- fmt.Errorf("analyze %s: %w", res.name, res.err)
				return
			}
			buffer[res.index] = res
			for {
				item, ok := buffer[next]
				if !ok {
					break
				}
				delete(buffer, next)
				if err := ig.write(bw, listID, item, seen, &pending); err != nil {
					cancel()
					consumerDone <- err
					return
				}
				next++
				if ig.OnProgress != nil {
					ig.OnProgress(next, len(docs))
				}
			}
		}
		consumerDone <- nil
	}()

	var submitErr error
Loop:
	for i, doc := range docs {
		idx, doc := i, doc
		job := func(ctx context.Context) error {
			res, err := ig.Engine.AnalyzeFile(doc.Data, doc.Name, lang)
			select {
			case resultCh <- analyzedDoc{index: idx, name: doc.Name, result: res, err: err}:
			case <-ctx.Done():
			}
			return nil
		}

		if err := wp.SubmitCtx(ctx, job); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, ErrPoolClosed) {
				break Loop
			}
			submitErr = err
			cancel()
			break Loop
		}
	}

	// All sends to resultCh happen inside jobs, so once the pool has drained
	// it is safe to close.
	wp.Close()
	close(resultCh)
	consumerErr := <-consumerDone
	closeErr := bw.Close()

	n := int(atomic.LoadInt64(&created))
	switch {
	case submitErr != nil:
		return n, submitErr
	case consumerErr != nil:
		return n, consumerErr
	case closeErr != nil:
		return n, closeErr
	case parent.Err() != nil:
		return n, parent.Err()
	}

	ig.logger().InfoContext(parent, "import finished", "list_id", listID, "documents", len(docs), "cards", n)
	return n, nil
}

// write queues the cards for the new candidates of one document.
func (ig *Ingester) write(bw *BatchWriter, listID uuid.UUID, doc analyzedDoc, seen map[cardKey]bool, pending *int64) error {
	cands := doc.result.Candidates
	if ig.ContentOnly {
		cands = analysis.ContentWords(cands, doc.result.Language)
	}

	now := ig.now()
	var cards []db.Card
	for _, c := range cands {
		key := cardKey{c.Lemma, c.Reading, c.POS}
		if seen[key] {
			continue
		}
		seen[key] = true
		cards = append(cards, db.Card{
			ID:          uuid.New(),
			ListID:      listID,
			Term:        c.Lemma,
			Reading:     c.Reading,
			POS:         c.POS,
			EntrySeq:    c.EntrySeq,
			Definitions: c.Definitions,
			Context:     c.Context,
			CreatedAt:   now,
			State:       ig.Scheduler.NewState(now),
		})
	}
	if len(cards) == 0 {
		return nil
	}

	return bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
		for _, c := range cards {
			if err := db.InsertCard(ctx, tx, c); err != nil {
				return fmt.Errorf("failed to persist card %s from %s: %w", c.Term, doc.name, err)
			}
			atomic.AddInt64(pending, 1)
		}
		return nil
	})
}

func (ig *Ingester) existingKeys(ctx context.Context, listID uuid.UUID) (map[cardKey]bool, error) {
	cards, err := db.GetCards(ctx, ig.DB, db.CardFilter{ListID: &listID})
	if err != nil {
		return nil, err
	}
	seen := make(map[cardKey]bool, len(cards))
	for _, c := range cards {
		seen[cardKey{c.Term, c.Reading, c.POS}] = true
	}
	return seen, nil
}

func (ig *Ingester) now() time.Time {
	if ig.Now != nil {
		return ig.Now()
	}
	return time.Now()
}

func (ig *Ingester) logger() *slog.Logger {
	if ig.Logger != nil {
		return ig.Logger
	}
	return slog.Default()
}

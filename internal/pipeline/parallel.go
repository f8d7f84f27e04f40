package pipeline

import (
	"context"
	"io"
	"sync"

	"github.com/cord19q/cord19q/internal/corpus"
	"golang.org/x/sync/errgroup"
)

type job struct {
	seq int
	row corpus.Row
}

// streamParallel normalizes rows on a pool of workers while a single writer
// (the calling goroutine) persists them in input order. At most window rows
// are in flight, so a slow row bounds how far the workers run ahead.
func (p *Pipeline) streamParallel(ctx context.Context, workers int) error {
	g, gctx := errgroup.WithContext(ctx)

	window := workers * 4
	slots := make(chan struct{}, window)
	jobs := make(chan job, workers)
	results := make(chan document, workers)

	g.Go(func() error {
		defer close(jobs)
		for seq := 0; ; seq++ {
			if err := gctx.Err(); err != nil {
				return err
			}
			row, err := p.meta.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}

			select {
			case slots <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			select {
			case jobs <- job{seq: seq, row: row}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for j := range jobs {
				doc := p.prepare(j.row)
				doc.seq = j.seq
				select {
				case results <- doc:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Re-sequence: write documents strictly in input order.
	pending := make(map[int]document, window)
	next := 0
	for doc := range results {
		pending[doc.seq] = doc
		for {
			d, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			p.write(d)
			next++
			<-slots
		}
	}

	return g.Wait()
}

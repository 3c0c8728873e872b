package marketdata

import (
	"context"
	"io"
	"sync"

	"github.com/kestrel-trading/kestrel/models"
)

// MultiSource fans in bars from several underlying sources concurrently,
// generalizing the teacher's "process symbols concurrently" polling loop to
// the pull-based PriceSource interface: one goroutine pumps each underlying
// source into a shared channel, and Next drains whichever bar arrives first.
type MultiSource struct {
	bars   chan models.PriceBar
	errs   chan error
	done   chan struct{}
	sources []PriceSource

	closeOnce sync.Once
}

// Merge combines sources into a single PriceSource. It exhausts (returns
// io.EOF) once every underlying source has reached io.EOF.
func Merge(sources ...PriceSource) *MultiSource {
	m := &MultiSource{
		bars:    make(chan models.PriceBar),
		errs:    make(chan error, len(sources)),
		done:    make(chan struct{}),
		sources: sources,
	}

	var wg sync.WaitGroup
	wg.Add(len(sources))
	for _, s := range sources {
		go func(s PriceSource) {
			defer wg.Done()
			ctx := context.Background()
			for {
				bar, err := s.Next(ctx)
				if err != nil {
					if err != io.EOF {
						select {
						case m.errs <- err:
						case <-m.done:
						}
					}
					return
				}
				select {
				case m.bars <- bar:
				case <-m.done:
					return
				}
			}
		}(s)
	}

	go func() {
		wg.Wait()
		close(m.bars)
	}()

	return m
}

// Next returns the next bar from whichever underlying source produces one
// first, a propagated infrastructure error, or io.EOF once every source is
// exhausted.
func (m *MultiSource) Next(ctx context.Context) (models.PriceBar, error) {
	select {
	case <-ctx.Done():
		return models.PriceBar{}, ctx.Err()
	case err := <-m.errs:
		return models.PriceBar{}, err
	case bar, ok := <-m.bars:
		if !ok {
			return models.PriceBar{}, io.EOF
		}
		return bar, nil
	}
}

// Close signals every pump goroutine to stop and closes each underlying
// source.
func (m *MultiSource) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	var firstErr error
	for _, s := range m.sources {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

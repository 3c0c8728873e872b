package marketdata

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/kestrel-trading/kestrel/models"
)

// PriceSource is the external collaborator that feeds the engine a stream
// of price bars — a replay file, a live exchange feed, or the
// price-forwarder HTTP stream. The engine never depends on a concrete
// implementation.
type PriceSource interface {
	// Next blocks until a bar is available, the context is cancelled, or
	// the stream is exhausted (io.EOF).
	Next(ctx context.Context) (models.PriceBar, error)
	Close() error
}

// FileSource replays newline-delimited bar records from an io.Reader —
// typically the file named by the FILE environment variable.
type FileSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	closed  atomic.Bool
}

// NewFileSource wraps r as a PriceSource. If r also implements io.Closer,
// Close releases it.
func NewFileSource(r io.Reader) *FileSource {
	fs := &FileSource{scanner: bufio.NewScanner(r)}
	fs.scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if c, ok := r.(io.Closer); ok {
		fs.closer = c
	}
	return fs
}

// Next returns the next well-formed bar, skipping and logging malformed
// records via ParseRecord's error, and returns io.EOF once the stream is
// exhausted.
func (f *FileSource) Next(ctx context.Context) (models.PriceBar, error) {
	for {
		if f.closed.Load() {
			return models.PriceBar{}, errSourceClosed
		}
		select {
		case <-ctx.Done():
			return models.PriceBar{}, ctx.Err()
		default:
		}

		if !f.scanner.Scan() {
			if err := f.scanner.Err(); err != nil {
				return models.PriceBar{}, err
			}
			return models.PriceBar{}, io.EOF
		}
		line := f.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		bar, err := ParseRecord(line)
		if err != nil {
			// Malformed records are skipped, not fatal — the caller is
			// expected to log and count them via the infrastructure-error
			// policy in spec.md §7.
			continue
		}
		return *bar, nil
	}
}

func (f *FileSource) Close() error {
	f.closed.Store(true)
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// errSourceClosed is returned by a source's Next once Close has been
// called.
var errSourceClosed = fmt.Errorf("marketdata: source closed")

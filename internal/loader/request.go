package loader

import (
	"context"
	"fmt"
	"io"
)

// Progress reports bytes read so far. Total is -1 when the source does not
// announce a length.
type Progress struct {
	Loaded int64
	Total  int64
}

// Ratio returns Loaded/Total, or false when the total is unknown.
func (p Progress) Ratio() (float64, bool) {
	if p.Total <= 0 {
		return 0, false
	}
	return float64(p.Loaded) / float64(p.Total), true
}

// Handlers receive the outcome of a load. Any of them may be nil. They are
// invoked through the loader's post function, never concurrently with each
// other when post serializes.
type Handlers[T any] struct {
	OnProgress func(Progress)
	OnLoad     func(T)
	OnError    func(error)
}

// LoadError names the asset that failed and why.
type LoadError struct {
	URL string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.URL, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Request is the future side of an asynchronous load.
type Request[T any] struct {
	URL string

	done  chan struct{}
	value T
	err   error
}

func newRequest[T any](url string) *Request[T] {
	return &Request[T]{URL: url, done: make(chan struct{})}
}

func (r *Request[T]) resolve(value T, err error) {
	r.value, r.err = value, err
	close(r.done)
}

// Done is closed once the load has finished either way.
func (r *Request[T]) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the load finishes or ctx ends.
func (r *Request[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// countingReader reports progress every step bytes and once at EOF.
type countingReader struct {
	r        io.Reader
	total    int64
	loaded   int64
	reported int64
	step     int64
	report   func(Progress)
}

const progressStep = 64 * 1024

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.loaded += int64(n)
	if c.report != nil && (c.loaded-c.reported >= c.step || (err == io.EOF && c.loaded != c.reported)) {
		c.reported = c.loaded
		c.report(Progress{Loaded: c.loaded, Total: c.total})
	}
	return n, err
}

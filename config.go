package liteql

import "io"

// options holds the tunables a Database is built with.
type options struct {
	maxConcurrency int
	diagnostics    func(error)
}

// Option configures a Database at Open time.
type Option func(*options)

// WithMaxConcurrency bounds how many cells within a single page are
// decoded concurrently. The file handle itself is still only ever
// touched by one in-flight readPage call: this only parallelises
// decoding of bytes already read into memory.
func WithMaxConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConcurrency = n
		}
	}
}

// WithDiagnostics overrides how per-page traversal errors are reported.
// The default logs via the standard log package and continues, so a bad
// page costs its subtree rather than the whole query.
func WithDiagnostics(fn func(error)) Option {
	return func(o *options) {
		if fn != nil {
			o.diagnostics = fn
		}
	}
}

func defaultOptions() *options {
	return &options{
		maxConcurrency: 8,
		diagnostics:    defaultDiagnostics,
	}
}

// resourceManager closes its registered resources in reverse (LIFO)
// order and remembers the first error.
type resourceManager struct {
	closers []io.Closer
}

func newResourceManager() *resourceManager {
	return &resourceManager{}
}

func (rm *resourceManager) add(c io.Closer) {
	rm.closers = append(rm.closers, c)
}

func (rm *resourceManager) Close() error {
	var first error
	for i := len(rm.closers) - 1; i >= 0; i-- {
		if err := rm.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

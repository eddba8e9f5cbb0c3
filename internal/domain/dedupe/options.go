package dedupe

// Option configures the in-memory deduper.
type Option func(*ringDeduper)

// WithMaxSize bounds how many ids are remembered. Values <= 0 keep every id.
func WithMaxSize(maxSize int) Option {
	return func(d *ringDeduper) {
		d.capacity = maxSize
	}
}

package pipeline

// Option configures a Compiler during creation.
type Option func(*options)

type options struct {
	strictVertexLayout bool
}

// WithStrictVertexLayout makes Compile fail with an *UnmatchedAttributeError
// when a shader input is missing from every geometry buffer of the
// specialization. By default such inputs are omitted from the compiled
// layout and reported in [Entry.Unmatched].
func WithStrictVertexLayout(strict bool) Option {
	return func(o *options) {
		o.strictVertexLayout = strict
	}
}

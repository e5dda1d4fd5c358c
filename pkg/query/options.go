package query

// DefaultPageSize is the page size used when none is given.
const DefaultPageSize = 100

// Options overrides a Collection's continuation token and page size for a
// single NextWith call. The collection's own state is not changed by them.
type Options struct {
	// ContinuationToken resumes the query from a previously returned page.
	// Empty means "use the collection's stored token, if any".
	ContinuationToken string
	// PageSize is the maximum number of items to return. Must be positive.
	PageSize int
}

// NewOptions returns validated per-call options.
func NewOptions(continuationToken string, pageSize int) (Options, error) {
	opts := Options{ContinuationToken: continuationToken, PageSize: pageSize}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// DefaultOptions returns options with DefaultPageSize and no token.
func DefaultOptions() Options {
	return Options{PageSize: DefaultPageSize}
}

// Validate checks the page size.
func (o Options) Validate() error {
	if o.PageSize <= 0 {
		return invalidArgf("page size cannot be zero or negative: %d", o.PageSize)
	}
	return nil
}

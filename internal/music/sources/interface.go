package sources

import "context"

type Source interface {
	// Match reports whether the query is a link this source owns.
	Match(query string) bool

	// Resolve turns a query into a resolution. Errors are reserved for
	// upstream failures; an unusable query is reported through the Kind.
	Resolve(ctx context.Context, query string) (Resolution, error)

	SourceName() string
}

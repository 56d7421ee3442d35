package domain

import "context"

// Payload is one raw CSV response from a hotspot provider.
type Payload struct {
	URL  string // credential redacted
	Body []byte
}

// Source retrieves raw hotspot CSV for a query.
type Source interface {
	Fetch(ctx context.Context, q Query) (Payload, error)
}

// Sink receives every freshly fetched dataset. Cached reads are not replayed.
type Sink interface {
	PublishDataset(ctx context.Context, ds Dataset) error
}

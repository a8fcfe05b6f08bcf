package dataset

import (
	"context"

	"github.com/revops/acv-engine/rollforward"
)

// =============================================================================
// SOURCE - Opaque tabular provider
// =============================================================================

// Source yields the joined raw row set. The only blocking I/O in the whole
// system happens behind this interface.
type Source interface {
	// Rows returns the full joined result set.
	Rows(ctx context.Context) ([]RawRow, error)

	// Fingerprint identifies the exact query the rows came from. It is part
	// of the memoization key: a source-query change invalidates implicitly.
	Fingerprint() string
}

// =============================================================================
// BUILDER - The load pipeline
// =============================================================================

// Build runs the full pipeline over raw rows: coercion, aggregation to one
// row per (deal, category), allow-list canonicalization, and classification
// as of the given date.
func Build(rows []RawRow, allow rollforward.Allowlist, asOf rollforward.Date, policy rollforward.RenewalPolicy) []rollforward.SubscriptionRecord {
	lines := Coerce(rows)
	aggregated := rollforward.Aggregate(lines)
	canonical := rollforward.Canonicalize(aggregated, allow)
	return rollforward.Classify(canonical, asOf, policy)
}

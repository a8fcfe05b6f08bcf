/*
loader.go - Memoized record-set loader

PURPOSE:
  Loading and classifying the deal book is the expensive step of a
  rendering pass; filtering and bridging are cheap. The Loader memoizes
  built record sets in an in-process cache keyed by a canonical Request
  descriptor, so repeated interactions (changing a filter, switching the
  month range) re-filter in memory instead of re-fetching.

CACHE KEY:
  source fingerprint | renewal policy | as-of date

  The fingerprint covers the literal source query, so a query change rolls
  the key naturally. Invalidate() flushes everything explicitly (e.g.,
  after loading a demo scenario into the store).

FAILURE MODE:
  A source failure is returned wrapped in ErrSourceUnavailable and nothing
  is cached; the API layer degrades to an empty record set with a warning.
*/
package dataset

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/revops/acv-engine/rollforward"
)

// DefaultExpiration bounds how stale a memoized record set may get before
// the next interaction re-fetches it.
const DefaultExpiration = 30 * time.Minute

const cleanupInterval = 1 * time.Hour

// Request is the canonical descriptor of one dataset build.
type Request struct {
	Policy rollforward.RenewalPolicy
	AsOf   rollforward.Date
}

// Loader memoizes classified record sets per Request.
type Loader struct {
	source Source
	allow  rollforward.Allowlist
	cache  *gocache.Cache
}

func NewLoader(source Source) *Loader {
	return &Loader{
		source: source,
		allow:  rollforward.DefaultAllowlist(),
		cache:  gocache.New(DefaultExpiration, cleanupInterval),
	}
}

func (l *Loader) key(req Request) string {
	return fmt.Sprintf("%s|%s|%s", l.source.Fingerprint(), req.Policy, req.AsOf)
}

// Records returns the classified record set for the request, fetching and
// building it on the first call and from cache afterwards.
func (l *Loader) Records(ctx context.Context, req Request) ([]rollforward.SubscriptionRecord, error) {
	k := l.key(req)
	if cached, ok := l.cache.Get(k); ok {
		return cached.([]rollforward.SubscriptionRecord), nil
	}

	rows, err := l.source.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rollforward.ErrSourceUnavailable, err)
	}

	records := Build(rows, l.allow, req.AsOf, req.Policy)
	l.cache.Set(k, records, gocache.DefaultExpiration)
	return records, nil
}

// Invalidate drops every memoized record set. Call after mutating the
// source (scenario loads, reseeds).
func (l *Loader) Invalidate() {
	l.cache.Flush()
}

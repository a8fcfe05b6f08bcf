/*
filter.go - Dimensional filter engine

PURPOSE:
  Applies the user's region / product category / product bundle selection to
  a classified record set. Each dimension is either "All" (no restriction)
  or an exact match. One O(n) pass, short-circuiting on the first failing
  dimension.
*/
package rollforward

// All is the sentinel selection meaning "no restriction on this dimension".
const All = "All"

// Filter is the user's dimensional selection. The zero value (empty
// strings) behaves like All on every dimension, which keeps older query
// variants without a region column working unchanged.
type Filter struct {
	Region   string
	Category string
	Bundle   string
}

func wildcard(sel string) bool { return sel == "" || sel == All }

// Match reports whether one record passes every selected dimension.
func (f Filter) Match(r SubscriptionRecord) bool {
	if !wildcard(f.Region) && r.Region != f.Region {
		return false
	}
	if !wildcard(f.Category) && r.Category != f.Category {
		return false
	}
	if !wildcard(f.Bundle) && r.Bundle != f.Bundle {
		return false
	}
	return true
}

// Apply returns the records passing the filter. The input is never mutated;
// an all-wildcard filter returns the input slice as-is.
func (f Filter) Apply(records []SubscriptionRecord) []SubscriptionRecord {
	if wildcard(f.Region) && wildcard(f.Category) && wildcard(f.Bundle) {
		return records
	}
	out := make([]SubscriptionRecord, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

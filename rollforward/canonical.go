/*
canonical.go - Canonicalizer: allow-list filtering + deduplication

PURPOSE:
  Reduces aggregated rows to exactly one record per
  (deal_id, company_id, product_category).

WHY DUPLICATES EXIST:
  The upstream join fans out (deal -> company -> line items) before
  aggregation, so the same deal/category pair can surface more than once.
  These are join artifacts, not genuine business duplicates. The row with
  the latest end_date wins; on equal end dates the larger amount wins, so
  the choice never depends on input order.

ALLOW-LIST:
  Only deals in a closed-won-like pipeline stage and a known pipeline are
  subscription rows at all. The store query applies the same filter in SQL;
  it is repeated here so the engine is safe against other sources.

IDEMPOTENCE:
  Canonicalize(Canonicalize(x)) == Canonicalize(x). Once each key maps to a
  single row there is nothing further to collapse.
*/
package rollforward

import (
	"sort"
	"strings"
)

// =============================================================================
// ALLOW-LIST - Which deals count as subscription business
// =============================================================================

// Allowlist restricts rows to subscription-relevant pipeline stages and
// pipelines. Stage labels are matched case-insensitively.
type Allowlist struct {
	StageLabels []string
	PipelineIDs []string
}

// DefaultAllowlist mirrors the upstream reporting query: the four
// subscription lifecycle stages and the known sales pipelines.
func DefaultAllowlist() Allowlist {
	return Allowlist{
		StageLabels: []string{
			"Closed Won",
			"Closed Won Approved",
			"Renewal Due",
			"Cancelled Subscription",
		},
		PipelineIDs: []string{
			"default", "1305376", "1313057", "2453638",
			"6617404", "17494655", "1305377",
		},
	}
}

// Permits reports whether a row passes the stage/pipeline allow-list.
// An empty label or pipeline list means "no restriction" on that axis.
func (a Allowlist) Permits(row DealProduct) bool {
	if len(a.StageLabels) > 0 {
		ok := false
		for _, label := range a.StageLabels {
			if strings.EqualFold(label, row.StageLabel) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(a.PipelineIDs) > 0 {
		ok := false
		for _, id := range a.PipelineIDs {
			if id == row.PipelineID {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// =============================================================================
// CANONICALIZER
// =============================================================================

type canonicalKey struct {
	DealID    DealID
	CompanyID CompanyID
	Category  string
}

// Canonicalize filters rows through the allow-list, then keeps exactly one
// row per (deal_id, company_id, product_category): latest end_date wins,
// ties resolved by larger total amount.
func Canonicalize(rows []DealProduct, allow Allowlist) []DealProduct {
	best := make(map[canonicalKey]DealProduct)

	for _, row := range rows {
		if !allow.Permits(row) {
			continue
		}
		k := canonicalKey{DealID: row.DealID, CompanyID: row.CompanyID, Category: row.Category}
		current, ok := best[k]
		if !ok || row.End.After(current.End) ||
			(row.End.Equal(current.End) && row.TotalAmount.GreaterThan(current.TotalAmount)) {
			best[k] = row
		}
	}

	out := make([]DealProduct, 0, len(best))
	for _, row := range best {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DealID != out[j].DealID {
			return out[i].DealID < out[j].DealID
		}
		if out[i].CompanyID != out[j].CompanyID {
			return out[i].CompanyID < out[j].CompanyID
		}
		return out[i].Category < out[j].Category
	})
	return out
}

/*
aggregate.go - Deal Aggregator: line items -> one row per (deal, category)

PURPOSE:
  Collapses raw line-item rows into one DealProduct per (deal_id,
  product_category): amounts summed, subscription span widened to
  [min(start), max(end)].

GROUPING KEY:
  The key is (deal_id, product_category) - NOT (deal_id, bundle). Multiple
  bundles sold under one category on the same deal merge into a single span
  and sum. The merged row carries the bundle of the largest-amount line
  (ties broken lexicographically) so bundle filtering stays deterministic.

EXCLUSION ORDER:
  Soft-deleted amounts must be excluded BEFORE this aggregation (the store
  query filters them out). Excluding them after the sum would double-count
  or undercount TotalAmount. Lines with an empty category are skipped here:
  that is the inner-join semantics against the product dimension.

SEE ALSO:
  - canonical.go: next stage (allow-list + dedup)
  - store/sqlite: where soft-deleted lines are filtered out
*/
package rollforward

import "sort"

type aggregateKey struct {
	DealID   DealID
	Category string
}

// Aggregate groups line items by (deal_id, product_category), summing
// amounts and widening the date span. Output is sorted by (deal, category)
// so repeated runs are byte-stable.
func Aggregate(lines []LineItem) []DealProduct {
	groups := make(map[aggregateKey]*DealProduct)
	topAmount := make(map[aggregateKey]LineItem)

	for _, line := range lines {
		if line.Category == "" {
			continue // no product linkage
		}
		k := aggregateKey{DealID: line.DealID, Category: line.Category}

		row, ok := groups[k]
		if !ok {
			row = &DealProduct{
				DealID:      line.DealID,
				PipelineID:  line.PipelineID,
				StageID:     line.StageID,
				StageLabel:  line.StageLabel,
				CompanyID:   line.CompanyID,
				CompanyName: line.CompanyName,
				Region:      line.Region,
				Category:    line.Category,
				Bundle:      line.Bundle,
				TotalAmount: line.Amount,
				Start:       line.Start,
				End:         line.End,
			}
			groups[k] = row
			topAmount[k] = line
			continue
		}

		row.TotalAmount = row.TotalAmount.Add(line.Amount)
		if line.Start.Before(row.Start) {
			row.Start = line.Start
		}
		if line.End.After(row.End) {
			row.End = line.End
		}

		// Bundle of the merged row: largest-amount line wins, ties by name.
		top := topAmount[k]
		if line.Amount.GreaterThan(top.Amount) ||
			(line.Amount.Equal(top.Amount) && line.Bundle < top.Bundle) {
			topAmount[k] = line
			row.Bundle = line.Bundle
		}
	}

	rows := make([]DealProduct, 0, len(groups))
	for _, row := range groups {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].DealID != rows[j].DealID {
			return rows[i].DealID < rows[j].DealID
		}
		return rows[i].Category < rows[j].Category
	})
	return rows
}

/*
Package dataset turns raw source rows into classified subscription records
and memoizes the result per request.

PURPOSE:
  The upstream store is an opaque provider of a tabular row set (deal,
  company, product and line-item dimensions joined). This package owns the
  load pipeline on top of it:

    Source rows -> coerce -> Aggregate -> Canonicalize -> Classify

  and caches the built record set so changing a filter in the UI re-filters
  in memory instead of re-querying the source.

KEY CONCEPTS IN THIS FILE (row.go):
  - RawRow: one source row with nullable columns as pointers. Older query
    variants have no region column; a nil region coerces to "" and behaves
    as the universal "All" selection downstream.
  - Coerce: RawRow -> rollforward.LineItem. Rows with no product linkage or
    unparseable dates are DROPPED, never defaulted - a sentinel date would
    silently distort every bridge sum.

SEE ALSO:
  - builder.go: the full pipeline
  - loader.go: memoization keyed by request descriptor
*/
package dataset

import (
	"github.com/shopspring/decimal"

	"github.com/revops/acv-engine/rollforward"
)

// RawRow is one row of the joined source result set. Pointer fields are
// nullable in the source; value fields are always present.
type RawRow struct {
	DealID     string
	PipelineID string
	StageID    string
	StageLabel string

	CompanyID   *string
	CompanyName *string
	Region      *string

	Category *string
	Bundle   *string

	Amount    *string // decimal text; nil or unparseable sums as zero
	StartDate *string // ISO date; nil or unparseable drops the row
	EndDate   *string
}

func strOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

// Coerce converts raw rows to typed line items, dropping rows that cannot
// contribute to any bridge: no product linkage (inner-join semantics), or a
// missing/unparseable subscription date.
func Coerce(rows []RawRow) []rollforward.LineItem {
	lines := make([]rollforward.LineItem, 0, len(rows))
	for _, row := range rows {
		if row.Category == nil || *row.Category == "" {
			continue
		}
		if row.StartDate == nil || row.EndDate == nil {
			continue
		}
		start, err := rollforward.ParseDate(*row.StartDate)
		if err != nil {
			continue
		}
		end, err := rollforward.ParseDate(*row.EndDate)
		if err != nil {
			continue
		}

		amount := decimal.Zero
		if row.Amount != nil {
			if parsed, err := decimal.NewFromString(*row.Amount); err == nil {
				amount = parsed
			}
		}

		lines = append(lines, rollforward.LineItem{
			DealID:      rollforward.DealID(row.DealID),
			PipelineID:  row.PipelineID,
			StageID:     row.StageID,
			StageLabel:  row.StageLabel,
			CompanyID:   rollforward.CompanyID(strOr(row.CompanyID, "")),
			CompanyName: strOr(row.CompanyName, ""),
			Region:      strOr(row.Region, ""),
			Category:    *row.Category,
			Bundle:      strOr(row.Bundle, ""),
			Amount:      amount,
			Start:       start,
			End:         end,
		})
	}
	return lines
}

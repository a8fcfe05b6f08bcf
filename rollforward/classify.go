/*
classify.go - Status & Renewal Classifier

PURPOSE:
  Derives, per canonical record: LIVE/EXPIRED status, ACV, the renewal
  period anchor, and the renewal verdicts. The renewal verdict is decided by
  searching SIBLING records - other deals of the same company and product
  category - for a follow-on subscription.

SIBLING SEARCH:
  The source expressed this as a correlated subquery (an O(n^2) self-join).
  Here the records are grouped once by (company_id, product_category) and
  each group's sibling start dates are sorted, so the window check is a
  binary search per record instead of a full cross-product.

RENEWAL POLICIES:
  Two near-duplicate rules exist upstream; both are supported as named
  strategies and behave differently at year boundaries:

    window_12_months (default):
      a sibling started within [this.start, this.end + 1 year]
    calendar_year:
      a sibling started in the same calendar year this record ends

VERDICT RULES:
  - LIVE records are always "Due for Renewal" (a running subscription cannot
    yet be classified as renewed) - siblings are not consulted.
  - EXPIRED with a matching sibling -> "Renewed", otherwise "Not Renewed".
  - Final verdict collapses: EXPIRED & Not Renewed -> "Non Renewal";
    LIVE & Not Renewed -> "Due for Renewal"; everything else unchanged.

DETERMINISM:
  Output order and every verdict are independent of input order: groups are
  rebuilt from scratch and the result is sorted by (company name, end desc).
*/
package rollforward

import "sort"

// =============================================================================
// RENEWAL POLICY - Named sibling-matching strategies
// =============================================================================

type RenewalPolicy string

const (
	// RenewalWindow12Months matches a sibling whose start falls within
	// [this.start, this.end + 1 year].
	RenewalWindow12Months RenewalPolicy = "window_12_months"

	// RenewalCalendarYear matches a sibling whose start falls in the same
	// calendar year as this record's end.
	RenewalCalendarYear RenewalPolicy = "calendar_year"
)

// ParseRenewalPolicy maps a user-supplied policy name to a strategy.
// The empty string selects the default 12-month window.
func ParseRenewalPolicy(s string) (RenewalPolicy, error) {
	switch s {
	case "", string(RenewalWindow12Months):
		return RenewalWindow12Months, nil
	case string(RenewalCalendarYear):
		return RenewalCalendarYear, nil
	default:
		return "", ErrUnknownRenewalPolicy
	}
}

// window returns the inclusive [lo, hi] range a sibling's start date must
// fall into for this record to count as renewed.
func (p RenewalPolicy) window(r DealProduct) (lo, hi Date) {
	switch p {
	case RenewalCalendarYear:
		return StartOfYear(r.End.Year()), EndOfYear(r.End.Year())
	default:
		return r.Start, r.End.AddYears(1)
	}
}

// =============================================================================
// SIBLING INDEX - Built once per classification pass
// =============================================================================

type siblingKey struct {
	CompanyID CompanyID
	Category  string
}

type siblingEntry struct {
	Start  Date
	DealID DealID
}

type siblingIndex map[siblingKey][]siblingEntry

func buildSiblingIndex(rows []DealProduct) siblingIndex {
	idx := make(siblingIndex)
	for _, row := range rows {
		k := siblingKey{CompanyID: row.CompanyID, Category: row.Category}
		idx[k] = append(idx[k], siblingEntry{Start: row.Start, DealID: row.DealID})
	}
	for k := range idx {
		entries := idx[k]
		sort.Slice(entries, func(i, j int) bool {
			if !entries[i].Start.Equal(entries[j].Start) {
				return entries[i].Start.Before(entries[j].Start)
			}
			return entries[i].DealID < entries[j].DealID
		})
	}
	return idx
}

// hasSiblingIn reports whether any record OTHER than self started within
// [lo, hi]. Entries are sorted by start, so the scan begins at the binary
// search lower bound and stops past hi.
func (idx siblingIndex) hasSiblingIn(k siblingKey, self DealID, lo, hi Date) bool {
	entries := idx[k]
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].Start.AfterOrEqual(lo)
	})
	for ; i < len(entries); i++ {
		if entries[i].Start.After(hi) {
			return false
		}
		if entries[i].DealID != self {
			return true
		}
	}
	return false
}

// =============================================================================
// CLASSIFIER
// =============================================================================

// Classify derives all computed fields for each canonical row. asOf is the
// classification date (normally today); it is injected so results are
// reproducible in tests and cacheable across a rendering pass.
func Classify(rows []DealProduct, asOf Date, policy RenewalPolicy) []SubscriptionRecord {
	idx := buildSiblingIndex(rows)

	records := make([]SubscriptionRecord, 0, len(rows))
	for _, row := range rows {
		rec := SubscriptionRecord{
			DealID:      row.DealID,
			PipelineID:  row.PipelineID,
			StageID:     row.StageID,
			CompanyID:   row.CompanyID,
			CompanyName: row.CompanyName,
			Region:      row.Region,
			Category:    row.Category,
			Bundle:      row.Bundle,
			Start:       row.Start,
			End:         row.End,
			TotalAmount: row.TotalAmount,
		}

		rec.ACV = ComputeACV(row.TotalAmount, row.Start, row.End)
		rec.RenewalPeriod = MonthOf(row.End.AddDays(1))

		if row.End.AfterOrEqual(asOf) {
			rec.Status = StatusLive
		} else {
			rec.Status = StatusExpired
		}

		switch {
		case rec.Status == StatusLive:
			rec.RenewalStatus = RenewalDue
		default:
			lo, hi := policy.window(row)
			k := siblingKey{CompanyID: row.CompanyID, Category: row.Category}
			if idx.hasSiblingIn(k, row.DealID, lo, hi) {
				rec.RenewalStatus = RenewalRenewed
			} else {
				rec.RenewalStatus = RenewalNotRenewed
			}
		}

		rec.FinalRenewalStatus = finalVerdict(rec.Status, rec.RenewalStatus)
		records = append(records, rec)
	}

	// Same presentation order as the upstream report: company name, then
	// latest-ending subscription first.
	sort.Slice(records, func(i, j int) bool {
		if records[i].CompanyName != records[j].CompanyName {
			return records[i].CompanyName < records[j].CompanyName
		}
		if !records[i].End.Equal(records[j].End) {
			return records[i].End.After(records[j].End)
		}
		return records[i].DealID < records[j].DealID
	})
	return records
}

// finalVerdict collapses status x renewal status. It is the ONLY place
// FinalRenewalStatus is assigned.
func finalVerdict(status SubscriptionStatus, renewal RenewalStatus) FinalRenewalStatus {
	switch {
	case status == StatusLive && renewal == RenewalNotRenewed:
		return FinalDue
	case status == StatusExpired && renewal == RenewalNotRenewed:
		return FinalNonRenewal
	default:
		return FinalRenewalStatus(renewal)
	}
}

/*
Package rollforward computes ACV (Annual Contract Value) roll-forward
bridges over a subscription deal book.

PURPOSE:
  This package contains the full reporting pipeline from raw line-item rows
  to period-over-period ACV bridges:

    LineItem rows -> Aggregate -> Canonicalize -> Classify -> Filter -> Bridge

  Each stage is a pure function over immutable inputs: load once, transform
  once, render once. Nothing here touches a database or a clock - the "as of"
  date is always injected so classification is reproducible.

KEY CONCEPTS IN THIS FILE (types.go):
  - LineItem: one raw source row (deal x company x product x line item)
  - DealProduct: one aggregated row per (deal, product category)
  - SubscriptionRecord: the canonical classified unit every bridge sums over
  - ACV: total amount normalized to a 365-day run rate, rounded to 2dp

DESIGN PRINCIPLES:
  1. Precision: all money math uses decimal.Decimal, never float64
  2. Determinism: every stage sorts its output; re-running is byte-stable
  3. Injection: "today" is a parameter (AsOf), never read inside the engine
  4. Derivation: status fields are pure functions, never independently set

SEE ALSO:
  - aggregate.go: line items -> DealProduct rows
  - canonical.go: allow-list filtering and deduplication
  - classify.go: LIVE/EXPIRED status and renewal verdicts
  - bridge.go: opening/expiring/renewed/new/closing computation
*/
package rollforward

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type DealID string
type CompanyID string

// =============================================================================
// STATUS ENUMS
// =============================================================================

// SubscriptionStatus says whether coverage is still running as of the
// classification date.
type SubscriptionStatus string

const (
	StatusLive    SubscriptionStatus = "LIVE"    // end_date >= as-of date
	StatusExpired SubscriptionStatus = "EXPIRED" // end_date < as-of date
)

// RenewalStatus is the raw sibling-matching verdict.
type RenewalStatus string

const (
	RenewalRenewed    RenewalStatus = "Renewed"
	RenewalNotRenewed RenewalStatus = "Not Renewed"
	RenewalDue        RenewalStatus = "Due for Renewal"
)

// FinalRenewalStatus collapses SubscriptionStatus x RenewalStatus:
//
//	LIVE    & Not Renewed -> Due for Renewal
//	EXPIRED & Not Renewed -> Non Renewal
//	otherwise             -> RenewalStatus unchanged
type FinalRenewalStatus string

const (
	FinalRenewed    FinalRenewalStatus = "Renewed"
	FinalDue        FinalRenewalStatus = "Due for Renewal"
	FinalNonRenewal FinalRenewalStatus = "Non Renewal"
)

// =============================================================================
// LINE ITEM - Raw source row (input to the aggregator)
// =============================================================================

// LineItem is one row of the joined source result set: a deal, its company
// and pipeline attributes, one product line, and that line's amount and
// subscription span. Rows with no product linkage or unparseable dates never
// reach this type - the dataset layer drops them during coercion.
type LineItem struct {
	DealID     DealID
	PipelineID string
	StageID    string
	StageLabel string

	CompanyID   CompanyID
	CompanyName string
	Region      string

	Category string
	Bundle   string

	Amount decimal.Decimal
	Start  Date
	End    Date
}

// =============================================================================
// DEAL PRODUCT - One row per (deal, product category) after aggregation
// =============================================================================

type DealProduct struct {
	DealID     DealID
	PipelineID string
	StageID    string
	StageLabel string

	CompanyID   CompanyID
	CompanyName string
	Region      string

	Category string
	Bundle   string

	TotalAmount decimal.Decimal
	Start       Date
	End         Date
}

// =============================================================================
// SUBSCRIPTION RECORD - The canonical classified unit
// =============================================================================

// SubscriptionRecord is what every bridge sums over. Exactly one exists per
// (deal, company, product category) after canonicalization, and all derived
// fields (ACV, Status, RenewalPeriod, verdicts) are set by Classify.
type SubscriptionRecord struct {
	DealID     DealID
	PipelineID string
	StageID    string

	CompanyID   CompanyID
	CompanyName string
	Region      string

	Category string
	Bundle   string

	Start       Date
	End         Date
	TotalAmount decimal.Decimal

	// Derived by Classify
	ACV                decimal.Decimal
	Status             SubscriptionStatus
	RenewalPeriod      MonthKey
	RenewalStatus      RenewalStatus
	FinalRenewalStatus FinalRenewalStatus
}

// OpenAt reports whether coverage is running on day d (inclusive of both the
// first and the last covered day). This is THE boundary convention; opening
// and closing sums must use it and nothing else.
func (r SubscriptionRecord) OpenAt(d Date) bool {
	return r.Start.BeforeOrEqual(d) && r.End.AfterOrEqual(d)
}

// ExpiryDate is the first uncovered day (end_date + 1). A record expires in
// the period that contains this date.
func (r SubscriptionRecord) ExpiryDate() Date {
	return r.End.AddDays(1)
}

var (
	daysPerYear = decimal.NewFromInt(365)
)

// ComputeACV normalizes a total contract amount to a 365-day run rate:
//
//	round(total / days_in_span * 365, 2),  days_in_span = (end - start) + 1
//
// A non-positive span contributes zero ACV - never a division fault.
func ComputeACV(total decimal.Decimal, start, end Date) decimal.Decimal {
	days := DaysBetween(start, end) + 1
	if days <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(days))).Mul(daysPerYear).Round(2)
}

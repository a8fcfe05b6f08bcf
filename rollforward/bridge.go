/*
bridge.go - Period Roll-Forward Engine

PURPOSE:
  Computes the five bridge quantities for a period:

    opening      ACV open on the first day of the period
    expiring     ACV whose first uncovered day (end + 1) falls in the period
    renewed      ACV whose renewal event is recognized in the period
    new business ACV started in the period on the default pipeline
    closing      opening - expiring + renewed + new business

BOUNDARY CONVENTION (pinned, applied uniformly):
  A record is open at day D iff start <= D <= end, and expires in the period
  containing end + 1. A subscription ending exactly on a period boundary is
  therefore still open at that boundary and expires in the FOLLOWING period.
  Opening and expiry use the same convention, so consecutive periods never
  double-count or gap.

RENEWAL RECOGNITION:
  Two recognition modes exist upstream; both are supported as named
  strategies:

    renewal_period (default):
      record classified Renewed, and its renewal event date (end + 1, the
      anchor of its renewal-period month) falls inside the period
    pipeline_stage:
      record booked on the renewal pipeline in the renewal stage, with its
      start date inside the period

TELESCOPING INVARIANT:
  Rolling computes each sub-period's opening as the prior sub-period's
  closing. Because every event date (expiry, renewal, start) lands in
  exactly one sub-period of a partition, the whole-range closing equals
  opening[0] - sum(expiring) + sum(renewed) + sum(new business), whether the
  range is computed one-shot or month by month. This is the central
  correctness property of the engine.

SEE ALSO:
  - period.go: Months() partitioning
  - classify.go: where Renewed verdicts and renewal periods come from
*/
package rollforward

import "github.com/shopspring/decimal"

// =============================================================================
// RECOGNITION MODES
// =============================================================================

type RenewalRecognition string

const (
	RecognizeByRenewalPeriod RenewalRecognition = "renewal_period"
	RecognizeByPipelineStage RenewalRecognition = "pipeline_stage"
)

// ParseRenewalRecognition maps a user-supplied mode name to a strategy.
// The empty string selects the default renewal-period match.
func ParseRenewalRecognition(s string) (RenewalRecognition, error) {
	switch s {
	case "", string(RecognizeByRenewalPeriod):
		return RecognizeByRenewalPeriod, nil
	case string(RecognizeByPipelineStage):
		return RecognizeByPipelineStage, nil
	default:
		return "", ErrUnknownRecognition
	}
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine holds the pipeline identifiers and the recognition strategy used
// to attribute renewals and new business.
type Engine struct {
	// DefaultPipelineID marks fresh (non-renewal) bookings.
	DefaultPipelineID string

	// RenewalPipelineID / RenewalStageID identify renewal bookings when
	// Recognition is RecognizeByPipelineStage.
	RenewalPipelineID string
	RenewalStageID    string

	Recognition RenewalRecognition
}

// NewEngine returns an engine with the upstream defaults: new business on
// the "default" pipeline, renewals recognized by renewal-period match.
func NewEngine() *Engine {
	return &Engine{
		DefaultPipelineID: "default",
		Recognition:       RecognizeByRenewalPeriod,
	}
}

// =============================================================================
// BRIDGE - One period's quantities
// =============================================================================

type Bridge struct {
	Period Period

	Opening     decimal.Decimal
	Expiring    decimal.Decimal
	Renewed     decimal.Decimal
	NewBusiness decimal.Decimal
	Closing     decimal.Decimal
}

// WaterfallPoint is one (label, signed delta) pair for the chart layer.
type WaterfallPoint struct {
	Label string
	Delta decimal.Decimal
}

// Waterfall renders the bridge as the 5-bar series the chart consumes.
// Expiring is the only negative delta.
func (b Bridge) Waterfall() []WaterfallPoint {
	return []WaterfallPoint{
		{Label: "Opening ACV", Delta: b.Opening},
		{Label: "Expiring ACV", Delta: b.Expiring.Neg()},
		{Label: "Renewed ACV", Delta: b.Renewed},
		{Label: "New Business ACV", Delta: b.NewBusiness},
		{Label: "Closing ACV", Delta: b.Closing},
	}
}

// =============================================================================
// SINGLE-PERIOD COMPUTATION
// =============================================================================

// Bridge computes one period's quantities over a classified record set.
// An empty record set yields an all-zero bridge, not an error.
func (e *Engine) Bridge(records []SubscriptionRecord, p Period) (Bridge, error) {
	if err := p.Validate(); err != nil {
		return Bridge{}, err
	}
	b := e.deltas(records, p)
	b.Opening = e.openingAt(records, p.Start)
	b.Closing = b.Opening.Sub(b.Expiring).Add(b.Renewed).Add(b.NewBusiness)
	return b, nil
}

// openingAt sums ACV of records open on day d.
func (e *Engine) openingAt(records []SubscriptionRecord, d Date) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if r.OpenAt(d) {
			total = total.Add(r.ACV)
		}
	}
	return total
}

// deltas computes the three in-period movements (no opening/closing).
func (e *Engine) deltas(records []SubscriptionRecord, p Period) Bridge {
	b := Bridge{
		Period:      p,
		Expiring:    decimal.Zero,
		Renewed:     decimal.Zero,
		NewBusiness: decimal.Zero,
	}
	for _, r := range records {
		if p.Contains(r.ExpiryDate()) {
			b.Expiring = b.Expiring.Add(r.ACV)
		}
		if e.renewedIn(r, p) {
			b.Renewed = b.Renewed.Add(r.ACV)
		}
		if r.PipelineID == e.DefaultPipelineID && p.Contains(r.Start) {
			b.NewBusiness = b.NewBusiness.Add(r.ACV)
		}
	}
	return b
}

func (e *Engine) renewedIn(r SubscriptionRecord, p Period) bool {
	switch e.Recognition {
	case RecognizeByPipelineStage:
		return r.PipelineID == e.RenewalPipelineID &&
			r.StageID == e.RenewalStageID &&
			p.Contains(r.Start)
	default:
		// The renewal event date is end + 1, the day anchoring the record's
		// renewal-period month. For whole-month periods this is exactly the
		// renewal-period month match; for clipped periods it keeps each
		// event in exactly one sub-period of a partition.
		return r.FinalRenewalStatus == FinalRenewed && p.Contains(r.ExpiryDate())
	}
}

// =============================================================================
// ROLLING (MULTI-PERIOD) COMPUTATION
// =============================================================================

// RollingBridge is an M-sub-period breakdown. Opening is measured once at
// the start of the first sub-period; each sub-period's opening equals the
// previous sub-period's closing; the totals satisfy
//
//	Closing == Opening - Expiring + Renewed + NewBusiness
//
// exactly, and Closing equals the last sub-period's closing.
type RollingBridge struct {
	Period  Period
	Periods []Bridge

	Opening     decimal.Decimal
	Expiring    decimal.Decimal
	Renewed     decimal.Decimal
	NewBusiness decimal.Decimal
	Closing     decimal.Decimal
}

// Rolling computes a sequence of consecutive sub-periods with a carried
// balance. Sub-periods must be valid and strictly ordered (each starting
// after the previous one ends).
func (e *Engine) Rolling(records []SubscriptionRecord, periods []Period) (RollingBridge, error) {
	if len(periods) == 0 {
		return RollingBridge{}, ErrInvalidPeriod
	}
	for i, p := range periods {
		if err := p.Validate(); err != nil {
			return RollingBridge{}, &PeriodError{Period: p, Reason: "end before start"}
		}
		if i > 0 && !periods[i-1].End.Before(p.Start) {
			return RollingBridge{}, ErrPeriodsNotOrdered
		}
	}

	rb := RollingBridge{
		Period:      Period{Start: periods[0].Start, End: periods[len(periods)-1].End},
		Opening:     e.openingAt(records, periods[0].Start),
		Expiring:    decimal.Zero,
		Renewed:     decimal.Zero,
		NewBusiness: decimal.Zero,
	}

	balance := rb.Opening
	for _, p := range periods {
		sub := e.deltas(records, p)
		sub.Opening = balance
		sub.Closing = sub.Opening.Sub(sub.Expiring).Add(sub.Renewed).Add(sub.NewBusiness)
		balance = sub.Closing

		rb.Expiring = rb.Expiring.Add(sub.Expiring)
		rb.Renewed = rb.Renewed.Add(sub.Renewed)
		rb.NewBusiness = rb.NewBusiness.Add(sub.NewBusiness)
		rb.Periods = append(rb.Periods, sub)
	}
	rb.Closing = balance
	return rb, nil
}

// RollingMonths partitions the range into calendar months and rolls the
// balance through them.
func (e *Engine) RollingMonths(records []SubscriptionRecord, p Period) (RollingBridge, error) {
	if err := p.Validate(); err != nil {
		return RollingBridge{}, err
	}
	return e.Rolling(records, p.Months())
}

// Waterfall renders the breakdown as the 1 + 3M + 1 series: opening, then
// per-sub-period {expiring, renewed, new business}, then closing.
func (rb RollingBridge) Waterfall() []WaterfallPoint {
	points := make([]WaterfallPoint, 0, 2+3*len(rb.Periods))
	points = append(points, WaterfallPoint{Label: "Opening ACV", Delta: rb.Opening})
	for _, sub := range rb.Periods {
		tag := sub.Period.Start.t.Format("Jan 2006")
		points = append(points,
			WaterfallPoint{Label: "Expiring " + tag, Delta: sub.Expiring.Neg()},
			WaterfallPoint{Label: "Renewed " + tag, Delta: sub.Renewed},
			WaterfallPoint{Label: "New Business " + tag, Delta: sub.NewBusiness},
		)
	}
	points = append(points, WaterfallPoint{Label: "Closing ACV", Delta: rb.Closing})
	return points
}

// SimplifiedWaterfall is the condensed opening/expiring/new/closing view
// (renewals folded out), matching the report's third chart.
func (rb RollingBridge) SimplifiedWaterfall() []WaterfallPoint {
	return []WaterfallPoint{
		{Label: "Opening ACV", Delta: rb.Opening},
		{Label: "Expiring ACV", Delta: rb.Expiring.Neg()},
		{Label: "New Business ACV", Delta: rb.NewBusiness},
		{Label: "Closing ACV", Delta: rb.Closing},
	}
}

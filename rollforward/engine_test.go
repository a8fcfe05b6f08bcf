package rollforward_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/revops/acv-engine/rollforward"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(y int, m time.Month, d int) rollforward.Date {
	return rollforward.NewDate(y, m, d)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(deal, company, category, bundle, amount string, start, end rollforward.Date) rollforward.LineItem {
	return rollforward.LineItem{
		DealID:      rollforward.DealID(deal),
		PipelineID:  "default",
		StageID:     "stage-won",
		StageLabel:  "Closed Won",
		CompanyID:   rollforward.CompanyID(company),
		CompanyName: company,
		Region:      "EMEA",
		Category:    category,
		Bundle:      bundle,
		Amount:      dec(amount),
		Start:       start,
		End:         end,
	}
}

func dealRow(deal, company, category string, start, end rollforward.Date, amount string) rollforward.DealProduct {
	return rollforward.DealProduct{
		DealID:      rollforward.DealID(deal),
		PipelineID:  "default",
		StageID:     "stage-won",
		StageLabel:  "Closed Won",
		CompanyID:   rollforward.CompanyID(company),
		CompanyName: company,
		Region:      "EMEA",
		Category:    category,
		Bundle:      "Core",
		TotalAmount: dec(amount),
		Start:       start,
		End:         end,
	}
}

func findRecord(t *testing.T, records []rollforward.SubscriptionRecord, deal string) rollforward.SubscriptionRecord {
	t.Helper()
	for _, r := range records {
		if r.DealID == rollforward.DealID(deal) {
			return r
		}
	}
	t.Fatalf("record for deal %q not found", deal)
	return rollforward.SubscriptionRecord{}
}

// =============================================================================
// ACV
// =============================================================================

func TestComputeACV_FullYearEqualsAmount(t *testing.T) {
	// GIVEN: A 365-day subscription worth 1200
	// WHEN: Normalizing to a 365-day run rate
	// THEN: ACV equals the contract amount
	acv := rollforward.ComputeACV(dec("1200"), date(2023, time.January, 1), date(2023, time.December, 31))
	if !acv.Equal(dec("1200")) {
		t.Errorf("expected ACV 1200, got %v", acv)
	}
}

func TestComputeACV_LeapYearSpan(t *testing.T) {
	// GIVEN: A 366-day subscription (2024 is a leap year) worth 1200
	// THEN: ACV = round(1200/366*365, 2) = 1196.72
	acv := rollforward.ComputeACV(dec("1200"), date(2024, time.January, 1), date(2024, time.December, 31))
	if !acv.Equal(dec("1196.72")) {
		t.Errorf("expected ACV 1196.72, got %v", acv)
	}
}

func TestComputeACV_SingleDaySpan(t *testing.T) {
	// GIVEN: A one-day subscription worth 100
	// THEN: ACV = 100 / 1 * 365
	acv := rollforward.ComputeACV(dec("100"), date(2024, time.March, 1), date(2024, time.March, 1))
	if !acv.Equal(dec("36500")) {
		t.Errorf("expected ACV 36500, got %v", acv)
	}
}

func TestComputeACV_NonPositiveSpanContributesZero(t *testing.T) {
	// GIVEN: An inverted span (end before start)
	// THEN: Zero ACV, no division fault
	acv := rollforward.ComputeACV(dec("1200"), date(2024, time.March, 2), date(2024, time.March, 1))
	if !acv.IsZero() {
		t.Errorf("expected zero ACV, got %v", acv)
	}
}

// =============================================================================
// DEAL AGGREGATOR
// =============================================================================

func TestAggregate_MergesBundlesUnderOneCategory(t *testing.T) {
	// GIVEN: One deal selling two bundles of the same category
	lines := []rollforward.LineItem{
		line("d-1", "c-1", "Software", "Core", "10000", date(2024, time.January, 1), date(2024, time.December, 31)),
		line("d-1", "c-1", "Software", "Plus", "5000", date(2024, time.April, 1), date(2025, time.March, 31)),
	}

	// WHEN: Aggregating
	rows := rollforward.Aggregate(lines)

	// THEN: One row per (deal, category) with summed amount and widened span
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if !row.TotalAmount.Equal(dec("15000")) {
		t.Errorf("expected total 15000, got %v", row.TotalAmount)
	}
	if !row.Start.Equal(date(2024, time.January, 1)) || !row.End.Equal(date(2025, time.March, 31)) {
		t.Errorf("expected span 2024-01-01..2025-03-31, got %s..%s", row.Start, row.End)
	}
	// Largest-amount line's bundle wins
	if row.Bundle != "Core" {
		t.Errorf("expected bundle Core, got %q", row.Bundle)
	}
}

func TestAggregate_SeparateCategoriesStaySeparate(t *testing.T) {
	lines := []rollforward.LineItem{
		line("d-1", "c-1", "Software", "Core", "10000", date(2024, time.January, 1), date(2024, time.December, 31)),
		line("d-1", "c-1", "Support", "Care", "2000", date(2024, time.January, 1), date(2024, time.December, 31)),
	}

	rows := rollforward.Aggregate(lines)

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}

func TestAggregate_SkipsLinesWithoutProductLinkage(t *testing.T) {
	// GIVEN: A line with no category (no product join)
	orphan := line("d-1", "c-1", "", "Core", "10000", date(2024, time.January, 1), date(2024, time.December, 31))

	rows := rollforward.Aggregate([]rollforward.LineItem{orphan})

	if len(rows) != 0 {
		t.Fatalf("expected orphan line to be dropped, got %d rows", len(rows))
	}
}

// =============================================================================
// CANONICALIZER
// =============================================================================

func TestCanonicalize_LatestEndDateWins(t *testing.T) {
	// GIVEN: Join fan-out produced two rows for the same key
	rows := []rollforward.DealProduct{
		dealRow("d-1", "c-1", "Software", date(2024, time.January, 1), date(2024, time.June, 30), "6000"),
		dealRow("d-1", "c-1", "Software", date(2024, time.January, 1), date(2024, time.December, 31), "12000"),
	}

	out := rollforward.Canonicalize(rows, rollforward.DefaultAllowlist())

	if len(out) != 1 {
		t.Fatalf("expected 1 canonical row, got %d", len(out))
	}
	if !out[0].End.Equal(date(2024, time.December, 31)) {
		t.Errorf("expected the later end date to win, got %s", out[0].End)
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	rows := []rollforward.DealProduct{
		dealRow("d-1", "c-1", "Software", date(2024, time.January, 1), date(2024, time.June, 30), "6000"),
		dealRow("d-1", "c-1", "Software", date(2024, time.January, 1), date(2024, time.December, 31), "12000"),
		dealRow("d-2", "c-1", "Software", date(2024, time.March, 1), date(2025, time.February, 28), "9000"),
	}
	allow := rollforward.DefaultAllowlist()

	once := rollforward.Canonicalize(rows, allow)
	twice := rollforward.Canonicalize(once, allow)

	if !reflect.DeepEqual(once, twice) {
		t.Error("canonicalization is not idempotent")
	}
}

func TestCanonicalize_AllowlistFilters(t *testing.T) {
	lost := dealRow("d-lost", "c-1", "Software", date(2024, time.January, 1), date(2024, time.December, 31), "9000")
	lost.StageLabel = "Closed Lost"
	offPipeline := dealRow("d-off", "c-1", "Software", date(2024, time.January, 1), date(2024, time.December, 31), "9000")
	offPipeline.PipelineID = "999999"
	kept := dealRow("d-keep", "c-1", "Software", date(2024, time.January, 1), date(2024, time.December, 31), "9000")
	kept.StageLabel = "closed won" // label match is case-insensitive

	out := rollforward.Canonicalize([]rollforward.DealProduct{lost, offPipeline, kept}, rollforward.DefaultAllowlist())

	if len(out) != 1 || out[0].DealID != "d-keep" {
		t.Fatalf("expected only d-keep to survive, got %+v", out)
	}
}

// =============================================================================
// STATUS & RENEWAL CLASSIFIER
// =============================================================================

func TestClassify_SiblingWithinWindowMeansRenewed(t *testing.T) {
	// GIVEN: Two yearly terms for the same company and category
	rows := []rollforward.DealProduct{
		dealRow("d-2023", "c-1", "Software", date(2023, time.January, 1), date(2023, time.December, 31), "1200"),
		dealRow("d-2024", "c-1", "Software", date(2024, time.January, 1), date(2024, time.December, 31), "1200"),
	}

	// WHEN: Classifying after both have expired
	records := rollforward.Classify(rows, date(2025, time.June, 1), rollforward.RenewalWindow12Months)

	// THEN: The 2023 term is EXPIRED and Renewed (2024 started inside
	// [2023-01-01, 2024-12-31]); the 2024 term has no follow-on
	r1 := findRecord(t, records, "d-2023")
	if r1.Status != rollforward.StatusExpired {
		t.Errorf("expected EXPIRED, got %s", r1.Status)
	}
	if !r1.ACV.Equal(dec("1200")) {
		t.Errorf("expected ACV 1200, got %v", r1.ACV)
	}
	if r1.RenewalStatus != rollforward.RenewalRenewed || r1.FinalRenewalStatus != rollforward.FinalRenewed {
		t.Errorf("expected Renewed/Renewed, got %s/%s", r1.RenewalStatus, r1.FinalRenewalStatus)
	}

	r2 := findRecord(t, records, "d-2024")
	if r2.FinalRenewalStatus != rollforward.FinalNonRenewal {
		t.Errorf("expected Non Renewal for the last term, got %s", r2.FinalRenewalStatus)
	}
}

func TestClassify_LiveRecordIsDueForRenewal(t *testing.T) {
	// GIVEN: A single live record with no siblings
	rows := []rollforward.DealProduct{
		dealRow("d-live", "c-1", "Software", date(2025, time.January, 1), date(2025, time.December, 31), "9000"),
	}

	records := rollforward.Classify(rows, date(2025, time.June, 1), rollforward.RenewalWindow12Months)

	r := records[0]
	if r.Status != rollforward.StatusLive {
		t.Errorf("expected LIVE, got %s", r.Status)
	}
	if r.RenewalStatus != rollforward.RenewalDue || r.FinalRenewalStatus != rollforward.FinalDue {
		t.Errorf("expected Due for Renewal, got %s/%s", r.RenewalStatus, r.FinalRenewalStatus)
	}
}

func TestClassify_ExpiredWithoutSiblingIsNonRenewal(t *testing.T) {
	rows := []rollforward.DealProduct{
		dealRow("d-gone", "c-1", "Software", date(2023, time.March, 1), date(2024, time.February, 29), "9000"),
	}

	records := rollforward.Classify(rows, date(2025, time.June, 1), rollforward.RenewalWindow12Months)

	r := records[0]
	if r.RenewalStatus != rollforward.RenewalNotRenewed {
		t.Errorf("expected Not Renewed, got %s", r.RenewalStatus)
	}
	if r.FinalRenewalStatus != rollforward.FinalNonRenewal {
		t.Errorf("expected Non Renewal, got %s", r.FinalRenewalStatus)
	}
}

func TestClassify_SiblingInDifferentCategoryDoesNotCount(t *testing.T) {
	rows := []rollforward.DealProduct{
		dealRow("d-soft", "c-1", "Software", date(2023, time.January, 1), date(2023, time.December, 31), "1200"),
		dealRow("d-supp", "c-1", "Support", date(2024, time.January, 1), date(2024, time.December, 31), "1200"),
	}

	records := rollforward.Classify(rows, date(2025, time.June, 1), rollforward.RenewalWindow12Months)

	if findRecord(t, records, "d-soft").FinalRenewalStatus != rollforward.FinalNonRenewal {
		t.Error("a sibling in another category must not count as a renewal")
	}
}

func TestClassify_PoliciesDisagreeAtYearBoundary(t *testing.T) {
	// GIVEN: A term ending 2023-12-31 whose follow-on starts 2024-01-01
	rows := []rollforward.DealProduct{
		dealRow("d-old", "c-1", "Software", date(2023, time.January, 1), date(2023, time.December, 31), "1200"),
		dealRow("d-new", "c-1", "Software", date(2024, time.January, 1), date(2024, time.December, 31), "1300"),
	}
	asOf := date(2026, time.June, 1)

	// THEN: The 12-month window sees the renewal...
	windowed := rollforward.Classify(rows, asOf, rollforward.RenewalWindow12Months)
	if findRecord(t, windowed, "d-old").FinalRenewalStatus != rollforward.FinalRenewed {
		t.Error("window policy: expected Renewed across the year boundary")
	}

	// ...but the calendar-year rule does not (2024 != 2023)
	calendar := rollforward.Classify(rows, asOf, rollforward.RenewalCalendarYear)
	if findRecord(t, calendar, "d-old").FinalRenewalStatus != rollforward.FinalNonRenewal {
		t.Error("calendar policy: expected Non Renewal across the year boundary")
	}
}

func TestClassify_RenewalPeriodIsMonthContainingDayAfterEnd(t *testing.T) {
	rows := []rollforward.DealProduct{
		dealRow("d-1", "c-1", "Software", date(2024, time.January, 1), date(2024, time.December, 31), "1200"),
	}

	records := rollforward.Classify(rows, date(2025, time.June, 1), rollforward.RenewalWindow12Months)

	if got := records[0].RenewalPeriod.String(); got != "2025-01" {
		t.Errorf("expected renewal period 2025-01, got %s", got)
	}
}

func TestClassify_DeterministicAcrossInputOrder(t *testing.T) {
	rows := []rollforward.DealProduct{
		dealRow("d-a", "c-1", "Software", date(2022, time.January, 1), date(2022, time.December, 31), "1000"),
		dealRow("d-b", "c-1", "Software", date(2023, time.January, 1), date(2023, time.December, 31), "1100"),
		dealRow("d-c", "c-2", "Software", date(2023, time.June, 1), date(2024, time.May, 31), "2000"),
		dealRow("d-d", "c-2", "Support", date(2024, time.June, 1), date(2025, time.May, 31), "500"),
	}
	reversed := make([]rollforward.DealProduct, len(rows))
	for i, r := range rows {
		reversed[len(rows)-1-i] = r
	}
	asOf := date(2025, time.January, 15)

	a := rollforward.Classify(rows, asOf, rollforward.RenewalWindow12Months)
	b := rollforward.Classify(reversed, asOf, rollforward.RenewalWindow12Months)

	if !reflect.DeepEqual(a, b) {
		t.Error("classification depends on input order")
	}
}

// =============================================================================
// FILTER ENGINE
// =============================================================================

func TestFilter_AllIsNoOp(t *testing.T) {
	records := rollforward.Classify([]rollforward.DealProduct{
		dealRow("d-1", "c-1", "Software", date(2024, time.January, 1), date(2024, time.December, 31), "1200"),
	}, date(2025, time.June, 1), rollforward.RenewalWindow12Months)

	out := rollforward.Filter{Region: rollforward.All, Category: rollforward.All, Bundle: rollforward.All}.Apply(records)

	if len(out) != len(records) {
		t.Errorf("expected all records to pass, got %d of %d", len(out), len(records))
	}
}

func TestFilter_ExactMatchPerDimension(t *testing.T) {
	emea := dealRow("d-1", "c-1", "Software", date(2024, time.January, 1), date(2024, time.December, 31), "1200")
	apac := dealRow("d-2", "c-2", "Software", date(2024, time.January, 1), date(2024, time.December, 31), "1200")
	apac.Region = "APAC"
	records := rollforward.Classify([]rollforward.DealProduct{emea, apac}, date(2025, time.June, 1), rollforward.RenewalWindow12Months)

	out := rollforward.Filter{Region: "APAC"}.Apply(records)

	if len(out) != 1 || out[0].DealID != "d-2" {
		t.Fatalf("expected only the APAC record, got %+v", out)
	}
}

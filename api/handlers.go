/*
handlers.go - HTTP API handlers for the ACV roll-forward service

PURPOSE:
  Exposes the reporting engine via REST. Handlers parse the user's
  selection (period, filters, strategies), pull the memoized record set,
  and delegate all computation to the rollforward package.

ENDPOINTS:
  Bridges:
    GET  /api/bridge           Single-period bridge (year or from/to)
    GET  /api/bridge/monthly   Month-by-month rolling breakdown

  Data:
    GET  /api/records          Classified record listing
    GET  /api/dimensions       Distinct filter values + year range

  Scenarios / cache:
    GET  /api/scenarios        List demo datasets
    GET  /api/scenarios/current
    POST /api/scenarios/load   Seed a demo dataset
    POST /api/cache/invalidate Drop memoized datasets

SELECTION PARAMETERS (query string):
  region, category, bundle   "All" or exact value (default All)
  year                       calendar year (default: as-of year)
  from, to                   explicit ISO date range (overrides year)
  start_month, end_month     1-12 bounds for the monthly view
  months                     discrete YYYY-MM list (comma-separated)
  policy                     window_12_months | calendar_year
  recognition                renewal_period | pipeline_stage
  renewal_pipeline,
  renewal_stage              pipeline/stage IDs for pipeline_stage mode
  as_of                      classification date (default: today)

ERROR HANDLING:
  - 400: invalid selections (bad dates, start after end, unknown strategy)
  - 404: unknown scenario
  - 500: internal errors
  Source-connectivity failure is NOT an error: the bridge renders from an
  empty record set and the response carries a "warning" field.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo dataset seeding
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/revops/acv-engine/dataset"
	"github.com/revops/acv-engine/rollforward"
	"github.com/revops/acv-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Loader *dataset.Loader

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler over the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:  store,
		Loader: dataset.NewLoader(store),
	}
}

// =============================================================================
// SELECTION PARSING
// =============================================================================

// selection is one fully parsed user interaction.
type selection struct {
	filter rollforward.Filter
	req    dataset.Request
	engine *rollforward.Engine
}

func parseSelection(r *http.Request) (selection, error) {
	q := r.URL.Query()

	policy, err := rollforward.ParseRenewalPolicy(q.Get("policy"))
	if err != nil {
		return selection{}, err
	}
	recognition, err := rollforward.ParseRenewalRecognition(q.Get("recognition"))
	if err != nil {
		return selection{}, err
	}

	asOf := rollforward.Today()
	if raw := q.Get("as_of"); raw != "" {
		asOf, err = rollforward.ParseDate(raw)
		if err != nil {
			return selection{}, rollforward.ErrInvalidPeriod
		}
	}

	engine := rollforward.NewEngine()
	engine.Recognition = recognition
	engine.RenewalPipelineID = q.Get("renewal_pipeline")
	engine.RenewalStageID = q.Get("renewal_stage")

	filter := rollforward.Filter{
		Region:   q.Get("region"),
		Category: q.Get("category"),
		Bundle:   q.Get("bundle"),
	}

	return selection{
		filter: filter,
		req:    dataset.Request{Policy: policy, AsOf: asOf},
		engine: engine,
	}, nil
}

// parsePeriod resolves the single-period selection: explicit from/to wins,
// otherwise the calendar year (defaulting to the as-of year).
func parsePeriod(r *http.Request, asOf rollforward.Date) (rollforward.Period, error) {
	q := r.URL.Query()

	if q.Get("from") != "" || q.Get("to") != "" {
		from, err := rollforward.ParseDate(q.Get("from"))
		if err != nil {
			return rollforward.Period{}, rollforward.ErrInvalidPeriod
		}
		to, err := rollforward.ParseDate(q.Get("to"))
		if err != nil {
			return rollforward.Period{}, rollforward.ErrInvalidPeriod
		}
		p := rollforward.Period{Start: from, End: to}
		return p, p.Validate()
	}

	year := asOf.Year()
	if raw := q.Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return rollforward.Period{}, rollforward.ErrInvalidPeriod
		}
		year = parsed
	}
	return rollforward.YearPeriod(year), nil
}

// records loads the memoized record set. Source failure degrades to an
// empty set with a user-facing warning instead of failing the request.
func (h *Handler) records(ctx context.Context, sel selection) ([]rollforward.SubscriptionRecord, string) {
	records, err := h.Loader.Records(ctx, sel.req)
	if err != nil {
		log.Printf("Warning: source load failed: %v", err)
		return nil, "data source unavailable; showing an empty dataset"
	}
	return sel.filter.Apply(records), ""
}

// =============================================================================
// BRIDGE HANDLERS
// =============================================================================

// GetBridge returns the single-period bridge.
// GET /api/bridge
func (h *Handler) GetBridge(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid selection", err)
		return
	}
	period, err := parsePeriod(r, sel.req.AsOf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period selection", err)
		return
	}

	records, warning := h.records(r.Context(), sel)
	bridge, err := sel.engine.Bridge(records, period)
	if err != nil {
		writeBridgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBridgeDTO(bridge, warning))
}

// GetMonthlyBridge returns the rolling month-by-month breakdown, either for
// a start_month..end_month span of a year or for a discrete months list.
// GET /api/bridge/monthly
func (h *Handler) GetMonthlyBridge(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid selection", err)
		return
	}

	records, warning := h.records(r.Context(), sel)

	// Discrete multi-month selection takes precedence.
	if raw := r.URL.Query().Get("months"); raw != "" {
		periods, err := parseDiscreteMonths(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid months selection", err)
			return
		}
		rolling, err := sel.engine.Rolling(records, periods)
		if err != nil {
			writeBridgeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMonthlyBridgeDTO(rolling, warning))
		return
	}

	year := sel.req.AsOf.Year()
	startMonth, endMonth := 1, 12
	q := r.URL.Query()
	if raw := q.Get("year"); raw != "" {
		if year, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
	}
	if raw := q.Get("start_month"); raw != "" {
		if startMonth, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start_month", err)
			return
		}
	}
	if raw := q.Get("end_month"); raw != "" {
		if endMonth, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_month", err)
			return
		}
	}

	span, err := rollforward.MonthRange(year, time.Month(startMonth), time.Month(endMonth))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Start month should be before end month", err)
		return
	}

	rolling, err := sel.engine.RollingMonths(records, span)
	if err != nil {
		writeBridgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthlyBridgeDTO(rolling, warning))
}

// parseDiscreteMonths parses "2024-01,2024-03,2024-04" into whole-month
// periods. Months must be distinct and ascending.
func parseDiscreteMonths(raw string) ([]rollforward.Period, error) {
	var periods []rollforward.Period
	for _, part := range strings.Split(raw, ",") {
		t, err := time.Parse("2006-01", strings.TrimSpace(part))
		if err != nil {
			return nil, rollforward.ErrInvalidPeriod
		}
		key := rollforward.MonthKey{Year: t.Year(), Month: t.Month()}
		periods = append(periods, rollforward.MonthPeriod(key))
	}
	return periods, nil
}

// =============================================================================
// DATA HANDLERS
// =============================================================================

// ListRecords returns the classified, filtered record set.
// GET /api/records
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid selection", err)
		return
	}
	records, warning := h.records(r.Context(), sel)
	if warning != "" {
		writeError(w, http.StatusServiceUnavailable, warning, nil)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTOs(records))
}

// GetDimensions returns the distinct filter values and year range of the
// current dataset, for populating the selector widgets.
// GET /api/dimensions
func (h *Handler) GetDimensions(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid selection", err)
		return
	}
	records, err := h.Loader.Records(r.Context(), sel.req)
	if err != nil {
		log.Printf("Warning: source load failed: %v", err)
		records = nil
	}

	dims := DimensionsDTO{
		MinYear: sel.req.AsOf.Year(),
		MaxYear: sel.req.AsOf.Year(),
	}
	regions := map[string]bool{}
	categories := map[string]bool{}
	bundles := map[string]bool{}
	for i, rec := range records {
		if rec.Region != "" {
			regions[rec.Region] = true
		}
		if rec.Category != "" {
			categories[rec.Category] = true
		}
		if rec.Bundle != "" {
			bundles[rec.Bundle] = true
		}
		if i == 0 || rec.Start.Year() < dims.MinYear {
			dims.MinYear = rec.Start.Year()
		}
		if i == 0 || rec.End.Year() > dims.MaxYear {
			dims.MaxYear = rec.End.Year()
		}
	}
	dims.Regions = sortedKeys(regions)
	dims.Categories = sortedKeys(categories)
	dims.Bundles = sortedKeys(bundles)
	writeJSON(w, http.StatusOK, dims)
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// CACHE HANDLERS
// =============================================================================

// InvalidateCache drops every memoized dataset.
// POST /api/cache/invalidate
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.Loader.Invalidate()
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeBridgeError(w http.ResponseWriter, err error) {
	if rollforward.IsClientError(err) {
		writeError(w, http.StatusBadRequest, "Invalid period selection", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "Bridge computation failed", err)
}

func decodeBody(r *http.Request, into any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(into)
}

/*
scenarios.go - Demo datasets for the reporting UI

PURPOSE:
  Seeds the source store with small, recognizable deal books so the bridge
  endpoints render something meaningful without a production database.
  Loading a scenario resets the store, seeds it, and invalidates the
  memoized datasets.

SCENARIOS:
  renewal-cycle   One account renewing yearly plus one churned account -
                  exercises Renewed / Non Renewal / Due for Renewal.
  multi-region    Accounts across regions, categories and bundles -
                  exercises the dimensional filters.
  bundle-split    One deal selling two bundles of one category, with a
                  soft-deleted line - exercises aggregation and the
                  exclusion-before-sum rule.
*/
package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/revops/acv-engine/store/sqlite"
)

// Scenario is a named, loadable demo dataset.
type Scenario struct {
	ID          string
	Name        string
	Description string
	Load        func(ctx context.Context, store *sqlite.Store) error
}

// Scenarios is the registry of available demo datasets.
var Scenarios = []Scenario{
	{
		ID:          "renewal-cycle",
		Name:        "Yearly renewal cycle",
		Description: "One account renewing every year, one churned account, one live subscription due for renewal.",
		Load:        loadRenewalCycle,
	},
	{
		ID:          "multi-region",
		Name:        "Multi-region deal book",
		Description: "Accounts across regions, product categories and bundles for filter demos.",
		Load:        loadMultiRegion,
	},
	{
		ID:          "bundle-split",
		Name:        "Bundle split with soft delete",
		Description: "A single deal selling two bundles of one category, plus a soft-deleted line item.",
		Load:        loadBundleSplit,
	},
}

func findScenario(id string) *Scenario {
	for i := range Scenarios {
		if Scenarios[i].ID == id {
			return &Scenarios[i]
		}
	}
	return nil
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns the scenario registry.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(Scenarios))
	for i, s := range Scenarios {
		dtos[i] = ScenarioDTO{ID: s.ID, Name: s.Name, Description: s.Description}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the scenario loaded last, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"id": h.currentScenario})
}

// LoadScenario resets the store, seeds the selected dataset, and drops the
// memoized record sets.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	scenario := findScenario(req.ID)
	if scenario == nil {
		writeError(w, http.StatusNotFound, "Scenario not found", nil)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	if err := scenario.Load(ctx, h.Store); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}
	h.Loader.Invalidate()
	h.currentScenario = scenario.ID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "id": scenario.ID})
}

// =============================================================================
// SEED HELPERS
// =============================================================================

type seeder struct {
	ctx   context.Context
	store *sqlite.Store
	err   error
}

func (s *seeder) stage(id, label string) {
	if s.err == nil {
		s.err = s.store.InsertStage(s.ctx, id, label)
	}
}

func (s *seeder) company(c sqlite.Company) {
	if s.err == nil {
		s.err = s.store.InsertCompany(s.ctx, c)
	}
}

func (s *seeder) product(p sqlite.Product) {
	if s.err == nil {
		s.err = s.store.InsertProduct(s.ctx, p)
	}
}

func (s *seeder) deal(d sqlite.Deal) {
	if s.err == nil {
		s.err = s.store.InsertDeal(s.ctx, d)
	}
}

func (s *seeder) line(li sqlite.LineItem) {
	if li.ID == "" {
		li.ID = uuid.NewString()
	}
	if s.err == nil {
		s.err = s.store.InsertLineItem(s.ctx, li)
	}
}

func (s *seeder) commonStages() {
	s.stage("stage-won", "Closed Won")
	s.stage("stage-won-approved", "Closed Won Approved")
	s.stage("stage-renewal-due", "Renewal Due")
	s.stage("stage-cancelled", "Cancelled Subscription")
	s.stage("stage-lost", "Closed Lost") // outside the allow-list
}

// =============================================================================
// SCENARIO DATA
// =============================================================================

func loadRenewalCycle(ctx context.Context, store *sqlite.Store) error {
	s := &seeder{ctx: ctx, store: store}
	s.commonStages()

	s.company(sqlite.Company{ID: "c-acme", Name: "Acme Ltd", Region: "EMEA"})
	s.company(sqlite.Company{ID: "c-husk", Name: "Husk Industries", Region: "AMER"})
	s.product(sqlite.Product{ID: "p-core", Bundle: "Core", Category: "Software"})

	// Acme renews every January; the 2026 term is live.
	terms := []struct {
		deal, start, end, amount string
	}{
		{"d-acme-2023", "2023-01-01", "2023-12-31", "12000"},
		{"d-acme-2024", "2024-01-01", "2024-12-31", "13200"},
		{"d-acme-2025", "2025-01-01", "2025-12-31", "14500"},
		{"d-acme-2026", "2026-01-01", "2026-12-31", "16000"},
	}
	for i, term := range terms {
		pipeline := "1305376" // renewal pipeline
		if i == 0 {
			pipeline = "default" // original booking is new business
		}
		s.deal(sqlite.Deal{ID: term.deal, PipelineID: pipeline, StageID: "stage-won", CompanyID: "c-acme"})
		s.line(sqlite.LineItem{
			DealID: term.deal, ProductID: "p-core",
			Amount: term.amount, StartDate: term.start, EndDate: term.end,
		})
	}

	// Husk bought once and never came back.
	s.deal(sqlite.Deal{ID: "d-husk-2024", PipelineID: "default", StageID: "stage-cancelled", CompanyID: "c-husk"})
	s.line(sqlite.LineItem{
		DealID: "d-husk-2024", ProductID: "p-core",
		Amount: "8000", StartDate: "2024-03-01", EndDate: "2025-02-28",
	})

	return s.err
}

func loadMultiRegion(ctx context.Context, store *sqlite.Store) error {
	s := &seeder{ctx: ctx, store: store}
	s.commonStages()

	s.company(sqlite.Company{ID: "c-nord", Name: "Nord AB", Region: "EMEA"})
	s.company(sqlite.Company{ID: "c-lone", Name: "Lonestar Inc", Region: "AMER"})
	s.company(sqlite.Company{ID: "c-kiku", Name: "Kiku KK", Region: "APAC"})

	s.product(sqlite.Product{ID: "p-core", Bundle: "Core", Category: "Software"})
	s.product(sqlite.Product{ID: "p-plus", Bundle: "Plus", Category: "Software"})
	s.product(sqlite.Product{ID: "p-care", Bundle: "Care", Category: "Support"})

	seedTerm := func(deal, company, product, amount, start, end, pipeline, stage string) {
		s.deal(sqlite.Deal{ID: deal, PipelineID: pipeline, StageID: stage, CompanyID: company})
		s.line(sqlite.LineItem{DealID: deal, ProductID: product, Amount: amount, StartDate: start, EndDate: end})
	}

	seedTerm("d-nord-1", "c-nord", "p-core", "24000", "2024-02-01", "2025-01-31", "default", "stage-won")
	seedTerm("d-nord-2", "c-nord", "p-care", "6000", "2024-02-01", "2025-01-31", "default", "stage-won")
	seedTerm("d-lone-1", "c-lone", "p-plus", "36000", "2024-06-15", "2025-06-14", "default", "stage-won-approved")
	seedTerm("d-kiku-1", "c-kiku", "p-core", "18000", "2023-09-01", "2024-08-31", "default", "stage-won")
	seedTerm("d-kiku-2", "c-kiku", "p-core", "19500", "2024-09-01", "2025-08-31", "1305376", "stage-renewal-due")

	// Lost deal: present upstream, filtered out by the allow-list.
	seedTerm("d-lost", "c-lone", "p-core", "99000", "2024-01-01", "2024-12-31", "default", "stage-lost")

	return s.err
}

func loadBundleSplit(ctx context.Context, store *sqlite.Store) error {
	s := &seeder{ctx: ctx, store: store}
	s.commonStages()

	s.company(sqlite.Company{ID: "c-volt", Name: "Volt GmbH", Region: "EMEA"})
	s.product(sqlite.Product{ID: "p-core", Bundle: "Core", Category: "Software"})
	s.product(sqlite.Product{ID: "p-plus", Bundle: "Plus", Category: "Software"})

	s.deal(sqlite.Deal{ID: "d-volt", PipelineID: "default", StageID: "stage-won", CompanyID: "c-volt"})

	// Two bundles under one category merge into a single record.
	s.line(sqlite.LineItem{
		DealID: "d-volt", ProductID: "p-core",
		Amount: "10000", StartDate: "2024-01-01", EndDate: "2024-12-31",
	})
	s.line(sqlite.LineItem{
		DealID: "d-volt", ProductID: "p-plus",
		Amount: "5000", StartDate: "2024-04-01", EndDate: "2025-03-31",
	})

	// Soft-deleted line: excluded before aggregation, contributes nothing.
	s.line(sqlite.LineItem{
		DealID: "d-volt", ProductID: "p-core",
		Amount: "7000", StartDate: "2024-01-01", EndDate: "2024-12-31",
		Deleted: true,
	})

	return s.err
}

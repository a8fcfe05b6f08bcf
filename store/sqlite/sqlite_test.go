package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revops/acv-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// seedBaseline writes one fully linked deal: company, product, stage, line.
func seedBaseline(t *testing.T, store *sqlite.Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.InsertStage(ctx, "stage-won", "Closed Won"))
	require.NoError(t, store.InsertCompany(ctx, sqlite.Company{ID: "c-1", Name: "Acme", Region: "EMEA"}))
	require.NoError(t, store.InsertProduct(ctx, sqlite.Product{ID: "p-1", Bundle: "Core", Category: "Software"}))
	require.NoError(t, store.InsertDeal(ctx, sqlite.Deal{
		ID: "d-1", PipelineID: "default", StageID: "stage-won", CompanyID: "c-1",
	}))
	require.NoError(t, store.InsertLineItem(ctx, sqlite.LineItem{
		ID: "li-1", DealID: "d-1", ProductID: "p-1",
		Amount: "1200", StartDate: "2024-01-01", EndDate: "2024-12-31",
	}))
}

func TestRows_JoinsTheFullGraph(t *testing.T) {
	store := newStore(t)
	seedBaseline(t, store)

	rows, err := store.Rows(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "d-1", r.DealID)
	assert.Equal(t, "default", r.PipelineID)
	assert.Equal(t, "Closed Won", r.StageLabel)
	require.NotNil(t, r.CompanyName)
	assert.Equal(t, "Acme", *r.CompanyName)
	require.NotNil(t, r.Region)
	assert.Equal(t, "EMEA", *r.Region)
	require.NotNil(t, r.Category)
	assert.Equal(t, "Software", *r.Category)
	require.NotNil(t, r.Amount)
	assert.Equal(t, "1200", *r.Amount)
}

func TestRows_ExcludesSoftDeletedLines(t *testing.T) {
	store := newStore(t)
	seedBaseline(t, store)
	ctx := context.Background()

	require.NoError(t, store.InsertLineItem(ctx, sqlite.LineItem{
		ID: "li-ghost", DealID: "d-1", ProductID: "p-1",
		Amount: "9999", StartDate: "2024-01-01", EndDate: "2024-12-31",
		Deleted: true,
	}))

	rows, err := store.Rows(ctx)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Amount)
	assert.Equal(t, "1200", *rows[0].Amount, "only the live line survives")
}

func TestRows_EnforcesStageAndPipelineAllowlist(t *testing.T) {
	store := newStore(t)
	seedBaseline(t, store)
	ctx := context.Background()

	// Wrong stage label.
	require.NoError(t, store.InsertStage(ctx, "stage-lost", "Closed Lost"))
	require.NoError(t, store.InsertDeal(ctx, sqlite.Deal{
		ID: "d-lost", PipelineID: "default", StageID: "stage-lost", CompanyID: "c-1",
	}))
	require.NoError(t, store.InsertLineItem(ctx, sqlite.LineItem{
		ID: "li-lost", DealID: "d-lost", ProductID: "p-1",
		Amount: "500", StartDate: "2024-01-01", EndDate: "2024-12-31",
	}))

	// Wrong pipeline.
	require.NoError(t, store.InsertDeal(ctx, sqlite.Deal{
		ID: "d-other", PipelineID: "99999", StageID: "stage-won", CompanyID: "c-1",
	}))
	require.NoError(t, store.InsertLineItem(ctx, sqlite.LineItem{
		ID: "li-other", DealID: "d-other", ProductID: "p-1",
		Amount: "700", StartDate: "2024-01-01", EndDate: "2024-12-31",
	}))

	rows, err := store.Rows(ctx)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "d-1", rows[0].DealID)
}

func TestRows_StageLabelMatchIsCaseInsensitive(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertStage(ctx, "stage-won", "CLOSED WON APPROVED"))
	require.NoError(t, store.InsertProduct(ctx, sqlite.Product{ID: "p-1", Bundle: "Core", Category: "Software"}))
	require.NoError(t, store.InsertDeal(ctx, sqlite.Deal{
		ID: "d-1", PipelineID: "1305376", StageID: "stage-won",
	}))
	require.NoError(t, store.InsertLineItem(ctx, sqlite.LineItem{
		ID: "li-1", DealID: "d-1", ProductID: "p-1",
		Amount: "1200", StartDate: "2024-01-01", EndDate: "2024-12-31",
	}))

	rows, err := store.Rows(ctx)

	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRows_DealWithoutCompanyStillSurfaces(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertStage(ctx, "stage-won", "Closed Won"))
	require.NoError(t, store.InsertProduct(ctx, sqlite.Product{ID: "p-1", Bundle: "Core", Category: "Software"}))
	require.NoError(t, store.InsertDeal(ctx, sqlite.Deal{
		ID: "d-orphan", PipelineID: "default", StageID: "stage-won",
	}))
	require.NoError(t, store.InsertLineItem(ctx, sqlite.LineItem{
		ID: "li-1", DealID: "d-orphan", ProductID: "p-1",
		Amount: "1200", StartDate: "2024-01-01", EndDate: "2024-12-31",
	}))

	rows, err := store.Rows(ctx)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].CompanyName)
	assert.Nil(t, rows[0].Region)
}

func TestReset_ClearsEveryTable(t *testing.T) {
	store := newStore(t)
	seedBaseline(t, store)
	ctx := context.Background()

	require.NoError(t, store.Reset(ctx))

	rows, err := store.Rows(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	// The store stays usable after a reset.
	seedBaseline(t, store)
	rows, err = store.Rows(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFingerprint_IsStable(t *testing.T) {
	a := newStore(t)
	b := newStore(t)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Contains(t, a.Fingerprint(), "sqlite:")
}

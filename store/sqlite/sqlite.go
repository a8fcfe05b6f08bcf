/*
Package sqlite provides the SQLite-backed source of subscription rows.

PURPOSE:
  Holds the upstream sales schema (deals, companies, products, line items)
  and materializes the one joined row set the reporting pipeline consumes.
  In production the same query runs against SQL Server / PostgreSQL - only
  minor dialect differences.

KEY TABLES:
  deals:           deal id, pipeline id, pipeline stage id
  pipeline_stages: stage id -> human label ("Closed Won", ...)
  companies:       company id, name, region
  deal_companies:  deal <-> company link
  products:        product id, bundle, category
  line_items:      product line with amount, subscription span, soft delete
  line_item_deals: line item <-> deal link

THE ROW QUERY:
  rowQuery mirrors the upstream reporting join graph: inner joins over the
  product dimension (lines without a product never appear), left joins for
  company attributes, and the stage-label + pipeline allow-list in WHERE.
  Soft-deleted line items are excluded HERE, before any aggregation -
  filtering them after the sum would corrupt the total amount.

SEED HELPERS:
  Insert* and Reset exist for demo scenarios and tests. The reporting path
  itself never writes.

SEE ALSO:
  - dataset/row.go: RawRow, the shape this store produces
  - api/scenarios.go: demo datasets seeded through this package
*/
package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/revops/acv-engine/dataset"
)

// Store is the SQLite-backed dataset.Source.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) a store at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS deals (
		id TEXT PRIMARY KEY,
		pipeline_id TEXT NOT NULL,
		pipeline_stage_id TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pipeline_stages (
		stage_id TEXT PRIMARY KEY,
		label TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS companies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		region TEXT
	);

	CREATE TABLE IF NOT EXISTS deal_companies (
		deal_id TEXT NOT NULL,
		company_id TEXT NOT NULL,
		PRIMARY KEY (deal_id, company_id)
	);

	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		bundle TEXT,
		category TEXT
	);

	CREATE TABLE IF NOT EXISTS line_items (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		amount TEXT,
		start_date TEXT,
		end_date TEXT,
		deleted_at TEXT
	);

	CREATE TABLE IF NOT EXISTS line_item_deals (
		line_item_id TEXT NOT NULL,
		deal_id TEXT NOT NULL,
		PRIMARY KEY (line_item_id, deal_id)
	);

	CREATE INDEX IF NOT EXISTS idx_deals_pipeline
		ON deals(pipeline_id, pipeline_stage_id);
	CREATE INDEX IF NOT EXISTS idx_line_item_deals_deal
		ON line_item_deals(deal_id);
	CREATE INDEX IF NOT EXISTS idx_line_items_product
		ON line_items(product_id);
	CREATE INDEX IF NOT EXISTS idx_deal_companies_deal
		ON deal_companies(deal_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// rowQuery is the one reporting query. Stage labels are matched lowercased;
// the pipeline allow-list matches the upstream report.
const rowQuery = `
	SELECT
		d.id,
		d.pipeline_id,
		d.pipeline_stage_id,
		ps.label,
		c.id,
		c.name,
		c.region,
		p.category,
		p.bundle,
		li.amount,
		li.start_date,
		li.end_date
	FROM deals d
	JOIN pipeline_stages ps ON ps.stage_id = d.pipeline_stage_id
	LEFT JOIN deal_companies dc ON dc.deal_id = d.id
	LEFT JOIN companies c ON c.id = dc.company_id
	JOIN line_item_deals lid ON lid.deal_id = d.id
	JOIN line_items li ON li.id = lid.line_item_id
	JOIN products p ON p.id = li.product_id
	WHERE li.deleted_at IS NULL
	  AND lower(ps.label) IN (
		'closed won', 'closed won approved', 'renewal due', 'cancelled subscription'
	  )
	  AND d.pipeline_id IN (
		'default', '1305376', '1313057', '2453638', '6617404', '17494655', '1305377'
	  )
	ORDER BY d.id, p.category, li.id`

// Rows materializes the joined row set for the reporting pipeline.
func (s *Store) Rows(ctx context.Context) ([]dataset.RawRow, error) {
	rows, err := s.db.QueryContext(ctx, rowQuery)
	if err != nil {
		return nil, fmt.Errorf("query subscription rows: %w", err)
	}
	defer rows.Close()

	var out []dataset.RawRow
	for rows.Next() {
		var r dataset.RawRow
		if err := rows.Scan(
			&r.DealID, &r.PipelineID, &r.StageID, &r.StageLabel,
			&r.CompanyID, &r.CompanyName, &r.Region,
			&r.Category, &r.Bundle,
			&r.Amount, &r.StartDate, &r.EndDate,
		); err != nil {
			return nil, fmt.Errorf("scan subscription row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Fingerprint hashes the literal query text: memoized datasets are keyed by
// exactly what was asked of the source.
func (s *Store) Fingerprint() string {
	sum := sha256.Sum256([]byte(rowQuery))
	return fmt.Sprintf("sqlite:%x", sum[:8])
}

// =============================================================================
// SEED HELPERS - For demo scenarios and tests only
// =============================================================================

type Deal struct {
	ID         string
	PipelineID string
	StageID    string
	CompanyID  string
}

type Company struct {
	ID     string
	Name   string
	Region string
}

type Product struct {
	ID       string
	Bundle   string
	Category string
}

type LineItem struct {
	ID        string
	DealID    string
	ProductID string
	Amount    string
	StartDate string
	EndDate   string
	Deleted   bool
}

func (s *Store) InsertStage(ctx context.Context, stageID, label string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO pipeline_stages (stage_id, label) VALUES (?, ?)`,
		stageID, label)
	return err
}

func (s *Store) InsertCompany(ctx context.Context, c Company) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO companies (id, name, region) VALUES (?, ?, ?)`,
		c.ID, c.Name, nullable(c.Region))
	return err
}

func (s *Store) InsertProduct(ctx context.Context, p Product) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO products (id, bundle, category) VALUES (?, ?, ?)`,
		p.ID, nullable(p.Bundle), nullable(p.Category))
	return err
}

// InsertDeal writes the deal and its company link.
func (s *Store) InsertDeal(ctx context.Context, d Deal) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO deals (id, pipeline_id, pipeline_stage_id) VALUES (?, ?, ?)`,
		d.ID, d.PipelineID, d.StageID); err != nil {
		return err
	}
	if d.CompanyID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO deal_companies (deal_id, company_id) VALUES (?, ?)`,
		d.ID, d.CompanyID)
	return err
}

// InsertLineItem writes the line and its deal link. Deleted lines carry a
// deleted_at marker and are invisible to the row query.
func (s *Store) InsertLineItem(ctx context.Context, li LineItem) error {
	deletedAt := sql.NullString{}
	if li.Deleted {
		deletedAt = sql.NullString{String: "1970-01-01", Valid: true}
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO line_items (id, product_id, amount, start_date, end_date, deleted_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		li.ID, li.ProductID, nullable(li.Amount), nullable(li.StartDate), nullable(li.EndDate), deletedAt); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO line_item_deals (line_item_id, deal_id) VALUES (?, ?)`,
		li.ID, li.DealID)
	return err
}

// Reset clears every table. Used when switching demo scenarios.
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{
		"deals", "pipeline_stages", "companies", "deal_companies",
		"products", "line_items", "line_item_deals",
	}
	stmts := make([]string, len(tables))
	for i, t := range tables {
		stmts[i] = "DELETE FROM " + t
	}
	_, err := s.db.ExecContext(ctx, strings.Join(stmts, "; "))
	return err
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

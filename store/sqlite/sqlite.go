/*
Package sqlite provides a SQLite-backed implementation of the recorder interfaces.

PURPOSE:
  Keeps completed billing/purchase records and salary slips. The engine
  never calls this package; the caller hands it the finalized values.

INTERFACES IMPLEMENTED:
  generic.Recorder:     Completed billing and purchase records
  payroll.SlipRecorder: Completed salary slips

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on any table
  - No DELETE statements on any table
  - Duplicate IDs are rejected by the primary key

KEY TABLES:
  records:      One row per completed transaction (totals + payment)
  record_items: Line items of a record, in ledger order
  slips:        One row per completed salary entry
  slip_rows:    Deduction, extra and advance rows of a slip

MONEY:
  Amounts are stored as decimal strings, never REAL, so a record reads back
  exactly as it was written.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of WAL mode.

USAGE:
  store, err := sqlite.New("./data/tillkit.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Recorder interface
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/tillkit/ledger-core/generic"
	"github.com/tillkit/ledger-core/payroll"
)

// Store implements generic.Recorder and payroll.SlipRecorder using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database lives only as long as its connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		tax_amount TEXT NOT NULL,
		discount_amount TEXT NOT NULL,
		net_total TEXT NOT NULL,
		payment_type TEXT NOT NULL,
		payment_json TEXT NOT NULL,
		completed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_kind_completed
		ON records(kind, completed_at);

	CREATE TABLE IF NOT EXISTS record_items (
		record_id TEXT NOT NULL REFERENCES records(id),
		position INTEGER NOT NULL,
		item_id TEXT NOT NULL,
		name TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity >= 1),
		tax_rate TEXT NOT NULL,
		PRIMARY KEY (record_id, position)
	);

	CREATE TABLE IF NOT EXISTS slips (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		employee_name TEXT NOT NULL,
		month TEXT NOT NULL,
		statement_json TEXT NOT NULL,
		completed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_slips_employee
		ON slips(employee_id, month);

	CREATE TABLE IF NOT EXISTS slip_rows (
		slip_id TEXT NOT NULL REFERENCES slips(id),
		kind TEXT NOT NULL,
		position INTEGER NOT NULL,
		row_id TEXT NOT NULL,
		name TEXT NOT NULL,
		amount TEXT NOT NULL,
		note TEXT,
		PRIMARY KEY (slip_id, kind, position)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RECORDS (generic.Recorder interface)
// =============================================================================

// paymentJSON is the stored form of generic.PaymentDetails.
type paymentJSON struct {
	Type         string           `json:"type"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Cash         *decimal.Decimal `json:"cash,omitempty"`
	Online       *decimal.Decimal `json:"online,omitempty"`
	OnlineMethod string           `json:"online_method,omitempty"`
}

// SaveRecord writes a record and its items atomically.
func (s *Store) SaveRecord(ctx context.Context, rec generic.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payment, err := json.Marshal(paymentJSON{
		Type:         string(rec.Payment.Type),
		Amount:       rec.Payment.Amount,
		Cash:         rec.Payment.Cash,
		Online:       rec.Payment.Online,
		OnlineMethod: string(rec.Payment.OnlineMethod),
	})
	if err != nil {
		return fmt.Errorf("failed to encode payment: %w", err)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO records
		(id, kind, subtotal, tax_amount, discount_amount, net_total, payment_type, payment_json, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Kind,
		rec.Subtotal.String(),
		rec.TaxAmount.String(),
		rec.DiscountAmount.String(),
		rec.NetTotal.String(),
		rec.Payment.Type,
		string(payment),
		rec.CompletedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("record %s already saved", rec.ID)
		}
		return fmt.Errorf("failed to insert record: %w", err)
	}

	for i, it := range rec.Items {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO record_items (record_id, position, item_id, name, unit_price, quantity, tax_rate)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, rec.ID, i, it.ID, it.Name, it.UnitPrice.String(), it.Quantity, it.TaxRate.String())
		if err != nil {
			return fmt.Errorf("failed to insert record item: %w", err)
		}
	}

	return sqlTx.Commit()
}

// GetRecord returns one record with its items.
func (s *Store) GetRecord(ctx context.Context, id generic.RecordID) (generic.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, err := s.queryRecords(ctx, `
		SELECT id, kind, subtotal, tax_amount, discount_amount, net_total, payment_json, completed_at
		FROM records WHERE id = ?
	`, id)
	if err != nil {
		return generic.Record{}, err
	}
	if len(recs) == 0 {
		return generic.Record{}, generic.ErrRecordNotFound
	}
	return recs[0], nil
}

// ListRecords returns records of a kind, oldest first. Empty kind lists all.
func (s *Store) ListRecords(ctx context.Context, kind generic.Kind) ([]generic.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if kind == "" {
		return s.queryRecords(ctx, `
			SELECT id, kind, subtotal, tax_amount, discount_amount, net_total, payment_json, completed_at
			FROM records ORDER BY completed_at ASC, rowid ASC
		`)
	}
	return s.queryRecords(ctx, `
		SELECT id, kind, subtotal, tax_amount, discount_amount, net_total, payment_json, completed_at
		FROM records WHERE kind = ? ORDER BY completed_at ASC, rowid ASC
	`, kind)
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]generic.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var result []generic.Record
	for rows.Next() {
		var (
			rec                                   generic.Record
			kind                                  string
			subtotal, tax, discount, net, payment string
			completedAt                           string
		)
		if err := rows.Scan(&rec.ID, &kind, &subtotal, &tax, &discount, &net, &payment, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.Kind = generic.Kind(kind)
		rec.Subtotal = generic.ParseDecimalOrZero(subtotal)
		rec.TaxAmount = generic.ParseDecimalOrZero(tax)
		rec.DiscountAmount = generic.ParseDecimalOrZero(discount)
		rec.NetTotal = generic.ParseDecimalOrZero(net)
		if rec.CompletedAt, err = time.Parse(time.RFC3339Nano, completedAt); err != nil {
			return nil, fmt.Errorf("failed to parse completed_at of %s: %w", rec.ID, err)
		}

		var pj paymentJSON
		if err := json.Unmarshal([]byte(payment), &pj); err != nil {
			return nil, fmt.Errorf("failed to decode payment of %s: %w", rec.ID, err)
		}
		rec.Payment = generic.PaymentDetails{
			Type:         generic.PaymentType(pj.Type),
			Amount:       pj.Amount,
			Cash:         pj.Cash,
			Online:       pj.Online,
			OnlineMethod: generic.OnlineMethod(pj.OnlineMethod),
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		items, err := s.loadItems(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Items = items
	}
	return result, nil
}

func (s *Store) loadItems(ctx context.Context, id generic.RecordID) ([]generic.LineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, name, unit_price, quantity, tax_rate
		FROM record_items WHERE record_id = ? ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query record items: %w", err)
	}
	defer rows.Close()

	var items []generic.LineItem
	for rows.Next() {
		var (
			it             generic.LineItem
			price, taxRate string
		)
		if err := rows.Scan(&it.ID, &it.Name, &price, &it.Quantity, &taxRate); err != nil {
			return nil, fmt.Errorf("failed to scan record item: %w", err)
		}
		it.UnitPrice = generic.ParseDecimalOrZero(price)
		it.TaxRate = generic.ParseDecimalOrZero(taxRate)
		items = append(items, it)
	}
	return items, rows.Err()
}

// =============================================================================
// SLIPS (payroll.SlipRecorder interface)
// =============================================================================

// SaveSlip writes a slip and its rows atomically.
func (s *Store) SaveSlip(ctx context.Context, slip payroll.Slip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	statement, err := json.Marshal(toStatementJSON(slip.Statement))
	if err != nil {
		return fmt.Errorf("failed to encode statement: %w", err)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO slips (id, employee_id, employee_name, month, statement_json, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, slip.ID, slip.EmployeeID, slip.EmployeeName, slip.Month, string(statement),
		slip.CompletedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("slip %s already saved", slip.ID)
		}
		return fmt.Errorf("failed to insert slip: %w", err)
	}

	groups := []struct {
		kind payroll.RowKind
		rows []payroll.Row
	}{
		{payroll.RowDeduction, slip.Deductions},
		{payroll.RowExtra, slip.Extras},
		{payroll.RowAdvance, slip.Advances},
	}
	for _, g := range groups {
		for i, r := range g.rows {
			_, err := sqlTx.ExecContext(ctx, `
				INSERT INTO slip_rows (slip_id, kind, position, row_id, name, amount, note)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, slip.ID, g.kind, i, r.ID, r.Name, r.Amount.String(), nullString(r.Note))
			if err != nil {
				return fmt.Errorf("failed to insert slip row: %w", err)
			}
		}
	}

	return sqlTx.Commit()
}

// ListSlips returns slips oldest first. Empty employeeID lists all.
func (s *Store) ListSlips(ctx context.Context, employeeID string) ([]payroll.Slip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, employee_id, employee_name, month, statement_json, completed_at FROM slips`
	var args []any
	if employeeID != "" {
		query += ` WHERE employee_id = ?`
		args = append(args, employeeID)
	}
	query += ` ORDER BY completed_at ASC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query slips: %w", err)
	}
	defer rows.Close()

	var result []payroll.Slip
	for rows.Next() {
		var (
			slip        payroll.Slip
			statement   string
			completedAt string
		)
		if err := rows.Scan(&slip.ID, &slip.EmployeeID, &slip.EmployeeName, &slip.Month, &statement, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan slip: %w", err)
		}
		var sj statementJSON
		if err := json.Unmarshal([]byte(statement), &sj); err != nil {
			return nil, fmt.Errorf("failed to decode statement of %s: %w", slip.ID, err)
		}
		slip.Statement = sj.toStatement()
		if slip.CompletedAt, err = time.Parse(time.RFC3339Nano, completedAt); err != nil {
			return nil, fmt.Errorf("failed to parse completed_at of %s: %w", slip.ID, err)
		}
		result = append(result, slip)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		if err := s.loadSlipRows(ctx, &result[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Store) loadSlipRows(ctx context.Context, slip *payroll.Slip) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, row_id, name, amount, note
		FROM slip_rows WHERE slip_id = ? ORDER BY kind, position ASC
	`, slip.ID)
	if err != nil {
		return fmt.Errorf("failed to query slip rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind, id, name, amount string
			note                   sql.NullString
		)
		if err := rows.Scan(&kind, &id, &name, &amount, &note); err != nil {
			return fmt.Errorf("failed to scan slip row: %w", err)
		}
		r := payroll.Row{ID: payroll.RowID(id), Name: name, Amount: generic.ParseDecimalOrZero(amount), Note: note.String}
		switch payroll.RowKind(kind) {
		case payroll.RowDeduction:
			slip.Deductions = append(slip.Deductions, r)
		case payroll.RowExtra:
			slip.Extras = append(slip.Extras, r)
		case payroll.RowAdvance:
			slip.Advances = append(slip.Advances, r)
		}
	}
	return rows.Err()
}

// statementJSON is the stored form of payroll.Statement.
type statementJSON struct {
	BaseSalary      decimal.Decimal `json:"base_salary"`
	DaysInMonth     int             `json:"days_in_month"`
	DaysPresent     int             `json:"days_present"`
	ProratedBase    decimal.Decimal `json:"prorated_base"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
	TotalExtras     decimal.Decimal `json:"total_extras"`
	TotalAdvances   decimal.Decimal `json:"total_advances"`
	NetAccrual      decimal.Decimal `json:"net_accrual"`
}

func toStatementJSON(st payroll.Statement) statementJSON {
	return statementJSON(st)
}

func (sj statementJSON) toStatement() payroll.Statement {
	return payroll.Statement(sj)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

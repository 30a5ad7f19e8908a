package payroll

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillkit/ledger-core/generic"
)

type RowID string

// RowKind selects one of the three row collections of an entry.
type RowKind string

const (
	RowDeduction RowKind = "deduction"
	RowExtra     RowKind = "extra"
	RowAdvance   RowKind = "advance"
)

func ParseRowKind(s string) (RowKind, bool) {
	switch k := RowKind(s); k {
	case RowDeduction, RowExtra, RowAdvance:
		return k, true
	}
	return "", false
}

// Row is a free-form line such as "Late fee" or "Overtime".
type Row struct {
	ID     RowID
	Name   string
	Amount decimal.Decimal
	Note   string
}

// Rows is an ordered collection. Names are not unique; rows with the same
// name sum independently.
type Rows struct {
	rows []Row
}

// Add appends a row and returns its generated ID.
func (r *Rows) Add(name string, amount decimal.Decimal, note string) RowID {
	id := RowID(uuid.NewString())
	r.rows = append(r.rows, Row{ID: id, Name: name, Amount: amount, Note: note})
	return id
}

func (r *Rows) Update(id RowID, name string, amount decimal.Decimal, note string) error {
	i := r.indexOf(id)
	if i < 0 {
		return generic.ErrRowNotFound
	}
	r.rows[i] = Row{ID: id, Name: name, Amount: amount, Note: note}
	return nil
}

func (r *Rows) Remove(id RowID) error {
	i := r.indexOf(id)
	if i < 0 {
		return generic.ErrRowNotFound
	}
	r.rows = append(r.rows[:i], r.rows[i+1:]...)
	return nil
}

// List returns a copy in insertion order.
func (r *Rows) List() []Row {
	out := make([]Row, len(r.rows))
	copy(out, r.rows)
	return out
}

func (r *Rows) Total() decimal.Decimal { return sumRows(r.rows) }
func (r *Rows) Len() int               { return len(r.rows) }

func (r *Rows) indexOf(id RowID) int {
	for i := range r.rows {
		if r.rows[i].ID == id {
			return i
		}
	}
	return -1
}

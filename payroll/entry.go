package payroll

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillkit/ledger-core/generic"
)

// =============================================================================
// SALARY ENTRY - One open salary-entry session
// =============================================================================

// Employee is read-only input from the data collaborator.
type Employee struct {
	ID         string
	Name       string
	BaseSalary decimal.Decimal
}

// Entry is the salary-entry counterpart of generic.Session. It is owned by
// one caller and not safe for concurrent use.
type Entry struct {
	id          string
	employee    Employee
	date        time.Time
	daysInMonth int
	daysPresent int

	deductions Rows
	extras     Rows
	advances   Rows

	calc  *Calculator
	clock func() time.Time
}

// NewEntry opens an entry for the month containing date, with full
// attendance. Nil calc uses a permissive calculator.
func NewEntry(emp Employee, date time.Time, calc *Calculator) *Entry {
	if calc == nil {
		calc = NewCalculator(generic.Permissive)
	}
	days := DaysInMonth(date)
	return &Entry{
		id:          uuid.NewString(),
		employee:    emp,
		date:        date,
		daysInMonth: days,
		daysPresent: days,
		calc:        calc,
		clock:       time.Now,
	}
}

func (e *Entry) ID() string         { return e.id }
func (e *Entry) Employee() Employee { return e.employee }
func (e *Entry) Date() time.Time    { return e.date }
func (e *Entry) DaysInMonth() int   { return e.daysInMonth }
func (e *Entry) DaysPresent() int   { return e.daysPresent }

// SetClock overrides the completion timestamp source.
func (e *Entry) SetClock(clock func() time.Time) { e.clock = clock }

// SetDate re-derives days in month. Under the strict policy a date whose
// month is shorter than the recorded attendance is rejected.
func (e *Entry) SetDate(date time.Time) error {
	days := DaysInMonth(date)
	if err := e.calc.CheckAttendance(days, e.daysPresent); err != nil {
		return err
	}
	e.date = date
	e.daysInMonth = days
	return nil
}

func (e *Entry) SetDaysPresent(n int) error {
	if err := e.calc.CheckAttendance(e.daysInMonth, n); err != nil {
		return err
	}
	e.daysPresent = n
	return nil
}

// SetBaseSalary replaces the base for this entry only.
func (e *Entry) SetBaseSalary(base decimal.Decimal) {
	e.employee.BaseSalary = base
}

// Rows returns the collection for kind, or nil for an unknown kind.
func (e *Entry) Rows(kind RowKind) *Rows {
	switch kind {
	case RowDeduction:
		return &e.deductions
	case RowExtra:
		return &e.extras
	case RowAdvance:
		return &e.advances
	}
	return nil
}

// =============================================================================
// STATEMENT
// =============================================================================

// Statement holds the rounded figures of an entry.
type Statement struct {
	BaseSalary      decimal.Decimal
	DaysInMonth     int
	DaysPresent     int
	ProratedBase    decimal.Decimal
	TotalDeductions decimal.Decimal
	TotalExtras     decimal.Decimal
	TotalAdvances   decimal.Decimal
	NetAccrual      decimal.Decimal
}

func (e *Entry) Statement() (Statement, error) {
	prorated, err := e.calc.Prorate(e.employee.BaseSalary, e.daysInMonth, e.daysPresent)
	if err != nil {
		return Statement{}, err
	}
	net := e.calc.NetAccrual(prorated, e.deductions.rows, e.extras.rows, e.advances.rows)
	return Statement{
		BaseSalary:      generic.RoundMoney(e.employee.BaseSalary),
		DaysInMonth:     e.daysInMonth,
		DaysPresent:     e.daysPresent,
		ProratedBase:    generic.RoundMoney(prorated),
		TotalDeductions: generic.RoundMoney(e.deductions.Total()),
		TotalExtras:     generic.RoundMoney(e.extras.Total()),
		TotalAdvances:   generic.RoundMoney(e.advances.Total()),
		NetAccrual:      generic.RoundMoney(net),
	}, nil
}

// =============================================================================
// SLIP - Finalized salary entry
// =============================================================================

type Slip struct {
	ID           string
	EmployeeID   string
	EmployeeName string
	Month        string
	Statement    Statement
	Deductions   []Row
	Extras       []Row
	Advances     []Row
	CompletedAt  time.Time
}

// Slip builds the finalized record of the entry.
func (e *Entry) Slip() (Slip, error) {
	st, err := e.Statement()
	if err != nil {
		return Slip{}, err
	}
	return Slip{
		ID:           uuid.NewString(),
		EmployeeID:   e.employee.ID,
		EmployeeName: e.employee.Name,
		Month:        MonthKey(e.date),
		Statement:    st,
		Deductions:   e.deductions.List(),
		Extras:       e.extras.List(),
		Advances:     e.advances.List(),
		CompletedAt:  e.clock().UTC(),
	}, nil
}

// SlipRecorder keeps finalized slips. Implemented by the same stores as
// generic.Recorder.
type SlipRecorder interface {
	SaveSlip(ctx context.Context, slip Slip) error

	// ListSlips returns slips oldest first. Empty employeeID lists all.
	ListSlips(ctx context.Context, employeeID string) ([]Slip, error)
}

/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine types from the external contract:
  - Amounts are rendered as fixed two-decimal strings
  - Cleared split legs are rendered as empty strings
  - Requests carry validator tags checked before any engine call

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Sessions:
    CreateSessionRequest, SessionDTO, LineItemDTO, TotalsDTO, SplitDTO

  Edits:
    AddItemRequest, AdjustQuantityRequest, RateRequest, DiscountRequest,
    SplitToggleRequest, LegRequest, MethodRequest

  Records:
    RecordDTO, PaymentDetailsDTO

  Salary entries:
    CreateSalaryEntryRequest, DateRequest, DaysPresentRequest, RowRequest,
    SalaryEntryDTO, StatementDTO, RowDTO, SlipDTO

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tillkit/ledger-core/generic"
	"github.com/tillkit/ledger-core/payroll"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

type CreateSessionRequest struct {
	Kind string `json:"kind" validate:"required,oneof=billing purchase"`
}

type AddItemRequest struct {
	CatalogID string `json:"catalog_id" validate:"required"`
}

type AdjustQuantityRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// RateRequest sets a flat or per-item tax rate (percent).
type RateRequest struct {
	Rate *decimal.Decimal `json:"rate" validate:"required"`
}

type DiscountRequest struct {
	Type  string           `json:"type" validate:"required,oneof=percentage fixed"`
	Value *decimal.Decimal `json:"value" validate:"required"`
}

type SplitToggleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// LegRequest carries the raw field content of a split leg. Value may be a
// JSON string ("" clears the leg) or a number.
type LegRequest struct {
	Value json.RawMessage `json:"value"`
}

// Raw returns the field text: strings are unquoted, numbers kept literally,
// null or absent yields "".
func (r LegRequest) Raw() string {
	if len(r.Value) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Value, &s); err == nil {
		return s
	}
	raw := strings.TrimSpace(string(r.Value))
	if raw == "null" {
		return ""
	}
	return raw
}

type MethodRequest struct {
	Method string `json:"method" validate:"required,oneof=upi card net_banking wallet"`
}

type CreateSalaryEntryRequest struct {
	EmployeeID string           `json:"employee_id" validate:"required"`
	Date       string           `json:"date" validate:"required,datetime=2006-01-02"`
	BaseSalary *decimal.Decimal `json:"base_salary,omitempty"`
}

type DateRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

type DaysPresentRequest struct {
	DaysPresent *int `json:"days_present" validate:"required"`
}

type RowRequest struct {
	Name   string           `json:"name" validate:"required"`
	Amount *decimal.Decimal `json:"amount" validate:"required"`
	Note   string           `json:"note,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	State   any    `json:"state,omitempty"`
}

type LineItemDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	TaxRate   string `json:"tax_rate"`
	LineTotal string `json:"line_total"`
}

type TotalsDTO struct {
	Subtotal       string `json:"subtotal"`
	TaxAmount      string `json:"tax_amount"`
	DiscountAmount string `json:"discount_amount"`
	NetTotal       string `json:"net_total"`
}

type TaxDTO struct {
	Mode string `json:"mode"`
	Rate string `json:"rate,omitempty"`
}

type DiscountDTO struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// SplitDTO renders cleared legs as "".
type SplitDTO struct {
	Enabled      bool   `json:"enabled"`
	Cash         string `json:"cash"`
	Online       string `json:"online"`
	OnlineMethod string `json:"online_method"`
}

type SessionDTO struct {
	ID       string        `json:"id"`
	Kind     string        `json:"kind"`
	Items    []LineItemDTO `json:"items"`
	Tax      TaxDTO        `json:"tax"`
	Discount DiscountDTO   `json:"discount"`
	Totals   TotalsDTO     `json:"totals"`
	Split    SplitDTO      `json:"split"`
}

type PaymentDetailsDTO struct {
	Type         string  `json:"type"`
	Amount       *string `json:"amount,omitempty"`
	Cash         *string `json:"cash,omitempty"`
	Online       *string `json:"online,omitempty"`
	OnlineMethod string  `json:"online_method,omitempty"`
}

type RecordDTO struct {
	ID             string            `json:"id"`
	Kind           string            `json:"kind"`
	Items          []LineItemDTO     `json:"items"`
	Subtotal       string            `json:"subtotal"`
	TaxAmount      string            `json:"tax_amount"`
	DiscountAmount string            `json:"discount_amount"`
	NetTotal       string            `json:"net_total"`
	PaymentDetails PaymentDetailsDTO `json:"payment_details"`
	CompletedAt    string            `json:"completed_at"`
}

type CatalogEntryDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Category string `json:"category,omitempty"`
	TaxRate  string `json:"tax_rate"`
}

type EmployeeDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	BaseSalary string `json:"base_salary"`
}

type CatalogDTO struct {
	Products  []CatalogEntryDTO `json:"products"`
	Employees []EmployeeDTO     `json:"employees"`
}

type RowDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Note   string `json:"note,omitempty"`
}

type StatementDTO struct {
	BaseSalary      string `json:"base_salary"`
	DaysInMonth     int    `json:"days_in_month"`
	DaysPresent     int    `json:"days_present"`
	ProratedBase    string `json:"prorated_base"`
	TotalDeductions string `json:"total_deductions"`
	TotalExtras     string `json:"total_extras"`
	TotalAdvances   string `json:"total_advances"`
	NetAccrual      string `json:"net_accrual"`
}

type SalaryEntryDTO struct {
	ID           string       `json:"id"`
	EmployeeID   string       `json:"employee_id"`
	EmployeeName string       `json:"employee_name"`
	Date         string       `json:"date"`
	Deductions   []RowDTO     `json:"deductions"`
	Extras       []RowDTO     `json:"extras"`
	Advances     []RowDTO     `json:"advances"`
	Statement    StatementDTO `json:"statement"`
}

type SlipDTO struct {
	ID           string       `json:"id"`
	EmployeeID   string       `json:"employee_id"`
	EmployeeName string       `json:"employee_name"`
	Month        string       `json:"month"`
	Statement    StatementDTO `json:"statement"`
	Deductions   []RowDTO     `json:"deductions"`
	Extras       []RowDTO     `json:"extras"`
	Advances     []RowDTO     `json:"advances"`
	CompletedAt  string       `json:"completed_at"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func money(d decimal.Decimal) string {
	return d.StringFixed(generic.CurrencyPlaces)
}

func moneyPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := money(*d)
	return &s
}

func toLineItemDTOs(items []generic.LineItem) []LineItemDTO {
	dtos := make([]LineItemDTO, len(items))
	for i, it := range items {
		dtos[i] = LineItemDTO{
			ID:        string(it.ID),
			Name:      it.Name,
			UnitPrice: money(it.UnitPrice),
			Quantity:  it.Quantity,
			TaxRate:   it.TaxRate.String(),
			LineTotal: money(it.LineTotal()),
		}
	}
	return dtos
}

func toTotalsDTO(t generic.Totals) TotalsDTO {
	return TotalsDTO{
		Subtotal:       money(t.Subtotal),
		TaxAmount:      money(t.TaxAmount),
		DiscountAmount: money(t.DiscountAmount),
		NetTotal:       money(t.NetTotal),
	}
}

func toSplitDTO(a generic.SplitAllocation) SplitDTO {
	dto := SplitDTO{
		Enabled:      a.Enabled,
		Cash:         money(a.Cash),
		Online:       money(a.Online),
		OnlineMethod: string(a.OnlineMethod),
	}
	if a.CashCleared {
		dto.Cash = ""
	}
	if a.OnlineCleared {
		dto.Online = ""
	}
	return dto
}

func toSessionDTO(s *generic.Session) SessionDTO {
	tax := TaxDTO{Mode: string(s.TaxSpec().Mode)}
	if s.TaxSpec().Mode == generic.TaxModeFlat {
		tax.Rate = s.TaxSpec().Rate.String()
	}
	discount := s.DiscountSpec()
	return SessionDTO{
		ID:       string(s.ID()),
		Kind:     string(s.Kind()),
		Items:    toLineItemDTOs(s.Items()),
		Tax:      tax,
		Discount: DiscountDTO{Type: string(discount.Type), Value: discount.Value.String()},
		Totals:   toTotalsDTO(s.Totals()),
		Split:    toSplitDTO(s.Allocation()),
	}
}

func toRecordDTO(rec generic.Record) RecordDTO {
	return RecordDTO{
		ID:             string(rec.ID),
		Kind:           string(rec.Kind),
		Items:          toLineItemDTOs(rec.Items),
		Subtotal:       money(rec.Subtotal),
		TaxAmount:      money(rec.TaxAmount),
		DiscountAmount: money(rec.DiscountAmount),
		NetTotal:       money(rec.NetTotal),
		PaymentDetails: PaymentDetailsDTO{
			Type:         string(rec.Payment.Type),
			Amount:       moneyPtr(rec.Payment.Amount),
			Cash:         moneyPtr(rec.Payment.Cash),
			Online:       moneyPtr(rec.Payment.Online),
			OnlineMethod: string(rec.Payment.OnlineMethod),
		},
		CompletedAt: rec.CompletedAt.Format(time.RFC3339),
	}
}

func toRowDTOs(rows []payroll.Row) []RowDTO {
	dtos := make([]RowDTO, len(rows))
	for i, r := range rows {
		dtos[i] = RowDTO{ID: string(r.ID), Name: r.Name, Amount: money(r.Amount), Note: r.Note}
	}
	return dtos
}

func toStatementDTO(st payroll.Statement) StatementDTO {
	return StatementDTO{
		BaseSalary:      money(st.BaseSalary),
		DaysInMonth:     st.DaysInMonth,
		DaysPresent:     st.DaysPresent,
		ProratedBase:    money(st.ProratedBase),
		TotalDeductions: money(st.TotalDeductions),
		TotalExtras:     money(st.TotalExtras),
		TotalAdvances:   money(st.TotalAdvances),
		NetAccrual:      money(st.NetAccrual),
	}
}

func toSalaryEntryDTO(e *payroll.Entry, st payroll.Statement) SalaryEntryDTO {
	return SalaryEntryDTO{
		ID:           e.ID(),
		EmployeeID:   e.Employee().ID,
		EmployeeName: e.Employee().Name,
		Date:         e.Date().Format("2006-01-02"),
		Deductions:   toRowDTOs(e.Rows(payroll.RowDeduction).List()),
		Extras:       toRowDTOs(e.Rows(payroll.RowExtra).List()),
		Advances:     toRowDTOs(e.Rows(payroll.RowAdvance).List()),
		Statement:    toStatementDTO(st),
	}
}

func toSlipDTO(s payroll.Slip) SlipDTO {
	return SlipDTO{
		ID:           s.ID,
		EmployeeID:   s.EmployeeID,
		EmployeeName: s.EmployeeName,
		Month:        s.Month,
		Statement:    toStatementDTO(s.Statement),
		Deductions:   toRowDTOs(s.Deductions),
		Extras:       toRowDTOs(s.Extras),
		Advances:     toRowDTOs(s.Advances),
		CompletedAt:  s.CompletedAt.Format(time.RFC3339),
	}
}

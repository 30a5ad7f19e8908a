// Package store provides Recorder implementations.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/tillkit/ledger-core/generic"
	"github.com/tillkit/ledger-core/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements generic.Recorder and payroll.SlipRecorder.
type Memory struct {
	mu      sync.RWMutex
	records []generic.Record
	byID    map[generic.RecordID]int
	slips   []payroll.Slip
	slipIDs map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[generic.RecordID]int),
		slipIDs: make(map[string]bool),
	}
}

// SaveRecord appends a record. Append-only.
func (m *Memory) SaveRecord(_ context.Context, rec generic.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[rec.ID]; exists {
		return fmt.Errorf("record %s already saved", rec.ID)
	}
	rec.Items = append([]generic.LineItem(nil), rec.Items...)
	m.byID[rec.ID] = len(m.records)
	m.records = append(m.records, rec)
	return nil
}

func (m *Memory) GetRecord(_ context.Context, id generic.RecordID) (generic.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.byID[id]
	if !ok {
		return generic.Record{}, generic.ErrRecordNotFound
	}
	return m.records[i], nil
}

func (m *Memory) ListRecords(_ context.Context, kind generic.Kind) ([]generic.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.Record
	for _, rec := range m.records {
		if kind == "" || rec.Kind == kind {
			result = append(result, rec)
		}
	}
	return result, nil
}

// =============================================================================
// SLIPS
// =============================================================================

func (m *Memory) SaveSlip(_ context.Context, slip payroll.Slip) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.slipIDs[slip.ID] {
		return fmt.Errorf("slip %s already saved", slip.ID)
	}
	m.slipIDs[slip.ID] = true
	m.slips = append(m.slips, slip)
	return nil
}

func (m *Memory) ListSlips(_ context.Context, employeeID string) ([]payroll.Slip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []payroll.Slip
	for _, s := range m.slips {
		if employeeID == "" || s.EmployeeID == employeeID {
			result = append(result, s)
		}
	}
	return result, nil
}

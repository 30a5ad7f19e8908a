/*
Package factory provides JSON to Go catalog conversion.

PURPOSE:
  Converts a JSON catalog document into the read-only inputs of the
  engine: generic.CatalogEntry values for billing and purchase, and
  payroll.Employee values for salary entry. This lets the data collaborator
  hand over plain JSON without the engine knowing where it came from.

JSON SCHEMA:
  {
    "default_tax_rate": 5,
    "products": [
      {"id": "tea", "name": "Masala Tea", "price": "200", "category": "drinks", "tax_rate": 5}
    ],
    "employees": [
      {"id": "emp-1", "name": "A. Kumar", "base_salary": "50000"}
    ]
  }

KEY FEATURES:
  - Validates JSON structure
  - Rejects duplicate IDs, empty names and negative prices
  - Applies default_tax_rate to products without a rate
  - Checks every product rate against the purchase rate table
  - Keeps document order for listing

USAGE:
  catalog, err := factory.ParseCatalog(jsonString)
  entry, ok := catalog.Product("tea")
  session.AddItem(entry)

SEE ALSO:
  - generic/types.go: CatalogEntry
  - payroll/entry.go: Employee
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tillkit/ledger-core/generic"
	"github.com/tillkit/ledger-core/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CatalogJSON is the JSON representation of a catalog.
type CatalogJSON struct {
	DefaultTaxRate *decimal.Decimal `json:"default_tax_rate,omitempty"`
	Products       []ProductJSON    `json:"products"`
	Employees      []EmployeeJSON   `json:"employees,omitempty"`
}

// ProductJSON represents one catalog product.
type ProductJSON struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Price    decimal.Decimal  `json:"price"`
	Category string           `json:"category,omitempty"`
	TaxRate  *decimal.Decimal `json:"tax_rate,omitempty"`
}

// EmployeeJSON represents one employee record.
type EmployeeJSON struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	BaseSalary decimal.Decimal `json:"base_salary"`
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog is an immutable lookup over products and employees.
type Catalog struct {
	products     []generic.CatalogEntry
	productIndex map[generic.ItemID]int
	employees    []payroll.Employee
	employeeIdx  map[string]int
}

// Product returns the entry with the given ID.
func (c *Catalog) Product(id generic.ItemID) (generic.CatalogEntry, bool) {
	i, ok := c.productIndex[id]
	if !ok {
		return generic.CatalogEntry{}, false
	}
	return c.products[i], true
}

// Products returns all entries in document order.
func (c *Catalog) Products() []generic.CatalogEntry {
	return append([]generic.CatalogEntry(nil), c.products...)
}

// Employee returns the employee with the given ID.
func (c *Catalog) Employee(id string) (payroll.Employee, bool) {
	i, ok := c.employeeIdx[id]
	if !ok {
		return payroll.Employee{}, false
	}
	return c.employees[i], true
}

// Employees returns all employees in document order.
func (c *Catalog) Employees() []payroll.Employee {
	return append([]payroll.Employee(nil), c.employees...)
}

// Empty returns a catalog with nothing in it.
func Empty() *Catalog {
	return &Catalog{
		productIndex: map[generic.ItemID]int{},
		employeeIdx:  map[string]int{},
	}
}

// =============================================================================
// PARSING
// =============================================================================

// ParseCatalog parses a JSON string into a Catalog.
func ParseCatalog(jsonStr string) (*Catalog, error) {
	var cj CatalogJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}
	return FromJSON(cj)
}

// FromJSON validates a CatalogJSON and builds a Catalog.
func FromJSON(cj CatalogJSON) (*Catalog, error) {
	defaultRate := decimal.Zero
	if cj.DefaultTaxRate != nil {
		defaultRate = *cj.DefaultTaxRate
	}

	c := Empty()
	for i, pj := range cj.Products {
		entry, err := parseProduct(pj, defaultRate)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", i, err)
		}
		if _, dup := c.productIndex[entry.ID]; dup {
			return nil, fmt.Errorf("product %d: duplicate id %q", i, entry.ID)
		}
		c.productIndex[entry.ID] = len(c.products)
		c.products = append(c.products, entry)
	}

	for i, ej := range cj.Employees {
		id := strings.TrimSpace(ej.ID)
		if id == "" {
			return nil, fmt.Errorf("employee %d: id is required", i)
		}
		if ej.BaseSalary.IsNegative() {
			return nil, fmt.Errorf("employee %d: base_salary must not be negative", i)
		}
		if _, dup := c.employeeIdx[id]; dup {
			return nil, fmt.Errorf("employee %d: duplicate id %q", i, id)
		}
		c.employeeIdx[id] = len(c.employees)
		c.employees = append(c.employees, payroll.Employee{
			ID:         id,
			Name:       strings.TrimSpace(ej.Name),
			BaseSalary: ej.BaseSalary,
		})
	}
	return c, nil
}

func parseProduct(pj ProductJSON, defaultRate decimal.Decimal) (generic.CatalogEntry, error) {
	id := strings.TrimSpace(pj.ID)
	name := strings.TrimSpace(pj.Name)
	if id == "" {
		return generic.CatalogEntry{}, fmt.Errorf("id is required")
	}
	if name == "" {
		return generic.CatalogEntry{}, fmt.Errorf("name is required for %q", id)
	}
	if pj.Price.IsNegative() {
		return generic.CatalogEntry{}, fmt.Errorf("price must not be negative for %q", id)
	}

	rate := defaultRate
	if pj.TaxRate != nil {
		rate = *pj.TaxRate
	}
	if !generic.PurchaseRates.Contains(rate) {
		return generic.CatalogEntry{}, fmt.Errorf("%w: %s for %q", generic.ErrInvalidTaxRate, rate, id)
	}

	return generic.CatalogEntry{
		ID:       generic.ItemID(id),
		Name:     name,
		Price:    pj.Price,
		Category: strings.TrimSpace(pj.Category),
		TaxRate:  rate,
	}, nil
}

// ToJSON converts a Catalog back to its JSON form.
func (c *Catalog) ToJSON() CatalogJSON {
	cj := CatalogJSON{}
	for _, p := range c.products {
		rate := p.TaxRate
		cj.Products = append(cj.Products, ProductJSON{
			ID:       string(p.ID),
			Name:     p.Name,
			Price:    p.Price,
			Category: p.Category,
			TaxRate:  &rate,
		})
	}
	for _, e := range c.employees {
		cj.Employees = append(cj.Employees, EmployeeJSON{ID: e.ID, Name: e.Name, BaseSalary: e.BaseSalary})
	}
	return cj
}

package assumption

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// DRIVER BASES (tagged unions)
// The meaning of a driver's value depends on its basis, so each basis is its
// own type and the JSON "method"/"basis" tag selects it.
// =============================================================================

// COGSBasis is either PercentOfRevenue or UnitCost.
type COGSBasis interface {
	cogsMethod() string
}

// OpexBasis is either PercentOfRevenue or FixedAmount.
type OpexBasis interface {
	opexBasis() string
}

// PercentOfRevenue derives the line as a percentage of period revenue.
type PercentOfRevenue struct {
	Percent float64
}

// UnitCost derives COGS from recognised volume. BySegment overrides Default
// for the named revenue segments.
type UnitCost struct {
	Default   float64
	BySegment map[string]float64
}

// For returns the unit cost applied to a segment.
func (u UnitCost) For(segment string) float64 {
	if c, ok := u.BySegment[segment]; ok {
		return c
	}
	return u.Default
}

// FixedAmount is an annual amount spread evenly over the year's periods.
type FixedAmount struct {
	Annual float64
}

const (
	methodPercentOfRevenue = "percentOfRevenue"
	methodUnitCost         = "unitCost"
	basisFixed             = "fixed"
)

func (PercentOfRevenue) cogsMethod() string { return methodPercentOfRevenue }
func (PercentOfRevenue) opexBasis() string  { return methodPercentOfRevenue }
func (UnitCost) cogsMethod() string         { return methodUnitCost }
func (FixedAmount) opexBasis() string       { return basisFixed }

// Method returns the wire name of the COGS method, or "" when unset.
func (c COGSDriver) Method() string {
	if c.Basis == nil {
		return ""
	}
	return c.Basis.cogsMethod()
}

// -----------------------------------------------------------------------------
// COGS wire format: {"method":"percentOfRevenue","percentOfRevenue":40}
//                   {"method":"unitCost","unitCost":12,"unitCosts":{"A":10}}
// -----------------------------------------------------------------------------

type cogsWire struct {
	Method           string             `json:"method,omitempty"`
	PercentOfRevenue *float64           `json:"percentOfRevenue,omitempty"`
	UnitCost         *float64           `json:"unitCost,omitempty"`
	UnitCosts        map[string]float64 `json:"unitCosts,omitempty"`
	InventoryMethod  InventoryMethod    `json:"inventoryMethod,omitempty"`
}

// MarshalJSON writes only the field that is authoritative for the method.
func (c COGSDriver) MarshalJSON() ([]byte, error) {
	w := cogsWire{InventoryMethod: c.InventoryMethod}
	switch b := c.Basis.(type) {
	case nil:
	case PercentOfRevenue:
		w.Method = methodPercentOfRevenue
		w.PercentOfRevenue = &b.Percent
	case UnitCost:
		w.Method = methodUnitCost
		w.UnitCost = &b.Default
		w.UnitCosts = b.BySegment
	default:
		return nil, fmt.Errorf("unknown COGS basis %T", b)
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the method tag and the matching value field.
func (c *COGSDriver) UnmarshalJSON(data []byte) error {
	var w cogsWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.InventoryMethod = w.InventoryMethod
	c.Basis = nil
	switch w.Method {
	case "":
	case methodPercentOfRevenue:
		b := PercentOfRevenue{}
		if w.PercentOfRevenue != nil {
			b.Percent = *w.PercentOfRevenue
		}
		c.Basis = b
	case methodUnitCost:
		b := UnitCost{BySegment: w.UnitCosts}
		if w.UnitCost != nil {
			b.Default = *w.UnitCost
		}
		c.Basis = b
	default:
		return fmt.Errorf("unknown COGS method '%s'", w.Method)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Opex wire format: {"name":"Rent","basis":"fixed","value":120000}
// -----------------------------------------------------------------------------

type opexWire struct {
	Name  string  `json:"name"`
	Basis string  `json:"basis"`
	Value float64 `json:"value"`
}

// MarshalJSON flattens the basis into the basis/value pair.
func (o OpexDriver) MarshalJSON() ([]byte, error) {
	w := opexWire{Name: o.Name}
	switch b := o.Basis.(type) {
	case PercentOfRevenue:
		w.Basis, w.Value = methodPercentOfRevenue, b.Percent
	case FixedAmount:
		w.Basis, w.Value = basisFixed, b.Annual
	case nil:
		return nil, fmt.Errorf("opex line '%s' has no basis", o.Name)
	default:
		return nil, fmt.Errorf("unknown opex basis %T", b)
	}
	return json.Marshal(w)
}

// UnmarshalJSON interprets value according to basis.
func (o *OpexDriver) UnmarshalJSON(data []byte) error {
	var w opexWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	o.Name = w.Name
	switch w.Basis {
	case methodPercentOfRevenue:
		o.Basis = PercentOfRevenue{Percent: w.Value}
	case basisFixed:
		o.Basis = FixedAmount{Annual: w.Value}
	default:
		return fmt.Errorf("opex line '%s': unknown basis '%s'", w.Name, w.Basis)
	}
	return nil
}

package models

import (
	"sort"
)

// PlanName identifies a purchasable credit pack.
type PlanName string

const (
	PlanBasic    PlanName = "Basic"
	PlanAdvanced PlanName = "Advanced"
	PlanBusiness PlanName = "Business"
)

// Plan is the price and credit grant of a pack. Amount is in minor currency
// units.
type Plan struct {
	Name    PlanName
	Amount  int64
	Credits int64
}

// Catalog maps plan names to their current terms.
type Catalog map[PlanName]Plan

// DefaultCatalog returns the plans offered at checkout.
func DefaultCatalog() Catalog {
	return Catalog{
		PlanBasic:    {Name: PlanBasic, Amount: 29900, Credits: 100},
		PlanAdvanced: {Name: PlanAdvanced, Amount: 79900, Credits: 500},
		PlanBusiness: {Name: PlanBusiness, Amount: 799900, Credits: 5000},
	}
}

// Lookup returns the plan with the given name.
func (c Catalog) Lookup(name string) (Plan, bool) {
	p, ok := c[PlanName(name)]
	return p, ok
}

// Names returns the plan names sorted by price.
func (c Catalog) Names() []string {
	plans := make([]Plan, 0, len(c))
	for _, p := range c {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Amount < plans[j].Amount })

	names := make([]string, len(plans))
	for i, p := range plans {
		names[i] = string(p.Name)
	}
	return names
}

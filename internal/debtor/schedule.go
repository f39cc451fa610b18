package debtor

import (
	"sort"

	"github.com/barpos/barpos/internal/money"
)

// Tier maps a minimum debt (inclusive, in minor units beyond zero) to a
// fine amount.
type Tier struct {
	MinDebt int64
	Fine    int64
}

// Schedule is the deployment's fine policy: the debt threshold below
// which users become eligible, and the tiered fine amounts. Amounts are
// minor units in the default currency. Tiers are kept sorted by MinDebt
// ascending; build one through NewSchedule.
type Schedule struct {
	Threshold int64
	Tiers     []Tier
}

// NewSchedule copies the tiers and sorts them by MinDebt ascending.
func NewSchedule(threshold int64, tiers []Tier) Schedule {
	sorted := append([]Tier(nil), tiers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinDebt < sorted[j].MinDebt })
	return Schedule{Threshold: threshold, Tiers: sorted}
}

// DefaultSchedule mirrors the production configuration: eligibility at
// five currency units of debt, fines stepping up with the deficit.
func DefaultSchedule() Schedule {
	return NewSchedule(500, []Tier{
		{MinDebt: 500, Fine: 100},
		{MinDebt: 1000, Fine: 250},
		{MinDebt: 2500, Fine: 500},
	})
}

// Eligible reports whether a balance is at or past the debt threshold.
func (s Schedule) Eligible(balance money.Money) bool {
	return balance.Amount <= -s.Threshold
}

// FineFor computes the fine for a primary-date balance: the fine of the
// deepest tier whose MinDebt the deficit reaches. Pure function of the
// balance; zero for balances above the threshold.
func (s Schedule) FineFor(balance money.Money) money.Money {
	deficit := -balance.Amount
	if deficit < s.Threshold {
		return money.Money{Amount: 0, Currency: balance.Currency, Precision: balance.Precision}
	}
	var fine int64
	for _, t := range s.Tiers {
		if deficit >= t.MinDebt {
			fine = t.Fine
		}
	}
	return money.Money{Amount: fine, Currency: balance.Currency, Precision: balance.Precision}
}

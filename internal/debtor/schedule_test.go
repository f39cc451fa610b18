package debtor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/barpos/barpos/internal/money"
)

func TestScheduleEligible(t *testing.T) {
	s := DefaultSchedule()

	require.False(t, s.Eligible(money.New(0)))
	require.False(t, s.Eligible(money.New(-499)))
	require.True(t, s.Eligible(money.New(-500)))
	require.True(t, s.Eligible(money.New(-600)))
}

func TestScheduleFineFor(t *testing.T) {
	s := DefaultSchedule()

	cases := []struct {
		balance int64
		fine    int64
	}{
		{0, 0},
		{-499, 0},
		{-500, 100},
		{-600, 100},
		{-999, 100},
		{-1000, 250},
		{-2499, 250},
		{-2500, 500},
		{-100000, 500},
	}
	for _, c := range cases {
		got := s.FineFor(money.New(c.balance))
		require.Equal(t, c.fine, got.Amount, "balance %d", c.balance)
		require.Equal(t, money.DefaultCurrency, got.Currency)
	}
}

func TestNewScheduleSortsTiers(t *testing.T) {
	s := NewSchedule(500, []Tier{
		{MinDebt: 2500, Fine: 500},
		{MinDebt: 500, Fine: 100},
		{MinDebt: 1000, Fine: 250},
	})

	require.Equal(t, []Tier{
		{MinDebt: 500, Fine: 100},
		{MinDebt: 1000, Fine: 250},
		{MinDebt: 2500, Fine: 500},
	}, s.Tiers)
	require.Equal(t, int64(250), s.FineFor(money.New(-1500)).Amount)
}

func TestScheduleFineIsPure(t *testing.T) {
	s := DefaultSchedule()
	first := s.FineFor(money.New(-1234))
	for i := 0; i < 3; i++ {
		require.Equal(t, first, s.FineFor(money.New(-1234)))
	}
}

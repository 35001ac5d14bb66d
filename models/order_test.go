package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to string
		allowed  bool
	}{
		{StatusPending, StatusAccepted, true},
		{StatusPending, StatusRefunded, true},
		{StatusAccepted, StatusCompleted, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusPreparing, false},
		{StatusAccepted, StatusRefunded, false},
		{StatusAccepted, StatusPending, false},
		{StatusCompleted, StatusRefunded, false},
		{StatusCompleted, StatusPending, false},
		{StatusRefunded, StatusAccepted, false},
		{StatusRefunded, StatusPending, false},
		{StatusPreparing, StatusCompleted, false},
	}

	for _, tc := range cases {
		order := Order{Status: tc.from}
		assert.Equalf(t, tc.allowed, order.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestTerminalStates(t *testing.T) {
	assert.False(t, (&Order{Status: StatusPending}).Terminal())
	assert.False(t, (&Order{Status: StatusAccepted}).Terminal())
	assert.True(t, (&Order{Status: StatusCompleted}).Terminal())
	assert.True(t, (&Order{Status: StatusRefunded}).Terminal())
}

func TestRecomputeTotal(t *testing.T) {
	order := Order{
		Items: []OrderItem{
			{Price: 5.00, Quantity: 2},
			{Price: 3.00, Quantity: 1},
		},
	}
	order.TotalPrice = 999 // client-supplied values are never trusted
	order.RecomputeTotal()
	assert.InDelta(t, 13.00, order.TotalPrice, 0.001)
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusPending, StatusAccepted, StatusPreparing, StatusCompleted, StatusRefunded} {
		assert.True(t, ValidStatus(s))
	}
	assert.False(t, ValidStatus("Paid"))
	assert.False(t, ValidStatus(""))
}

func TestMenuItemInStock(t *testing.T) {
	five := 5
	tracked := MenuItem{TrackStock: true, Stock: &five}
	assert.True(t, tracked.InStock(5))
	assert.False(t, tracked.InStock(6))

	// Stock is meaningless for untracked items and must not gate anything.
	zero := 0
	untracked := MenuItem{TrackStock: false, Stock: &zero}
	assert.True(t, untracked.InStock(100))
	assert.Nil(t, untracked.MarshalStock())
}

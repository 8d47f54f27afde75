package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmountMinor(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{name: "integer amount", raw: "10", want: 1000},
		{name: "two decimal places", raw: "10.00", want: 1000},
		{name: "cents preserved", raw: "19.99", want: 1999},
		{name: "one decimal place", raw: "0.5", want: 50},
		{name: "surrounding whitespace", raw: " 12.34 ", want: 1234},
		{name: "zero rejected", raw: "0", wantErr: true},
		{name: "negative rejected", raw: "-5.00", wantErr: true},
		{name: "three decimal places rejected", raw: "10.001", wantErr: true},
		{name: "not a number", raw: "ten", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmountMinor(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				var verrs ValidationErrors
				assert.ErrorAs(t, err, &verrs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMinorToMajor(t *testing.T) {
	assert.Equal(t, "10.00", MinorToMajor(1000))
	assert.Equal(t, "0.05", MinorToMajor(5))
	assert.Equal(t, "19.99", MinorToMajor(1999))
	assert.Equal(t, "0.00", MinorToMajor(0))
}

func TestNormalizeCurrency(t *testing.T) {
	got, err := NormalizeCurrency("eur")
	require.NoError(t, err)
	assert.Equal(t, "EUR", got)

	got, err = NormalizeCurrency(" GBP ")
	require.NoError(t, err)
	assert.Equal(t, "GBP", got)

	_, err = NormalizeCurrency("EURO")
	assert.Error(t, err)

	_, err = NormalizeCurrency("E1R")
	assert.Error(t, err)

	_, err = NormalizeCurrency("")
	assert.Error(t, err)
}

func TestSessionStatusTransitions(t *testing.T) {
	assert.True(t, SessionCreated.CanTransitionTo(SessionSubmitted))
	assert.True(t, SessionSubmitted.CanTransitionTo(SessionPending))
	assert.True(t, SessionPending.CanTransitionTo(SessionConfirmed))
	assert.True(t, SessionPending.CanTransitionTo(SessionFailed))
	assert.True(t, SessionPending.CanTransitionTo(SessionTimedOut))

	// Terminal states have no exit
	assert.False(t, SessionConfirmed.CanTransitionTo(SessionFailed))
	assert.False(t, SessionConfirmed.CanTransitionTo(SessionPending))
	assert.False(t, SessionFailed.CanTransitionTo(SessionConfirmed))

	// TIMED_OUT is non-committal: a session that resolves late can still
	// reach a terminal state
	assert.True(t, SessionTimedOut.CanTransitionTo(SessionConfirmed))
	assert.True(t, SessionTimedOut.CanTransitionTo(SessionFailed))
	assert.True(t, SessionTimedOut.CanTransitionTo(SessionPending))
	assert.False(t, SessionTimedOut.CanTransitionTo(SessionCreated))

	// No going back from SUBMITTED
	assert.False(t, SessionSubmitted.CanTransitionTo(SessionCreated))
}

func TestSessionStatusIsTerminal(t *testing.T) {
	assert.True(t, SessionConfirmed.IsTerminal())
	assert.True(t, SessionFailed.IsTerminal())
	assert.False(t, SessionTimedOut.IsTerminal())
	assert.False(t, SessionCreated.IsTerminal())
	assert.False(t, SessionSubmitted.IsTerminal())
	assert.False(t, SessionPending.IsTerminal())
}

func TestCartSnapshotIsEmpty(t *testing.T) {
	var nilCart *CartSnapshot
	assert.True(t, nilCart.IsEmpty())
	assert.True(t, (&CartSnapshot{}).IsEmpty())
	assert.False(t, (&CartSnapshot{Items: []CartItem{{Title: "Mug", Quantity: 1, UnitPriceMinor: 500}}}).IsEmpty())
}

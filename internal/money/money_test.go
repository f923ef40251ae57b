package money

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{name: "integer", in: "100", want: 10000},
		{name: "two decimals", in: "12.50", want: 1250},
		{name: "one decimal", in: "0.5", want: 50},
		{name: "trimmed", in: " 7.01 ", want: 701},
		{name: "negative", in: "-3.20", want: -320},
		{name: "three decimals", in: "1.005", wantErr: true},
		{name: "not a number", in: "abc", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrderTotal(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		quantity int64
		want     int64
	}{
		{name: "exact thousand", price: 1000, quantity: 1000, want: 1000},
		{name: "hundred units", price: 2500, quantity: 100, want: 250},
		{name: "rounds half up", price: 333, quantity: 150, want: 50},
		{name: "rounds to nearest", price: 333, quantity: 140, want: 47},
		{name: "tiny order rounds to zero", price: 1, quantity: 100, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OrderTotal(tt.price, tt.quantity)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrderTotal_OutOfRange(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		quantity int64
	}{
		{name: "product wraps int64", price: 10000, quantity: 1844674407370955162},
		{name: "max quantity", price: 1, quantity: math.MaxInt64},
		{name: "just above max cents", price: 1000, quantity: MaxCents + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OrderTotal(tt.price, tt.quantity)
			assert.ErrorIs(t, err, ErrOutOfRange)
		})
	}

	got, err := OrderTotal(1000, MaxCents)
	require.NoError(t, err)
	assert.Equal(t, MaxCents, got)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "100.00", Format(10000))
	assert.Equal(t, "0.05", Format(5))
	assert.Equal(t, "-1.50", Format(-150))
	assert.InDelta(t, 40.0, ToFloat(4000), 1e-9)
}

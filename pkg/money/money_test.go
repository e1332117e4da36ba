package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Amount
		wantErr bool
	}{
		{"600", 60000, false},
		{"12.5", 1250, false},
		{"12.05", 1205, false},
		{"0.01", 1, false},
		{".5", 50, false},
		{"-3.10", -310, false},
		{"1.234", 0, true},
		{"abc", 0, true},
		{"1.", 0, true},
		{"", 0, true},
		{"1e3", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmount_String(t *testing.T) {
	assert.Equal(t, "600.00", Amount(60000).String())
	assert.Equal(t, "0.07", Amount(7).String())
	assert.Equal(t, "-2.50", Amount(-250).String())
}

func TestAmount_JSON(t *testing.T) {
	var payload struct {
		Price Amount `json:"price"`
		Str   Amount `json:"str"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price": 99.99, "str": "100"}`), &payload))
	assert.Equal(t, Amount(9999), payload.Price)
	assert.Equal(t, Amount(10000), payload.Str)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"price": 99.99, "str": 100.00}`, string(out))
}

func TestParse_Range(t *testing.T) {
	got, err := Parse("9999999999.99")
	require.NoError(t, err)
	assert.Equal(t, Max, got)

	got, err = Parse("0009999999999.99")
	require.NoError(t, err)
	assert.Equal(t, Max, got, "leading zeros do not count against the limit")

	for _, in := range []string{
		"10000000000",
		"10000000000.00",
		"184467440737095517",
		"184467440737095517.16",
		"92233720368547758",
		"99999999999999999999999",
		"-184467440737095517",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			assert.ErrorIs(t, err, ErrOutOfRange)
		})
	}

	var payload struct {
		Price Amount `json:"price"`
	}
	err = json.Unmarshal([]byte(`{"price": "184467440737095517.16"}`), &payload)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Zero(t, payload.Price)
}

func TestAmount_Mul(t *testing.T) {
	got, err := FromMajor(500).Mul(3)
	require.NoError(t, err)
	assert.Equal(t, FromMajor(1500), got)

	got, err = Amount(0).Mul(1_000_000)
	require.NoError(t, err)
	assert.Zero(t, got)

	got, err = Max.Mul(1)
	require.NoError(t, err)
	assert.Equal(t, Max, got)

	_, err = Max.Mul(2)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = FromMajor(1_000_000_000).Mul(10)
	assert.ErrorIs(t, err, ErrOutOfRange)

	// would wrap around int64 if multiplied directly
	_, err = Amount(9_223_372_036_854_775).Mul(3000)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = Amount(-1).Mul(2)
	assert.Error(t, err)
}

func TestAdd(t *testing.T) {
	sum, err := Add(FromMajor(500), FromMajor(100), 1)
	require.NoError(t, err)
	assert.Equal(t, Amount(60001), sum)

	sum, err = Add()
	require.NoError(t, err)
	assert.Zero(t, sum)

	_, err = Add(Max, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = Add(1, -1)
	assert.Error(t, err)
}

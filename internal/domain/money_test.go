package domain

import (
	"encoding/json"
	"math"
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentsFromNumeric_SeedPrices(t *testing.T) {
	// 9.99 as scanned from numeric(10,2): Int=999, Exp=-2
	for _, c := range []int64{999, 1999, 3999} {
		v, err := CentsFromNumeric(pgtype.Numeric{Int: big.NewInt(c), Exp: -2, Valid: true})
		require.NoError(t, err)
		assert.Equal(t, Cents(c), v)
	}
}

func TestCentsFromNumeric_Scales(t *testing.T) {
	tests := []struct {
		name string
		n    pgtype.Numeric
		want Cents
	}{
		{"whole number", pgtype.Numeric{Int: big.NewInt(20), Exp: 0, Valid: true}, 2000},
		{"positive exponent", pgtype.Numeric{Int: big.NewInt(5), Exp: 2, Valid: true}, 50000},
		{"trailing zero past cents", pgtype.Numeric{Int: big.NewInt(9990), Exp: -3, Valid: true}, 999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := CentsFromNumeric(tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestCentsFromNumeric_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		n       pgtype.Numeric
		wantErr string
	}{
		{"null", pgtype.Numeric{}, "NULL"},
		{"nan", pgtype.Numeric{NaN: true, Valid: true}, "not finite"},
		{"sub-cent", pgtype.Numeric{Int: big.NewInt(9999), Exp: -3, Valid: true}, "two decimal places"},
		{"overflow", pgtype.Numeric{Int: big.NewInt(math.MaxInt64), Exp: 0, Valid: true}, "overflows"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CentsFromNumeric(tt.n)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCents_NumericRoundtrip(t *testing.T) {
	for _, v := range []Cents{0, 1, -1, 999, MaxCents, math.MaxInt64, math.MinInt64} {
		got, err := CentsFromNumeric(v.Numeric())
		require.NoError(t, err, "value: %d", v)
		assert.Equal(t, v, got)
	}
}

func TestCents_String(t *testing.T) {
	assert.Equal(t, "0.00", Cents(0).String())
	assert.Equal(t, "39.99", Cents(3999).String())
	assert.Equal(t, "-1.05", Cents(-105).String())
	assert.Equal(t, "99999999.99", MaxCents.String())
}

func TestCents_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want Cents
	}{
		{`59.99`, 5999},
		{`20`, 2000},
		{`0.5`, 50},
		{`"19.99"`, 1999},
	}
	for _, tt := range tests {
		var c Cents
		require.NoError(t, json.Unmarshal([]byte(tt.in), &c), tt.in)
		assert.Equal(t, tt.want, c, tt.in)
	}

	for _, bad := range []string{`9.999`, `"abc"`, `true`, `"NaN"`} {
		var c Cents
		assert.Error(t, json.Unmarshal([]byte(bad), &c), bad)
	}
}

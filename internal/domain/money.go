package domain

import (
	"bytes"
	"fmt"
	"math/big"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"
)

// Cents is an amount in hundredths of the currency unit. It is stored as
// NUMERIC(10,2) and travels in JSON as a decimal number, e.g. 9.99.
type Cents int64

// MaxCents is the largest amount NUMERIC(10,2) holds (99999999.99).
const MaxCents Cents = 9_999_999_999

var (
	bigTen     = big.NewInt(10)
	bigHundred = big.NewInt(100)
)

// CentsFromNumeric converts a NUMERIC value to cents. Values with a non-zero
// digit past the second decimal are rejected rather than rounded.
func CentsFromNumeric(n pgtype.Numeric) (Cents, error) {
	if !n.Valid {
		return 0, fmt.Errorf("numeric value is NULL")
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return 0, fmt.Errorf("numeric value is not finite")
	}

	// value = Int * 10^Exp, so cents = Int * 10^(Exp+2)
	bi := new(big.Int).Set(n.Int)
	shift := int64(n.Exp) + 2
	switch {
	case shift > 0:
		bi.Mul(bi, new(big.Int).Exp(bigTen, big.NewInt(shift), nil))
	case shift < 0:
		var rem big.Int
		bi.QuoRem(bi, new(big.Int).Exp(bigTen, big.NewInt(-shift), nil), &rem)
		if rem.Sign() != 0 {
			return 0, fmt.Errorf("amount has more than two decimal places")
		}
	}

	if !bi.IsInt64() {
		return 0, fmt.Errorf("numeric value %s overflows int64", bi.String())
	}
	return Cents(bi.Int64()), nil
}

// Numeric converts c for writing to a NUMERIC(10,2) column.
func (c Cents) Numeric() pgtype.Numeric {
	return pgtype.Numeric{
		Int:              big.NewInt(int64(c)),
		Exp:              -2,
		InfinityModifier: pgtype.Finite,
		Valid:            true,
	}
}

// String renders c with two decimals, e.g. 999 -> "9.99".
func (c Cents) String() string {
	v := new(big.Int).SetInt64(int64(c))
	sign := ""
	if v.Sign() < 0 {
		sign = "-"
		v.Neg(v)
	}
	whole, frac := new(big.Int).QuoRem(v, bigHundred, new(big.Int))
	return fmt.Sprintf("%s%s.%02d", sign, whole.String(), frac.Int64())
}

func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (c *Cents) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return fmt.Errorf("invalid amount %s", b)
		}
		b = []byte(s)
	}

	var n pgtype.Numeric
	if err := n.UnmarshalJSON(b); err != nil || !n.Valid || n.NaN {
		return fmt.Errorf("invalid amount %s", b)
	}
	v, err := CentsFromNumeric(n)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

package domain

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
)

// Amount is an unsigned 256-bit quantity of value or tokens.
// Arithmetic saturates instead of wrapping; no operation panics.
type Amount struct {
	v uint256.Int
}

// ZeroAmount is the additive identity.
var ZeroAmount = Amount{}

var maxAmount = Amount{v: *new(uint256.Int).SetAllOne()}

// MaxAmount returns 2^256 - 1.
func MaxAmount() Amount { return maxAmount }

var maxInput = Amount{v: *new(uint256.Int).Rsh(new(uint256.Int).SetAllOne(), 128)}

// MaxInput returns 2^128 - 1, the largest amount accepted from callers.
// Products of two inputs stay below 2^256.
func MaxInput() Amount { return maxInput }

// NewAmount builds an Amount from a uint64.
func NewAmount(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// ParseAmount parses a base-10 string.
func ParseAmount(s string) (Amount, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Amount{v: *v}, nil
}

// MustParseAmount is ParseAmount that panics on error.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Add returns a+b, saturating at MaxAmount.
func (a Amount) Add(b Amount) Amount {
	var r Amount
	if _, overflow := r.v.AddOverflow(&a.v, &b.v); overflow {
		return maxAmount
	}
	return r
}

// Sub returns a-b, saturating at zero.
func (a Amount) Sub(b Amount) Amount {
	var r Amount
	if _, underflow := r.v.SubOverflow(&a.v, &b.v); underflow {
		return ZeroAmount
	}
	return r
}

// Mul returns a*b, saturating at MaxAmount.
func (a Amount) Mul(b Amount) Amount {
	var r Amount
	if _, overflow := r.v.MulOverflow(&a.v, &b.v); overflow {
		return maxAmount
	}
	return r
}

// Div returns floor(a/b). Division by zero yields zero.
func (a Amount) Div(b Amount) Amount {
	var r Amount
	r.v.Div(&a.v, &b.v)
	return r
}

// MulDiv returns floor(a*b/d) using a 512-bit intermediate product,
// saturating when the quotient does not fit. d == 0 yields zero.
func (a Amount) MulDiv(b, d Amount) Amount {
	if d.IsZero() {
		return ZeroAmount
	}
	var r Amount
	if _, overflow := r.v.MulDivOverflow(&a.v, &b.v, &d.v); overflow {
		return maxAmount
	}
	return r
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

// Lt reports a < b.
func (a Amount) Lt(b Amount) bool { return a.v.Lt(&b.v) }

// Gt reports a > b.
func (a Amount) Gt(b Amount) bool { return a.v.Gt(&b.v) }

// IsZero reports a == 0.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// String returns the base-10 representation.
func (a Amount) String() string { return a.v.Dec() }

// Float64 returns the nearest float64, for metrics only.
func (a Amount) Float64() float64 { return a.v.Float64() }

// MinAmount returns the smallest of the given amounts.
func MinAmount(first Amount, rest ...Amount) Amount {
	m := first
	for _, x := range rest {
		if x.Lt(m) {
			m = x
		}
	}
	return m
}

// MarshalText encodes the amount as a decimal string.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes a decimal string.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON encodes the amount as a JSON string so values above 2^53 survive.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts either a JSON string or a bare JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	return a.UnmarshalText([]byte(s))
}

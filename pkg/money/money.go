// Package money holds currency amounts as integer minor units (cents).
package money

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Amount is a currency value in minor units with two implied decimals.
type Amount int64

// Scale is the number of minor units per major unit.
const Scale = 100

// Max is the largest amount a NUMERIC(12,2) column holds, 9999999999.99.
const Max Amount = 999999999999

// ErrOutOfRange is returned when an amount or a product of amounts would
// exceed Max.
var ErrOutOfRange = errors.New("amount out of range")

// maxWholeDigits is the number of digits before the point that Max allows.
const maxWholeDigits = 10

// FromMajor builds an Amount from whole units.
func FromMajor(units int64) Amount { return Amount(units * Scale) }

// Parse reads a decimal string such as "12", "12.5" or "12.50". More than two
// fractional digits is rejected rather than rounded.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && (!hasDot || frac == "") {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if whole == "" {
		whole = "0"
	}
	if hasDot && frac == "" {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
	}

	if digits := strings.TrimLeft(whole, "0"); len(digits) > maxWholeDigits {
		return 0, fmt.Errorf("amount %q: %w", s, ErrOutOfRange)
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	cents, _ := strconv.ParseInt(frac, 10, 64)

	v := units*Scale + cents
	if Amount(v) > Max {
		return 0, fmt.Errorf("amount %q: %w", s, ErrOutOfRange)
	}
	if neg {
		v = -v
	}
	return Amount(v), nil
}

// Mul multiplies a non-negative amount by a positive quantity. A product
// above Max returns ErrOutOfRange.
func (a Amount) Mul(qty int) (Amount, error) {
	if a < 0 || qty < 0 {
		return 0, fmt.Errorf("multiply %s by %d: negative operand", a, qty)
	}
	if a == 0 || qty == 0 {
		return 0, nil
	}
	if int64(qty) > int64(Max/a) {
		return 0, ErrOutOfRange
	}
	return a * Amount(qty), nil
}

// Add sums non-negative amounts, failing with ErrOutOfRange above Max.
func Add(amounts ...Amount) (Amount, error) {
	var sum Amount
	for _, a := range amounts {
		if a < 0 {
			return 0, fmt.Errorf("add %s: negative operand", a)
		}
		if a > Max-sum {
			return 0, ErrOutOfRange
		}
		sum += a
	}
	return sum, nil
}

// String renders the amount with exactly two decimals.
func (a Amount) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/Scale, v%Scale)
}

// MarshalJSON writes the amount as a JSON number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}
	v, err := Parse(raw)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

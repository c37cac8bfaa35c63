// Package types provides common types used across Balancer.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Settlement currency codes understood by the balancer.
const (
	USDCCurrency  = "usdc"
	USDTCurrency  = "usdt"
	PYUSDCurrency = "pyusd"
)

// ErrOverflow is returned by checked arithmetic when the result does not fit in int64.
var ErrOverflow = errors.New("money: amount overflows int64")

// Money represents a signed fixed-point amount in the smallest unit of its
// currency. All arithmetic is integer-only.
//
// Examples:
//   - USDC(26_666667) = 26.666667 USDC
//   - USD(4900) = $49.00
type Money struct {
	Amount   int64  `json:"amount"`   // Smallest unit (micro-dollars for USDC, cents for USD)
	Currency string `json:"currency"` // Lowercase code: "usdc", "usdt", "usd"
}

// USDC creates a Money value in USD Coin (6 decimals).
func USDC(micro int64) Money { return Money{Amount: micro, Currency: USDCCurrency} }

// USDT creates a Money value in Tether (6 decimals).
func USDT(micro int64) Money { return Money{Amount: micro, Currency: USDTCurrency} }

// USD creates a Money value in US Dollars (cents).
func USD(cents int64) Money { return Money{Amount: cents, Currency: "usd"} }

// EUR creates a Money value in Euros (cents).
func EUR(cents int64) Money { return Money{Amount: cents, Currency: "eur"} }

// JPY creates a Money value in Japanese Yen (no decimal).
func JPY(yen int64) Money { return Money{Amount: yen, Currency: "jpy"} }

// Zero returns a zero Money value in the specified currency.
func Zero(currency string) Money { return Money{Amount: 0, Currency: strings.ToLower(currency)} }

// Add adds two Money values. Panics if currencies don't match.
func (m Money) Add(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// CheckedAdd adds two Money values, reporting ErrOverflow instead of wrapping.
// Panics if currencies don't match.
func (m Money) CheckedAdd(other Money) (Money, error) {
	m.assertSameCurrency(other)
	if (other.Amount > 0 && m.Amount > math.MaxInt64-other.Amount) ||
		(other.Amount < 0 && m.Amount < math.MinInt64-other.Amount) {
		return Money{}, ErrOverflow
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Subtract subtracts another Money value. Panics if currencies don't match.
func (m Money) Subtract(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}
}

// Multiply multiplies the Money by a quantity.
func (m Money) Multiply(qty int64) Money {
	return Money{Amount: m.Amount * qty, Currency: m.Currency}
}

// Divide divides the Money by a divisor. Uses truncating integer division.
func (m Money) Divide(divisor int64) Money {
	if divisor == 0 {
		panic("money: division by zero")
	}
	return Money{Amount: m.Amount / divisor, Currency: m.Currency}
}

// Negate returns the negative of the Money value.
func (m Money) Negate() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

// Abs returns the absolute value.
func (m Money) Abs() Money {
	if m.Amount < 0 {
		return Money{Amount: -m.Amount, Currency: m.Currency}
	}
	return m
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount > 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Equal returns true if both Money values are equal (same amount and currency).
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// SameCurrency reports whether other is denominated in the same currency.
func (m Money) SameCurrency(other Money) bool {
	return m.Currency == other.Currency
}

// LessThan returns true if this Money is less than other. Panics if currencies don't match.
func (m Money) LessThan(other Money) bool {
	m.assertSameCurrency(other)
	return m.Amount < other.Amount
}

// GreaterThan returns true if this Money is greater than other. Panics if currencies don't match.
func (m Money) GreaterThan(other Money) bool {
	m.assertSameCurrency(other)
	return m.Amount > other.Amount
}

// FormatMajor returns the major unit string without currency symbol.
// "26.666667" for USDC(26666667), "49.00" for USD(4900), "100" for JPY(100).
func (m Money) FormatMajor() string {
	decimals := Decimals(m.Currency)
	if decimals == 0 {
		return strconv.FormatInt(m.Amount, 10)
	}

	divisor := pow10(decimals)

	isNegative := m.Amount < 0
	absAmount := uint64(m.Amount)
	if isNegative {
		absAmount = uint64(-(m.Amount + 1)) + 1
	}

	major := absAmount / uint64(divisor)
	minor := absAmount % uint64(divisor)

	result := fmt.Sprintf("%d.%0*d", major, decimals, minor)
	if isNegative {
		return "-" + result
	}
	return result
}

// String returns a human-readable string with currency symbol.
// Examples: "26.666667 USDC", "$49.00", "¥100"
func (m Money) String() string {
	if sym, ok := currencySymbols[m.Currency]; ok {
		return sym + m.FormatMajor()
	}
	return m.FormatMajor() + " " + strings.ToUpper(m.Currency)
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.String(),
	})
}

// ParseMajor parses a decimal string expressed in major units ("100", "26.5",
// "-3.333333") into Money in the smallest unit of currency. More fractional
// digits than the currency supports is an error.
func ParseMajor(s, currency string) (Money, error) {
	currency = strings.ToLower(currency)
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Money{}, fmt.Errorf("money: parse %q: empty string", s)
	}

	negative := false
	switch raw[0] {
	case '-':
		negative = true
		raw = raw[1:]
	case '+':
		raw = raw[1:]
	}

	whole, frac, hasFrac := strings.Cut(raw, ".")
	decimals := Decimals(currency)
	if whole == "" && (!hasFrac || frac == "") {
		return Money{}, fmt.Errorf("money: parse %q: no digits", s)
	}
	if len(frac) > decimals {
		return Money{}, fmt.Errorf("money: parse %q: more than %d decimal places for %s", s, decimals, currency)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return Money{}, fmt.Errorf("money: parse %q: invalid digits", s)
	}

	digits := whole + frac + strings.Repeat("0", decimals-len(frac))
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return Zero(currency), nil
	}

	// Parse with the sign attached so the most negative int64 still fits.
	if negative {
		digits = "-" + digits
	}
	amount, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", s, ErrOverflow)
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// MustParseMajor is like ParseMajor but panics on error. Use for hardcoded values.
func MustParseMajor(s, currency string) Money {
	m, err := ParseMajor(s, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimals returns the number of decimal places for a currency.
func Decimals(currency string) int {
	if d, ok := currencyDecimals[strings.ToLower(currency)]; ok {
		return d
	}
	// Most fiat currencies have 2 decimal places
	return 2
}

// Sum calculates the sum of multiple Money values. All must have the same currency.
func Sum(values ...Money) Money {
	if len(values) == 0 {
		return Zero(USDCCurrency)
	}

	result := values[0]
	for i := 1; i < len(values); i++ {
		result = result.Add(values[i])
	}
	return result
}

// assertSameCurrency panics if currencies don't match.
func (m Money) assertSameCurrency(other Money) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
}

var currencySymbols = map[string]string{
	"usd": "$",
	"eur": "€",
	"gbp": "£",
	"jpy": "¥",
}

var currencyDecimals = map[string]int{
	USDCCurrency:  6,
	USDTCurrency:  6,
	PYUSDCurrency: 6,
	"jpy":         0,
	"krw":         0,
	"vnd":         0,
}

func pow10(n int) int64 {
	p := int64(1)
	for i := 0; i < n; i++ {
		p *= 10
	}
	return p
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

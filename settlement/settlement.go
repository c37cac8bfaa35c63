// Package settlement implements the even-split arithmetic behind checkout.
//
// Every participant owes an equal share of the total. A participant's net
// balance is what they paid minus that share, so a positive balance means
// they are owed money and a negative balance means they owe money.
//
// The share is computed with truncating integer division in the smallest
// currency unit. The amount truncated away, the remainder, is reported but
// assigned to no one, so balances sum to exactly the remainder, which lies
// in [0, n-1].
package settlement

import (
	"errors"
	"fmt"

	"github.com/xraph/balancer/types"
)

var (
	ErrNoExpenses       = errors.New("settlement: no expenses")
	ErrCurrencyMismatch = errors.New("settlement: currency mismatch")
	ErrNegativeAmount   = errors.New("settlement: negative amount")
	ErrOverflow         = errors.New("settlement: total overflows")
)

// Result is the outcome of an even split. Balances[i] belongs to whoever
// paid expenses[i].
type Result struct {
	Total     types.Money
	Share     types.Money
	Remainder types.Money
	Balances  []types.Money
}

// EvenSplit validates expenses against currency and splits the total evenly.
// Validation runs in a fixed order over the whole vector: currency first,
// then sign, then the overflow check on the running total.
func EvenSplit(currency string, expenses []types.Money) (Result, error) {
	n := int64(len(expenses))
	if n == 0 {
		return Result{}, ErrNoExpenses
	}

	for i, e := range expenses {
		if e.Currency != currency {
			return Result{}, fmt.Errorf("%w: expense %d is %s, want %s", ErrCurrencyMismatch, i, e.Currency, currency)
		}
	}
	for i, e := range expenses {
		if e.IsNegative() {
			return Result{}, fmt.Errorf("%w: expense %d is %s", ErrNegativeAmount, i, e)
		}
	}

	total, err := Total(currency, expenses)
	if err != nil {
		return Result{}, err
	}

	share := total.Divide(n)
	balances := make([]types.Money, len(expenses))
	for i, e := range expenses {
		balances[i] = e.Subtract(share)
	}

	return Result{
		Total:     total,
		Share:     share,
		Remainder: total.Subtract(share.Multiply(n)),
		Balances:  balances,
	}, nil
}

// Total sums expenses, failing with ErrOverflow rather than wrapping.
// Every expense must already be denominated in currency.
func Total(currency string, expenses []types.Money) (types.Money, error) {
	total := types.Money{Currency: currency}
	for i, e := range expenses {
		next, err := total.CheckedAdd(e)
		if err != nil {
			return types.Money{}, fmt.Errorf("%w: at expense %d", ErrOverflow, i)
		}
		total = next
	}
	return total, nil
}

package game

import (
	"github.com/shopspring/decimal"
)

// Position is the player's single open stake.
type Position struct {
	Invested     decimal.Decimal `json:"invested"`
	CurrentValue decimal.Decimal `json:"current_value"`
	Direction    Direction       `json:"direction"`
	// Paid is set once the settled value has been distributed to the balance.
	Paid bool `json:"paid"`
}

// Ledger holds the demo balance and the open position. It does not know about phases;
// the session gates every call.
type Ledger struct {
	balance  decimal.Decimal
	position *Position
	merge    MergePolicy
}

// NewLedger creates a ledger with the given starting balance.
func NewLedger(balance decimal.Decimal, merge MergePolicy) *Ledger {
	if merge == nil {
		merge = OverrideDirection
	}
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return &Ledger{balance: balance, merge: merge}
}

func (l *Ledger) Balance() decimal.Decimal { return l.balance }

// Position returns a copy of the open position, or nil.
func (l *Ledger) Position() *Position {
	if l.position == nil {
		return nil
	}
	p := *l.position
	return &p
}

// Stake debits amount and opens or merges the position. It reports false, changing nothing,
// when the amount is not positive, exceeds the balance, or the position is already paid out.
func (l *Ledger) Stake(amount decimal.Decimal, dir Direction) bool {
	if !amount.IsPositive() || l.balance.LessThan(amount) {
		return false
	}
	if l.position != nil && l.position.Paid {
		return false
	}

	l.balance = l.balance.Sub(amount)
	if l.position == nil {
		l.position = &Position{Invested: amount, CurrentValue: amount, Direction: dir}
		return true
	}

	merged, refund := l.merge(*l.position, amount, dir)
	l.balance = l.balance.Add(refund)
	if merged.Invested.IsPositive() {
		l.position = &merged
	} else {
		l.position = nil
	}
	return true
}

// Mark recomputes the position's value against the live price.
func (l *Ledger) Mark(startPrice, price float64) {
	if l.position == nil || l.position.Paid || startPrice <= 0 {
		return
	}
	start := decimal.NewFromFloat(startPrice)
	change := decimal.NewFromFloat(price).Sub(start).Div(start)

	multiplier := decimal.NewFromInt(1).Add(change)
	if l.position.Direction == Down {
		multiplier = decimal.NewFromInt(1).Sub(change)
	}
	l.position.CurrentValue = decimal.Max(decimal.Zero, l.position.Invested.Mul(multiplier))
}

// CashOut pays the position's current value into the balance and closes it.
func (l *Ledger) CashOut() (decimal.Decimal, bool) {
	if l.position == nil || l.position.Paid || !l.position.CurrentValue.IsPositive() {
		return decimal.Zero, false
	}
	amount := l.position.CurrentValue
	l.balance = l.balance.Add(amount)
	l.position = nil
	return amount, true
}

// Refund returns an unsettled, unpaid position's stake to the balance and closes it.
func (l *Ledger) Refund() (decimal.Decimal, bool) {
	if l.position == nil || l.position.Paid {
		return decimal.Zero, false
	}
	amount := l.position.Invested
	l.balance = l.balance.Add(amount)
	l.position = nil
	return amount, amount.IsPositive()
}

// Rebase replaces the open position with its settled successor.
func (l *Ledger) Rebase(p Position) {
	l.position = &p
}

// Distribute pays a settled position's value into the balance and marks it paid.
// The position stays visible until Clear.
func (l *Ledger) Distribute() (decimal.Decimal, bool) {
	if l.position == nil || l.position.Paid {
		return decimal.Zero, false
	}
	l.position.Paid = true
	amount := l.position.CurrentValue
	if !amount.IsPositive() {
		return decimal.Zero, false
	}
	l.balance = l.balance.Add(amount)
	return amount, true
}

// Clear drops the position.
func (l *Ledger) Clear() {
	l.position = nil
}

package game

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MergePolicy folds an additional stake placed in the same betting phase into the open position.
// refund is returned to the balance; a merged position with zero stake closes the position.
type MergePolicy func(pos Position, amount decimal.Decimal, dir Direction) (merged Position, refund decimal.Decimal)

// OverrideDirection sums the stakes and takes the direction of the latest bet.
func OverrideDirection(pos Position, amount decimal.Decimal, dir Direction) (Position, decimal.Decimal) {
	return Position{
		Invested:     pos.Invested.Add(amount),
		CurrentValue: pos.CurrentValue.Add(amount),
		Direction:    dir,
	}, decimal.Zero
}

// NetDirection nets an opposite bet against the open stake. The matched part of both stakes is
// refunded and the larger side keeps the remainder.
func NetDirection(pos Position, amount decimal.Decimal, dir Direction) (Position, decimal.Decimal) {
	if dir == pos.Direction {
		return OverrideDirection(pos, amount, dir)
	}

	matched := decimal.Min(pos.Invested, amount)
	remaining := pos.Invested.Sub(amount).Abs()
	side := pos.Direction
	if amount.GreaterThan(pos.Invested) {
		side = dir
	}
	return Position{Invested: remaining, CurrentValue: remaining, Direction: side}, matched.Mul(decimal.NewFromInt(2))
}

// RebasePolicy derives the position that survives a settlement.
type RebasePolicy func(prev Position, s Settlement) Position

// Compound re-bases the stake to the settled value, keeping the direction.
func Compound(prev Position, s Settlement) Position {
	return Position{Invested: s.Value, CurrentValue: s.Value, Direction: prev.Direction}
}

var mergePolicies = map[string]MergePolicy{
	"override": OverrideDirection,
	"net":      NetDirection,
}

// MergePolicyByName resolves the configured merge policy. An empty name selects "override".
func MergePolicyByName(name string) (MergePolicy, error) {
	if name == "" {
		name = "override"
	}
	policy, ok := mergePolicies[name]
	if !ok {
		return nil, fmt.Errorf("unknown merge policy %q", name)
	}
	return policy, nil
}

package game

import (
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

var feedUsers = []string{"Alex", "Sarah", "Mike", "Emma", "John", "Kate", "David", "Lisa"}

const (
	feedMinAmount  = 10
	feedAmountSpan = 500
)

// SimulatedBet is cosmetic activity from made-up players. It never touches the ledger.
type SimulatedBet struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Amount    int       `json:"amount"`
	Direction Direction `json:"direction"`
}

// ActivityFeed generates simulated bets, newest first.
type ActivityFeed struct {
	rng    *rand.Rand
	chance float64
	bets   *Bounded[SimulatedBet]
}

func NewActivityFeed(rng *rand.Rand, chance float64, size int) *ActivityFeed {
	return &ActivityFeed{rng: rng, chance: chance, bets: NewBounded[SimulatedBet](size)}
}

// Step rolls for one new bet.
func (f *ActivityFeed) Step() (SimulatedBet, bool) {
	if f.rng.Float64() >= f.chance {
		return SimulatedBet{}, false
	}
	dir := Down
	if f.rng.Float64() > 0.5 {
		dir = Up
	}
	bet := SimulatedBet{
		ID:        strings.ReplaceAll(uuid.NewString(), "-", "")[:9],
		User:      feedUsers[f.rng.Intn(len(feedUsers))],
		Amount:    feedMinAmount + f.rng.Intn(feedAmountSpan),
		Direction: dir,
	}
	f.bets.PushFront(bet)
	return bet, true
}

func (f *ActivityFeed) Bets() []SimulatedBet { return f.bets.Items() }

func (f *ActivityFeed) Reset() { f.bets.Reset() }

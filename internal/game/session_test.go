package game

import (
	"math/rand"
	"testing"
	"time"

	"updown-game-go/internal/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

// setupSession creates a session with the stock settings, a fixed seed and the given balance.
func setupSession(t *testing.T, balance string, tweak ...func(*config.Game)) *Session {
	cfg := config.DefaultGame()
	for _, f := range tweak {
		f(&cfg)
	}
	s, err := NewSession(cfg, zap.NewNop(), rand.New(rand.NewSource(42)), dec(balance), t0)
	require.NoError(t, err)
	return s
}

// seconds ticks the round clock n times without moving the price.
func seconds(s *Session, n int, at time.Time) time.Time {
	for i := 0; i < n; i++ {
		at = at.Add(time.Second)
		s.TickSecond(at)
	}
	return at
}

func TestSession_InitialState(t *testing.T) {
	s := setupSession(t, "1000")

	snap := s.Snapshot()
	assert.Equal(t, PhaseBetting, snap.Phase)
	assert.Equal(t, 5, snap.SecondsRemaining)
	assert.Equal(t, 1000.0, snap.CurrentPrice)
	assert.Nil(t, snap.Position)
	assert.Nil(t, snap.LastRound)
	assertDecimal(t, "1000", snap.Balance)
}

func TestSession_PhaseCycle(t *testing.T) {
	s := setupSession(t, "1000")
	require.True(t, s.PlaceBet(dec("100"), Up, t0))

	now := seconds(s, 5, t0)
	snap := s.Snapshot()
	assert.Equal(t, PhaseTrading, snap.Phase)
	assert.Equal(t, 10, snap.SecondsRemaining)
	assert.Len(t, snap.Series, 1)
	assert.Equal(t, snap.StartPrice, snap.Series[0].Price)
	assert.Equal(t, now, snap.StartTime)

	now = seconds(s, 10, now)
	snap = s.Snapshot()
	assert.Equal(t, PhaseResult, snap.Phase)
	assert.Equal(t, 3, snap.SecondsRemaining)
	assert.NotNil(t, snap.Position)

	seconds(s, 3, now)
	snap = s.Snapshot()
	assert.Equal(t, PhaseBetting, snap.Phase)
	assert.Equal(t, 5, snap.SecondsRemaining)
	assert.Nil(t, snap.Position)
	assert.Equal(t, int64(2), snap.Round)
}

func TestSession_StepDerivesSecondsFromTicks(t *testing.T) {
	s := setupSession(t, "1000")
	now := t0

	step := func(n int) {
		for i := 0; i < n; i++ {
			now = now.Add(50 * time.Millisecond)
			s.Step(now)
		}
	}

	step(99)
	assert.Equal(t, PhaseBetting, s.Snapshot().Phase)
	assert.Equal(t, 1000.0, s.Snapshot().CurrentPrice, "price is frozen while betting")

	step(1)
	snap := s.Snapshot()
	assert.Equal(t, PhaseTrading, snap.Phase)
	assert.Len(t, snap.Series, 1)

	step(200)
	snap = s.Snapshot()
	assert.Equal(t, PhaseResult, snap.Phase)
	assert.Len(t, snap.Series, 201)
	require.Len(t, snap.MarketHistory, 1)

	// Result phase does not move the price.
	price := snap.CurrentPrice
	step(59)
	assert.Equal(t, price, s.Snapshot().CurrentPrice)
	step(1)
	assert.Equal(t, PhaseBetting, s.Snapshot().Phase)
}

func TestSession_Scenario(t *testing.T) {
	s := setupSession(t, "1000")

	require.True(t, s.PlaceBet(dec("100"), Up, t0))
	snap := s.Snapshot()
	assertDecimal(t, "900", snap.Balance)
	assertDecimal(t, "100", snap.Position.Invested)

	now := seconds(s, 5, t0)
	require.Equal(t, 1000.0, s.Snapshot().StartPrice)
	s.currentPrice = 1050
	s.ledger.Mark(s.startPrice, s.currentPrice)

	now = seconds(s, 10, now)
	snap = s.Snapshot()
	require.NotNil(t, snap.LastRound)
	assert.Equal(t, Win, snap.LastRound.Result)
	assertDecimal(t, "5", snap.LastRound.ProfitLoss)
	assertDecimal(t, "5", snap.LastRound.PercentChange)
	assertDecimal(t, "105", snap.Position.Invested)
	assertDecimal(t, "105", snap.Position.CurrentValue)
	assert.Equal(t, []RoundResult{{Result: Win, Direction: Up}}, snap.RoundHistory)
	require.Len(t, snap.MarketHistory, 1)
	assert.Equal(t, Up, snap.MarketHistory[0].Outcome)
	assertDecimal(t, "900", snap.Balance)

	// Auto-distribution after the display delay.
	s.Step(now.Add(1400 * time.Millisecond))
	assertDecimal(t, "900", s.Snapshot().Balance)
	s.Step(now.Add(1500 * time.Millisecond))
	snap = s.Snapshot()
	assertDecimal(t, "1005", snap.Balance)
	assert.True(t, snap.Position.Paid)

	assert.False(t, s.CashOut(now.Add(2*time.Second)), "paid positions cannot be cashed out twice")

	seconds(s, 3, now)
	snap = s.Snapshot()
	assertDecimal(t, "1005", snap.Balance)
	assert.Nil(t, snap.Position)
	assert.Nil(t, snap.LastRound)
}

func TestSession_PayoutFlushedBeforeClear(t *testing.T) {
	s := setupSession(t, "1000", func(g *config.Game) { g.PayoutDelayMs = 60000 })
	require.True(t, s.PlaceBet(dec("100"), Down, t0))

	now := seconds(s, 15, t0)
	require.Equal(t, PhaseResult, s.Snapshot().Phase)
	assertDecimal(t, "900", s.Snapshot().Balance)

	seconds(s, 3, now)
	// Zero movement resolves Up: the Down stake loses nothing and is returned whole.
	assertDecimal(t, "1000", s.Snapshot().Balance)
}

func TestSession_CashOutDuringResultCancelsPayout(t *testing.T) {
	s := setupSession(t, "1000")
	require.True(t, s.PlaceBet(dec("100"), Up, t0))
	now := seconds(s, 5, t0)
	s.currentPrice = 1100
	now = seconds(s, 10, now)

	require.True(t, s.CashOut(now))
	assertDecimal(t, "1010", s.Snapshot().Balance)
	assert.Nil(t, s.Snapshot().Position)

	s.Step(now.Add(2 * time.Second))
	seconds(s, 3, now)
	assertDecimal(t, "1010", s.Snapshot().Balance)
}

func TestSession_GatedActions(t *testing.T) {
	s := setupSession(t, "1000")
	require.True(t, s.PlaceBet(dec("100"), Up, t0))
	now := seconds(s, 5, t0)

	assert.False(t, s.PlaceBet(dec("10"), Up, now), "bets are closed while trading")
	assert.False(t, s.CashOut(now), "no cash out while trading")
	assert.False(t, s.StartSimulation(dec("10"), Up, now), "no force start while trading")
	assertDecimal(t, "900", s.Snapshot().Balance)

	now = seconds(s, 10, now)
	assert.False(t, s.PlaceBet(dec("10"), Up, now), "bets are closed during result")
}

func TestSession_PlaceBetInsufficientBalance(t *testing.T) {
	s := setupSession(t, "50")

	assert.False(t, s.PlaceBet(dec("60"), Up, t0))
	assert.Nil(t, s.Snapshot().Position)
	assert.Empty(t, s.DrainEvents())
}

func TestSession_StartSimulation(t *testing.T) {
	s := setupSession(t, "1000")
	now := t0.Add(2 * time.Second)

	require.True(t, s.StartSimulation(dec("100"), Up, now))
	snap := s.Snapshot()
	assert.Equal(t, PhaseTrading, snap.Phase)
	assert.Equal(t, 10, snap.SecondsRemaining)
	assert.True(t, snap.Simulated)
	assert.Equal(t, now, snap.StartTime)
	assertDecimal(t, "900", snap.Balance)
	assertDecimal(t, "100", snap.Position.Invested)
	assert.Equal(t, "biased", s.model.Name())

	for i := 0; i < 200; i++ {
		now = now.Add(50 * time.Millisecond)
		s.Step(now)
	}
	snap = s.Snapshot()
	require.Equal(t, PhaseResult, snap.Phase)
	assert.Greater(t, snap.CurrentPrice, snap.StartPrice)
	require.NotNil(t, snap.LastRound)
	assert.Equal(t, Win, snap.LastRound.Result)

	// Leaving the result phase drops the demo flag and returns to the organic walk.
	now = seconds(s, 3, now)
	assert.False(t, s.Snapshot().Simulated)
	seconds(s, 5, now)
	assert.Equal(t, "organic", s.model.Name())
}

func TestSession_StartSimulationMergesOpenBet(t *testing.T) {
	s := setupSession(t, "1000")
	require.True(t, s.PlaceBet(dec("30"), Down, t0))

	require.True(t, s.StartSimulation(dec("20"), Up, t0))

	pos := s.Snapshot().Position
	assertDecimal(t, "50", pos.Invested)
	assert.Equal(t, Up, pos.Direction)
	assertDecimal(t, "950", s.Snapshot().Balance)
}

func TestSession_StartSimulationFromResultPaysOutFirst(t *testing.T) {
	s := setupSession(t, "1000")
	require.True(t, s.PlaceBet(dec("100"), Up, t0))
	now := seconds(s, 5, t0)
	s.currentPrice = 1100
	now = seconds(s, 10, now)
	require.Equal(t, PhaseResult, s.Snapshot().Phase)

	require.True(t, s.StartSimulation(dec("50"), Up, now))

	snap := s.Snapshot()
	// 900 + 110 settled - 50 new stake
	assertDecimal(t, "960", snap.Balance)
	assertDecimal(t, "50", snap.Position.Invested)
	assert.Equal(t, int64(2), snap.Round)
	assert.Nil(t, snap.LastRound)
}

func TestSession_StartSimulationInsufficientBalance(t *testing.T) {
	s := setupSession(t, "10")

	assert.False(t, s.StartSimulation(dec("20"), Up, t0))
	assert.Equal(t, PhaseBetting, s.Snapshot().Phase)
}

func TestSession_ActivityFeed(t *testing.T) {
	s := setupSession(t, "1000", func(g *config.Game) {
		g.FeedChance = 1
		g.FeedSize = 3
	})
	now := t0
	for i := 0; i < 8; i++ {
		now = now.Add(50 * time.Millisecond)
		s.Step(now)
	}
	bets := s.Snapshot().SimulatedBets
	require.Len(t, bets, 2)
	for _, b := range bets {
		assert.Contains(t, feedUsers, b.User)
		assert.GreaterOrEqual(t, b.Amount, 10)
		assert.Less(t, b.Amount, 510)
		assert.Len(t, b.ID, 9)
	}

	for i := 0; i < 20; i++ {
		now = now.Add(50 * time.Millisecond)
		s.Step(now)
	}
	assert.Len(t, s.Snapshot().SimulatedBets, 3)
	assertDecimal(t, "1000", s.Snapshot().Balance)

	seconds(s, 5, now)
	assert.Empty(t, s.Snapshot().SimulatedBets, "feed is cleared when trading starts")
}

func TestSession_HistoriesAreBounded(t *testing.T) {
	s := setupSession(t, "100000", func(g *config.Game) {
		g.RoundHistorySize = 2
		g.MarketHistorySize = 3
	})
	now := t0
	for round := 0; round < 5; round++ {
		require.True(t, s.PlaceBet(dec("10"), Up, now))
		now = seconds(s, 18, now)
	}
	snap := s.Snapshot()
	assert.Len(t, snap.RoundHistory, 2)
	assert.Len(t, snap.MarketHistory, 3)
	assert.Equal(t, int64(6), snap.Round)
}

func TestSession_SettlementWithoutPosition(t *testing.T) {
	s := setupSession(t, "1000")
	seconds(s, 15, t0)

	snap := s.Snapshot()
	assert.Len(t, snap.MarketHistory, 1)
	assert.Empty(t, snap.RoundHistory)
	assert.Nil(t, snap.LastRound)

	var settled []Event
	for _, ev := range s.DrainEvents() {
		if ev.Type == EventRoundSettled {
			settled = append(settled, ev)
		}
	}
	require.Len(t, settled, 1)
	assert.False(t, settled[0].Settlement.HasPosition)
}

func TestSession_BalanceConservation(t *testing.T) {
	s := setupSession(t, "1000")
	rng := rand.New(rand.NewSource(99))
	now := t0

	initial := s.Snapshot().Balance
	flowIn, flowOut := decimal.Zero, decimal.Zero

	for i := 0; i < 20*18*12; i++ {
		now = now.Add(50 * time.Millisecond)
		switch rng.Intn(40) {
		case 0:
			dir := Up
			if rng.Intn(2) == 0 {
				dir = Down
			}
			s.PlaceBet(decimal.NewFromInt(int64(rng.Intn(200)+1)), dir, now)
		case 1:
			s.CashOut(now)
		case 2:
			s.StartSimulation(decimal.NewFromInt(int64(rng.Intn(50)+1)), Up, now)
		}
		s.Step(now)

		for _, ev := range s.DrainEvents() {
			switch ev.Type {
			case EventBetPlaced:
				flowOut = flowOut.Add(ev.Amount)
			case EventCashedOut, EventPayout:
				flowIn = flowIn.Add(ev.Amount)
			}
			assert.False(t, ev.Balance.IsNegative())
		}

		balance := s.Snapshot().Balance
		require.True(t, initial.Sub(flowOut).Add(flowIn).Equal(balance),
			"balance %s drifted from ledger flows at step %d", balance, i)
	}
}

func TestNewSession_InvalidConfig(t *testing.T) {
	cfg := config.DefaultGame()
	cfg.MergePolicy = "hedge"
	_, err := NewSession(cfg, zap.NewNop(), rand.New(rand.NewSource(1)), dec("1"), t0)
	assert.Error(t, err)

	cfg = config.DefaultGame()
	cfg.TradingSeconds = 0
	_, err = NewSession(cfg, zap.NewNop(), rand.New(rand.NewSource(1)), dec("1"), t0)
	assert.Error(t, err)
}

func TestSession_CloseResolvesOpenStake(t *testing.T) {
	t.Run("Unsettled bet is refunded", func(t *testing.T) {
		s := setupSession(t, "1000")
		require.True(t, s.PlaceBet(dec("100"), Up, t0))
		now := seconds(s, 5, t0)
		s.currentPrice = 900
		s.ledger.Mark(s.startPrice, s.currentPrice)
		s.DrainEvents()

		s.Close(now)

		assertDecimal(t, "1000", s.Snapshot().Balance)
		assert.Nil(t, s.Snapshot().Position)
		events := s.DrainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventCashedOut, events[0].Type)
		assertDecimal(t, "100", events[0].Amount)
		assertDecimal(t, "1000", events[0].Balance)
	})

	t.Run("Pending payout is flushed", func(t *testing.T) {
		s := setupSession(t, "1000")
		require.True(t, s.PlaceBet(dec("100"), Up, t0))
		now := seconds(s, 5, t0)
		s.currentPrice = 1050
		now = seconds(s, 10, now)
		s.DrainEvents()

		s.Close(now)

		assertDecimal(t, "1005", s.Snapshot().Balance)
		events := s.DrainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventPayout, events[0].Type)
		assertDecimal(t, "105", events[0].Amount)
	})

	t.Run("Paid position is not paid again", func(t *testing.T) {
		s := setupSession(t, "1000")
		require.True(t, s.PlaceBet(dec("100"), Up, t0))
		now := seconds(s, 15, t0)
		s.Step(now.Add(2 * time.Second))
		assertDecimal(t, "1000", s.Snapshot().Balance)
		s.DrainEvents()

		s.Close(now.Add(3 * time.Second))

		assertDecimal(t, "1000", s.Snapshot().Balance)
		assert.Empty(t, s.DrainEvents())
	})

	t.Run("Nothing open", func(t *testing.T) {
		s := setupSession(t, "1000")

		s.Close(t0)

		assertDecimal(t, "1000", s.Snapshot().Balance)
		assert.Empty(t, s.DrainEvents())
	})
}

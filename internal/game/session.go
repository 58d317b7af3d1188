package game

import (
	"fmt"
	"math/rand"
	"time"

	"updown-game-go/internal/config"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Session is the full state of one player's game. It is not safe for concurrent use;
// the Engine owns it from a single goroutine.
type Session struct {
	cfg    config.Game
	logger *zap.Logger
	rng    *rand.Rand

	organic *Organic
	biased  Biased
	model   PriceModel

	round            int64
	phase            Phase
	secondsRemaining int
	simulated        bool

	// Price ticks are counted to derive the one-second boundary and the feed period
	// from the single driving clock.
	ticks          int
	ticksPerSecond int
	feedTicks      int
	ticksPerFeed   int

	currentPrice float64
	startPrice   float64
	startTime    time.Time
	series       []PricePoint

	ledger        *Ledger
	rebase        RebasePolicy
	payoutDue     *time.Time
	roundHistory  *Bounded[RoundResult]
	marketHistory *Bounded[MarketResult]
	feed          *ActivityFeed
	summary       *RoundSummary

	events []Event
}

// NewSession creates a session in the betting phase with the given starting balance.
func NewSession(cfg config.Game, logger *zap.Logger, rng *rand.Rand, balance decimal.Decimal, now time.Time) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid game config: %w", err)
	}
	merge, err := MergePolicyByName(cfg.MergePolicy)
	if err != nil {
		return nil, err
	}

	ticksPerFeed := 1
	if cfg.FeedInterval() > cfg.TickInterval() {
		ticksPerFeed = int(cfg.FeedInterval() / cfg.TickInterval())
	}

	organic := &Organic{}
	return &Session{
		cfg:              cfg,
		logger:           logger,
		rng:              rng,
		organic:          organic,
		biased:           DefaultBiased(),
		model:            organic,
		round:            1,
		phase:            PhaseBetting,
		secondsRemaining: cfg.BettingSeconds,
		ticksPerSecond:   1000 / cfg.TickIntervalMs,
		ticksPerFeed:     ticksPerFeed,
		currentPrice:     cfg.InitialPrice,
		startPrice:       cfg.InitialPrice,
		startTime:        now,
		series:           []PricePoint{{Time: now, Price: cfg.InitialPrice}},
		ledger:           NewLedger(balance, merge),
		rebase:           Compound,
		roundHistory:     NewBounded[RoundResult](cfg.RoundHistorySize),
		marketHistory:    NewBounded[MarketResult](cfg.MarketHistorySize),
		feed:             NewActivityFeed(rng, cfg.FeedChance, cfg.FeedSize),
	}, nil
}

// Step advances the session by one tick of the driving clock.
func (s *Session) Step(now time.Time) {
	s.payoutIfDue(now)

	switch s.phase {
	case PhaseTrading:
		s.TickPrice(now)
	case PhaseBetting:
		s.feedTicks++
		if s.feedTicks >= s.ticksPerFeed {
			s.feedTicks = 0
			s.feed.Step()
		}
	}

	s.ticks++
	if s.ticks >= s.ticksPerSecond {
		s.ticks = 0
		s.TickSecond(now)
	}
}

// TickPrice advances the price and marks the position to market. Only runs while trading.
func (s *Session) TickPrice(now time.Time) {
	if s.phase != PhaseTrading {
		return
	}
	s.currentPrice = s.model.Next(s.rng, PriceTick{
		Price:      s.currentPrice,
		StartPrice: s.startPrice,
		Elapsed:    now.Sub(s.startTime),
		Duration:   s.cfg.TradingDuration(),
	})
	s.series = append(s.series, PricePoint{Time: now, Price: s.currentPrice})
	s.ledger.Mark(s.startPrice, s.currentPrice)
}

// TickSecond counts down the current phase and runs its exit action at zero.
func (s *Session) TickSecond(now time.Time) {
	s.secondsRemaining--
	if s.secondsRemaining > 0 {
		return
	}

	switch s.phase {
	case PhaseBetting:
		s.startPrice = s.currentPrice
		s.startTime = now
		s.feed.Reset()
		s.enterTrading(now)
	case PhaseTrading:
		s.settle(now)
		s.enter(PhaseResult, s.cfg.ResultSeconds, now)
	case PhaseResult:
		s.payout(now)
		s.ledger.Clear()
		s.summary = nil
		s.simulated = false
		s.feed.Reset()
		s.round++
		s.enter(PhaseBetting, s.cfg.BettingSeconds, now)
	}
}

// PlaceBet stakes amount on dir. Ignored outside the betting phase or without the funds.
func (s *Session) PlaceBet(amount decimal.Decimal, dir Direction, now time.Time) bool {
	if s.phase != PhaseBetting || !s.ledger.Stake(amount, dir) {
		return false
	}
	s.emit(Event{Type: EventBetPlaced, Time: now, Amount: amount, Direction: dir})
	return true
}

// CashOut moves the position's value to the balance. Ignored while trading.
func (s *Session) CashOut(now time.Time) bool {
	if s.phase == PhaseTrading {
		return false
	}
	amount, ok := s.ledger.CashOut()
	if !ok {
		return false
	}
	s.payoutDue = nil
	s.emit(Event{Type: EventCashedOut, Time: now, Amount: amount})
	return true
}

// StartSimulation skips the betting countdown: it stakes amount on dir and starts a full
// trading window whose price follows the biased model. Ignored while trading.
func (s *Session) StartSimulation(amount decimal.Decimal, dir Direction, now time.Time) bool {
	if s.phase == PhaseTrading || !amount.IsPositive() || s.ledger.Balance().LessThan(amount) {
		return false
	}
	if s.phase == PhaseResult {
		s.payout(now)
		s.ledger.Clear()
		s.round++
	}
	if !s.ledger.Stake(amount, dir) {
		return false
	}
	s.simulated = true
	s.emit(Event{Type: EventBetPlaced, Time: now, Amount: amount, Direction: dir})

	s.summary = nil
	s.startPrice = s.currentPrice
	s.startTime = now
	s.feed.Reset()
	s.ticks = 0
	s.enterTrading(now)
	return true
}

// Close resolves whatever is still open when the session stops. A pending payout is paid;
// a stake that has not been settled yet is refunded in full.
func (s *Session) Close(now time.Time) {
	s.payout(now)
	if amount, ok := s.ledger.Refund(); ok {
		s.emit(Event{Type: EventCashedOut, Time: now, Amount: amount})
	}
	s.ledger.Clear()
}

// Snapshot copies the observable state.
func (s *Session) Snapshot() Snapshot {
	series := make([]PricePoint, len(s.series))
	copy(series, s.series)

	var summary *RoundSummary
	if s.summary != nil {
		sum := *s.summary
		summary = &sum
	}
	return Snapshot{
		Round:            s.round,
		Phase:            s.phase,
		SecondsRemaining: s.secondsRemaining,
		CurrentPrice:     s.currentPrice,
		StartPrice:       s.startPrice,
		StartTime:        s.startTime,
		Simulated:        s.simulated,
		Balance:          s.ledger.Balance(),
		Position:         s.ledger.Position(),
		Series:           series,
		RoundHistory:     s.roundHistory.Items(),
		MarketHistory:    s.marketHistory.Items(),
		SimulatedBets:    s.feed.Bets(),
		LastRound:        summary,
	}
}

// DrainEvents returns the events emitted since the last call.
func (s *Session) DrainEvents() []Event {
	events := s.events
	s.events = nil
	return events
}

func (s *Session) enterTrading(now time.Time) {
	s.model = s.organic
	if s.simulated {
		s.model = s.biased
	}
	s.series = []PricePoint{{Time: s.startTime, Price: s.startPrice}}
	s.enter(PhaseTrading, s.cfg.TradingSeconds, now)
}

func (s *Session) enter(phase Phase, seconds int, now time.Time) {
	s.phase = phase
	s.secondsRemaining = seconds
	s.logger.Debug("Phase changed",
		zap.Int64("round", s.round),
		zap.String("phase", string(phase)),
		zap.Float64("price", s.currentPrice),
		zap.String("model", s.model.Name()))
	s.emit(Event{Type: EventPhaseChanged, Time: now, Phase: phase})
}

// settle runs once per round at the end of trading.
func (s *Session) settle(now time.Time) {
	pos := s.ledger.Position()
	st := Settle(pos, s.startPrice, s.currentPrice)
	s.marketHistory.Push(st.Market)
	s.summary = st.Summary()

	if st.HasPosition {
		s.ledger.Rebase(s.rebase(*pos, st))
		s.roundHistory.Push(RoundResult{Result: st.Result, Direction: st.Direction})
		due := now.Add(s.cfg.PayoutDelay())
		s.payoutDue = &due
	}

	s.emit(Event{Type: EventRoundSettled, Time: now, Settlement: &st})
}

func (s *Session) payoutIfDue(now time.Time) {
	if s.payoutDue != nil && !now.Before(*s.payoutDue) {
		s.payout(now)
	}
}

func (s *Session) payout(now time.Time) {
	if s.payoutDue == nil {
		return
	}
	s.payoutDue = nil
	if amount, ok := s.ledger.Distribute(); ok {
		s.emit(Event{Type: EventPayout, Time: now, Amount: amount})
	}
}

func (s *Session) emit(ev Event) {
	ev.Round = s.round
	ev.Simulated = s.simulated
	ev.Balance = s.ledger.Balance()
	s.events = append(s.events, ev)
}

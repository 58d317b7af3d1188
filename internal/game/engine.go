package game

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const eventBuffer = 1024

// Engine runs a Session on a single driving clock and serialises every command through its loop.
type Engine struct {
	logger    *zap.Logger
	session   *Session
	interval  time.Duration
	clock     func() time.Time
	cmdCh     chan command
	events    chan Event
	done      chan struct{}
	listeners []Listener
}

// NewEngine creates an engine that ticks session every interval and hands events to listeners.
func NewEngine(logger *zap.Logger, session *Session, interval time.Duration, listeners ...Listener) *Engine {
	return &Engine{
		logger:    logger.Named("engine"),
		session:   session,
		interval:  interval,
		clock:     time.Now,
		cmdCh:     make(chan command),
		events:    make(chan Event, eventBuffer),
		done:      make(chan struct{}),
		listeners: listeners,
	}
}

// Run drives the session until ctx is cancelled. On the way out the session settles its open stake,
// and every pending event is delivered before Run returns.
func (e *Engine) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.dispatch()
	}()

	ticker := time.NewTicker(e.interval)
	defer func() {
		ticker.Stop()
		close(e.done)
		close(e.events)
		wg.Wait()
	}()

	e.logger.Info("Starting round clock", zap.Duration("interval", e.interval))

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Stopping round clock...")
			e.session.Close(e.clock())
			e.flush()
			return
		case now := <-ticker.C:
			e.session.Step(now)
		case cmd := <-e.cmdCh:
			cmd.exec(e)
		}
		e.flush()
	}
}

func (e *Engine) flush() {
	for _, ev := range e.session.DrainEvents() {
		select {
		case e.events <- ev:
		default:
			e.logger.Warn("Event buffer full, dropping event", zap.String("type", string(ev.Type)))
		}
	}
}

func (e *Engine) dispatch() {
	for ev := range e.events {
		for _, l := range e.listeners {
			l.OnEvent(ev)
		}
	}
}

// ── Commands ─────────────────────────────────────────

type command interface{ exec(e *Engine) }

type betCmd struct {
	amount    decimal.Decimal
	direction Direction
	simulate  bool
	reply     chan<- bool
}

type cashOutCmd struct {
	reply chan<- bool
}

type snapshotCmd struct {
	reply chan<- Snapshot
}

func (c betCmd) exec(e *Engine) {
	if c.simulate {
		c.reply <- e.session.StartSimulation(c.amount, c.direction, e.clock())
		return
	}
	c.reply <- e.session.PlaceBet(c.amount, c.direction, e.clock())
}

func (c cashOutCmd) exec(e *Engine)  { c.reply <- e.session.CashOut(e.clock()) }
func (c snapshotCmd) exec(e *Engine) { c.reply <- e.session.Snapshot() }

// send reports false once the engine has stopped.
func (e *Engine) send(cmd command) bool {
	select {
	case e.cmdCh <- cmd:
		return true
	case <-e.done:
		return false
	}
}

// PlaceBet stakes amount on dir for the current round. It reports whether the bet was accepted.
func (e *Engine) PlaceBet(amount decimal.Decimal, dir Direction) bool {
	reply := make(chan bool, 1)
	if !e.send(betCmd{amount: amount, direction: dir, reply: reply}) {
		return false
	}
	return <-reply
}

// StartSimulation force-starts a demo round with the given stake.
func (e *Engine) StartSimulation(amount decimal.Decimal, dir Direction) bool {
	reply := make(chan bool, 1)
	if !e.send(betCmd{amount: amount, direction: dir, simulate: true, reply: reply}) {
		return false
	}
	return <-reply
}

// CashOut pays the open position into the balance.
func (e *Engine) CashOut() bool {
	reply := make(chan bool, 1)
	if !e.send(cashOutCmd{reply: reply}) {
		return false
	}
	return <-reply
}

// Snapshot returns the current observable state, or a zero Snapshot once stopped.
func (e *Engine) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	if !e.send(snapshotCmd{reply: reply}) {
		return Snapshot{}
	}
	return <-reply
}

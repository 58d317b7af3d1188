package game

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EventType names something that happened in a session.
type EventType string

const (
	EventPhaseChanged EventType = "phase_changed"
	EventBetPlaced    EventType = "bet_placed"
	EventCashedOut    EventType = "cashed_out"
	EventRoundSettled EventType = "round_settled"
	EventPayout       EventType = "payout"
)

// Event is emitted by a session. Balance is the balance right after the event.
type Event struct {
	Type       EventType
	Time       time.Time
	Round      int64
	Phase      Phase
	Simulated  bool
	Balance    decimal.Decimal
	Amount     decimal.Decimal
	Direction  Direction
	Settlement *Settlement
}

// ChangesBalance reports whether the event moved money in or out of the balance.
func (e Event) ChangesBalance() bool {
	switch e.Type {
	case EventBetPlaced, EventCashedOut, EventPayout:
		return true
	}
	return false
}

// Listener receives session events outside the engine loop.
type Listener interface {
	OnEvent(ev Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ev Event)

func (f ListenerFunc) OnEvent(ev Event) { f(ev) }

// LogListener writes a line for every event except phase changes, which the session logs itself.
func LogListener(logger *zap.Logger) Listener {
	l := logger.Named("events")
	return ListenerFunc(func(ev Event) {
		fields := []zap.Field{
			zap.String("type", string(ev.Type)),
			zap.Int64("round", ev.Round),
			zap.String("balance", ev.Balance.StringFixed(2)),
		}
		switch ev.Type {
		case EventPhaseChanged:
			return
		case EventRoundSettled:
			st := ev.Settlement
			fields = append(fields,
				zap.String("outcome", string(st.Market.Outcome)),
				zap.String("percent_change", st.Market.PercentChange.StringFixed(4)))
			if st.HasPosition {
				fields = append(fields,
					zap.String("result", string(st.Result)),
					zap.String("profit", st.Profit.StringFixed(2)))
			}
		default:
			fields = append(fields, zap.String("amount", ev.Amount.StringFixed(2)))
			if ev.Direction != "" {
				fields = append(fields, zap.String("direction", string(ev.Direction)))
			}
		}
		l.Info("Session event", fields...)
	})
}

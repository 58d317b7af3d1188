package database

import (
	"context"
	"time"

	"updown-game-go/internal/game"
	"updown-game-go/internal/models"

	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// Recorder persists settled rounds and the running balance of one session.
type Recorder struct {
	store     *Store
	logger    *zap.Logger
	accountID uint
	sessionID string
}

func NewRecorder(store *Store, logger *zap.Logger, accountID uint, sessionID string) *Recorder {
	return &Recorder{
		store:     store,
		logger:    logger.Named("recorder"),
		accountID: accountID,
		sessionID: sessionID,
	}
}

// OnEvent implements game.Listener. Write failures are logged and never reach the engine.
func (r *Recorder) OnEvent(ev game.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if ev.Type == game.EventRoundSettled && ev.Settlement != nil {
		record := NewRoundRecord(r.accountID, r.sessionID, ev)
		if err := r.store.SaveRound(ctx, record); err != nil {
			r.logger.Error("Failed to record round", zap.Int64("round", ev.Round), zap.Error(err))
		}
	}

	if ev.ChangesBalance() {
		if err := r.store.UpdateBalance(ctx, r.accountID, ev.Balance.InexactFloat64()); err != nil {
			r.logger.Error("Failed to persist balance", zap.Int64("round", ev.Round), zap.Error(err))
		}
	}
}

// NewRoundRecord converts a settlement event into a row. The payout is still pending when the
// round settles, so BalanceAfter includes it.
func NewRoundRecord(accountID uint, sessionID string, ev game.Event) *models.RoundRecord {
	st := ev.Settlement
	record := &models.RoundRecord{
		AccountID:     accountID,
		SessionID:     sessionID,
		Round:         ev.Round,
		StartPrice:    st.StartPrice,
		FinalPrice:    st.FinalPrice,
		Outcome:       string(st.Market.Outcome),
		PercentChange: st.Market.PercentChange.InexactFloat64(),
		BalanceAfter:  ev.Balance.InexactFloat64(),
		Simulated:     ev.Simulated,
		Timestamp:     ev.Time.UnixMilli(),
	}
	if st.HasPosition {
		record.Direction = string(st.Direction)
		record.Result = string(st.Result)
		record.Invested = st.Invested.InexactFloat64()
		record.Payout = st.Value.InexactFloat64()
		record.Profit = st.Profit.InexactFloat64()
		record.BalanceAfter = ev.Balance.Add(st.Value).InexactFloat64()
	}
	return record
}

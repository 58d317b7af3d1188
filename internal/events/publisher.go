package events

import (
	"encoding/json"
	"fmt"
	"time"

	"updown-game-go/internal/config"
	"updown-game-go/internal/game"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// RoundSettled is the message published for every settled round.
type RoundSettled struct {
	SessionID string          `json:"session_id"`
	Round     int64           `json:"round"`
	Simulated bool            `json:"simulated"`
	Balance   string          `json:"balance"`
	Timestamp int64           `json:"timestamp"`
	Result    game.Settlement `json:"settlement"`
}

// conn is the subset of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Publisher sends settled rounds to NATS. It implements game.Listener.
type Publisher struct {
	nc        conn
	subject   string
	sessionID string
	logger    *zap.Logger
}

// Connect dials NATS and returns a publisher for the session.
func Connect(cfg config.Events, sessionID string, logger *zap.Logger) (*Publisher, error) {
	log := logger.Named("events")
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.Timeout(5 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connection failed: %w", err)
	}
	log.Info("Connected to NATS", zap.String("url", cfg.URL), zap.String("subject", cfg.Subject))

	return newPublisher(nc, cfg.Subject, sessionID, log), nil
}

func newPublisher(nc conn, subject, sessionID string, logger *zap.Logger) *Publisher {
	return &Publisher{nc: nc, subject: subject, sessionID: sessionID, logger: logger}
}

// OnEvent publishes round settlements and ignores everything else.
func (p *Publisher) OnEvent(ev game.Event) {
	if ev.Type != game.EventRoundSettled || ev.Settlement == nil {
		return
	}
	data, err := json.Marshal(p.message(ev))
	if err != nil {
		p.logger.Error("Failed to encode round", zap.Int64("round", ev.Round), zap.Error(err))
		return
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		p.logger.Error("Failed to publish round", zap.Int64("round", ev.Round), zap.Error(err))
	}
}

func (p *Publisher) message(ev game.Event) RoundSettled {
	return RoundSettled{
		SessionID: p.sessionID,
		Round:     ev.Round,
		Simulated: ev.Simulated,
		Balance:   ev.Balance.String(),
		Timestamp: ev.Time.UnixMilli(),
		Result:    *ev.Settlement,
	}
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}

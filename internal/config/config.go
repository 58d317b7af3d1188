package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Game     Game     `mapstructure:"game"`
	Identity Identity `mapstructure:"identity"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Events   Events   `mapstructure:"events"`
}

// Game holds the round clock, price walk and ledger settings.
type Game struct {
	BettingSeconds    int     `mapstructure:"betting_seconds"`
	TradingSeconds    int     `mapstructure:"trading_seconds"`
	ResultSeconds     int     `mapstructure:"result_seconds"`
	TickIntervalMs    int     `mapstructure:"tick_interval_ms"`
	PayoutDelayMs     int     `mapstructure:"payout_delay_ms"`
	InitialPrice      float64 `mapstructure:"initial_price"`
	InitialBalance    float64 `mapstructure:"initial_balance"`
	RoundHistorySize  int     `mapstructure:"round_history_size"`
	MarketHistorySize int     `mapstructure:"market_history_size"`
	FeedIntervalMs    int     `mapstructure:"feed_interval_ms"`
	FeedChance        float64 `mapstructure:"feed_chance"`
	FeedSize          int     `mapstructure:"feed_size"`
	MergePolicy       string  `mapstructure:"merge_policy"`
	Seed              int64   `mapstructure:"seed"`
}

// TickInterval is the period of the single driving clock.
func (g Game) TickInterval() time.Duration {
	return time.Duration(g.TickIntervalMs) * time.Millisecond
}

// PayoutDelay is how long a settled position is shown before it is paid to the balance.
func (g Game) PayoutDelay() time.Duration {
	return time.Duration(g.PayoutDelayMs) * time.Millisecond
}

// FeedInterval is the period of the ambient activity feed.
func (g Game) FeedInterval() time.Duration {
	return time.Duration(g.FeedIntervalMs) * time.Millisecond
}

// TradingDuration is the length of a trading window.
func (g Game) TradingDuration() time.Duration {
	return time.Duration(g.TradingSeconds) * time.Second
}

// Validate rejects settings the round clock cannot run with.
func (g Game) Validate() error {
	if g.BettingSeconds <= 0 || g.TradingSeconds <= 0 || g.ResultSeconds <= 0 {
		return fmt.Errorf("phase durations must be positive")
	}
	if g.TickIntervalMs <= 0 || g.TickIntervalMs > 1000 || 1000%g.TickIntervalMs != 0 {
		return fmt.Errorf("tick_interval_ms must divide one second, got %d", g.TickIntervalMs)
	}
	if g.InitialPrice < 1 {
		return fmt.Errorf("initial_price must be at least 1, got %v", g.InitialPrice)
	}
	if g.InitialBalance < 0 {
		return fmt.Errorf("initial_balance must not be negative")
	}
	if g.FeedChance < 0 || g.FeedChance > 1 {
		return fmt.Errorf("feed_chance must be within [0,1], got %v", g.FeedChance)
	}
	return nil
}

// DefaultGame returns the stock round settings.
func DefaultGame() Game {
	return Game{
		BettingSeconds:    5,
		TradingSeconds:    10,
		ResultSeconds:     3,
		TickIntervalMs:    50,
		PayoutDelayMs:     1500,
		InitialPrice:      1000,
		InitialBalance:    1000,
		RoundHistorySize:  10,
		MarketHistorySize: 20,
		FeedIntervalMs:    200,
		FeedChance:        0.3,
		FeedSize:          20,
		MergePolicy:       "override",
	}
}

// Identity holds the configuration for the external identity service.
type Identity struct {
	BaseURL        string  `mapstructure:"base_url"`
	Token          string  `mapstructure:"token"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Server holds the configuration for the HTTP servers.
type Server struct {
	Port             int `mapstructure:"port"`
	UIPort           int `mapstructure:"ui_port"`
	StreamIntervalMs int `mapstructure:"stream_interval_ms"`
}

// Validate rejects server settings the processes cannot start with.
func (s Server) Validate() error {
	if s.StreamIntervalMs <= 0 {
		return fmt.Errorf("stream_interval_ms must be positive, got %d", s.StreamIntervalMs)
	}
	return nil
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Events holds the configuration for the settled-round publisher.
type Events struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
	Name    string `mapstructure:"name"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	if err = config.Game.Validate(); err != nil {
		return
	}
	err = config.Server.Validate()
	return
}

func setDefaults(v *viper.Viper) {
	g := DefaultGame()
	v.SetDefault("game.betting_seconds", g.BettingSeconds)
	v.SetDefault("game.trading_seconds", g.TradingSeconds)
	v.SetDefault("game.result_seconds", g.ResultSeconds)
	v.SetDefault("game.tick_interval_ms", g.TickIntervalMs)
	v.SetDefault("game.payout_delay_ms", g.PayoutDelayMs)
	v.SetDefault("game.initial_price", g.InitialPrice)
	v.SetDefault("game.initial_balance", g.InitialBalance)
	v.SetDefault("game.round_history_size", g.RoundHistorySize)
	v.SetDefault("game.market_history_size", g.MarketHistorySize)
	v.SetDefault("game.feed_interval_ms", g.FeedIntervalMs)
	v.SetDefault("game.feed_chance", g.FeedChance)
	v.SetDefault("game.feed_size", g.FeedSize)
	v.SetDefault("game.merge_policy", g.MergePolicy)

	v.SetDefault("identity.rate_limit", 5) // requests per second
	v.SetDefault("identity.rate_limit_burst", 2)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.ui_port", 8081)
	v.SetDefault("server.stream_interval_ms", 200)

	v.SetDefault("database.dsn", "updown.db")

	v.SetDefault("events.subject", "updown.rounds.settled")
	v.SetDefault("events.name", "updown-game")
}

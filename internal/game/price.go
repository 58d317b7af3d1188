package game

import (
	"math"
	"math/rand"
	"time"
)

const (
	minPrice = 1.0

	organicNoiseRange = 15.0
	momentumDecay     = 0.95
	maxMomentum       = 20.0
	maxDeviation      = 0.9
	bounceFactor      = -0.5
)

// PriceTick is the input of one price step.
type PriceTick struct {
	Price      float64
	StartPrice float64
	Elapsed    time.Duration
	Duration   time.Duration
}

// PriceModel advances the simulated price by one tick.
type PriceModel interface {
	Name() string
	Next(rng *rand.Rand, tick PriceTick) float64
}

// Organic is a momentum random walk that bounces off a band of ±90% around the start price.
// Momentum carries over between rounds.
type Organic struct {
	momentum float64
}

func (o *Organic) Name() string { return "organic" }

// Momentum reports the current momentum.
func (o *Organic) Momentum() float64 { return o.momentum }

func (o *Organic) Next(rng *rand.Rand, tick PriceTick) float64 {
	noise := (rng.Float64() - 0.5) * organicNoiseRange
	o.momentum = clamp(o.momentum*momentumDecay+noise, -maxMomentum, maxMomentum)

	price := tick.Price + o.momentum

	band := tick.StartPrice * maxDeviation
	if price > tick.StartPrice+band {
		price = tick.StartPrice + band
		o.momentum *= bounceFactor
	}
	if price < tick.StartPrice-band {
		price = tick.StartPrice - band
		o.momentum *= bounceFactor
	}

	return math.Max(price, minPrice)
}

// Biased drifts upward with a trend that grows over the round. Used for force-started demo rounds.
type Biased struct {
	TrendBase  float64
	TrendSlope float64
	NoiseLow   float64
	NoiseHigh  float64
}

// DefaultBiased is the demo-round drift.
func DefaultBiased() Biased {
	return Biased{TrendBase: 0.5, TrendSlope: 1.5, NoiseLow: -0.5, NoiseHigh: 1.5}
}

func (b Biased) Name() string { return "biased" }

func (b Biased) Next(rng *rand.Rand, tick PriceTick) float64 {
	progress := 0.0
	if tick.Duration > 0 {
		progress = clamp(float64(tick.Elapsed)/float64(tick.Duration), 0, 1)
	}
	trend := b.TrendBase + b.TrendSlope*progress
	noise := b.NoiseLow + rng.Float64()*(b.NoiseHigh-b.NoiseLow)

	return math.Max(tick.Price+trend+noise, minPrice)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

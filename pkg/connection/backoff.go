package connection

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff defaults for bridge dialing.
const (
	InitialBackoff    = 500 * time.Millisecond
	MaxBackoff        = 30 * time.Second
	BackoffMultiplier = 2.0

	// JitterFactor is the largest random extra delay as a fraction of the
	// base delay.
	JitterFactor = 0.25
)

// BackoffConfig shapes the delays between dial attempts. Zero Initial, Max
// or Multiplier take the package defaults; zero Jitter disables jitter.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// DefaultBackoffConfig returns 500ms doubling up to 30s with 25% jitter.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    InitialBackoff,
		Max:        MaxBackoff,
		Multiplier: BackoffMultiplier,
		Jitter:     JitterFactor,
	}
}

func (c BackoffConfig) withDefaults() BackoffConfig {
	if c.Initial <= 0 {
		c.Initial = InitialBackoff
	}
	if c.Max <= 0 {
		c.Max = MaxBackoff
	}
	if c.Max < c.Initial {
		c.Max = c.Initial
	}
	if c.Multiplier <= 1 {
		c.Multiplier = BackoffMultiplier
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
	return c
}

// Base returns the delay before retry n (counting from 1) without jitter.
func (c BackoffConfig) Base(n int) time.Duration {
	c = c.withDefaults()
	if n < 1 {
		n = 1
	}
	d := float64(c.Initial) * math.Pow(c.Multiplier, float64(n-1))
	if d >= float64(c.Max) {
		return c.Max
	}
	return time.Duration(d)
}

// Backoff hands out the successive delays of a BackoffConfig. It is not
// safe for concurrent use.
type Backoff struct {
	cfg      BackoffConfig
	attempts int
	rng      *rand.Rand
}

// NewBackoff creates a Backoff starting at the first retry.
func NewBackoff(cfg BackoffConfig) *Backoff {
	return &Backoff{
		cfg: cfg.withDefaults(),
		rng: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
}

// Next returns the delay before the next retry, jitter included.
func (b *Backoff) Next() time.Duration {
	b.attempts++
	d := b.cfg.Base(b.attempts)
	if b.cfg.Jitter > 0 {
		d += time.Duration(float64(d) * b.cfg.Jitter * b.rng.Float64())
	}
	return d
}

// Attempts returns how many delays Next has handed out since the last Reset.
func (b *Backoff) Attempts() int {
	return b.attempts
}

// Reset starts over at the initial delay.
func (b *Backoff) Reset() {
	b.attempts = 0
}

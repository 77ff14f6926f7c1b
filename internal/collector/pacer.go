package collector

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/trendlens/collector/internal/telemetry"
)

// Pacer serializes outbound calls to the video source at a fixed minimum
// interval. A single token bucket with burst 1 gives the same effective
// rate envelope as sleeping between calls, while remaining safe to share
// if the loop is ever parallelized.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a Pacer with the given minimum interval between
// calls. A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next call is allowed, respecting the context.
func (p *Pacer) Wait(ctx context.Context) error {
	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("pace wait: %w", err)
	}
	if d := time.Since(start); d > time.Millisecond {
		telemetry.ObservePaceDelay(d)
	}
	return nil
}

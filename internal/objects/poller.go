package objects

import (
	"context"
	"time"
)

// Sampler is anything that can be sampled on a schedule.
// It is satisfied by *PressureObject.
type Sampler interface {
	Sample(ctx context.Context) error
}

// Poller samples on a fixed interval so observers are notified without
// waiting for a server read.
type Poller struct {
	sampler  Sampler
	interval time.Duration
	logger   Logger
}

// NewPoller creates a poller. A non-positive interval makes Run return
// immediately.
func NewPoller(sampler Sampler, interval time.Duration, logger Logger) *Poller {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Poller{sampler: sampler, interval: interval, logger: logger}
}

// Run samples once, then on every tick until ctx ends. Sample errors are
// logged and do not stop the poller. It returns nil on cancellation.
func (p *Poller) Run(ctx context.Context) error {
	if p.interval <= 0 || p.sampler == nil {
		return nil
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	if err := p.sampler.Sample(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("sensor poll failed", "error", err)
	}
}

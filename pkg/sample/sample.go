package sample

import (
	"context"
	"time"

	"github.com/itohio/gomics/pkg/mics6814"
)

// Sample is a timestamped sensor snapshot.
type Sample struct {
	Timestamp time.Time
	mics6814.Reading
}

// Gauge takes sensor snapshots. *mics6814.Driver implements it.
type Gauge interface {
	Read() mics6814.Reading
}

var _ Gauge = (*mics6814.Driver)(nil)

// Source starts producing samples and closes the returned channel once ctx
// ends.
type Source func(ctx context.Context) <-chan Sample

// NewPoller creates a source that reads g every period. The gauge is used
// only from the poller goroutine; the caller must not touch it until the
// channel is closed.
func NewPoller(g Gauge, period time.Duration, bufSize int) Source {
	if bufSize <= 0 {
		bufSize = 100
	}
	if period <= 0 {
		period = time.Second
	}

	return func(ctx context.Context) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			ticker := time.NewTicker(period)
			defer ticker.Stop()

			for {
				s := Sample{
					Timestamp: time.Now(),
					Reading:   g.Read(),
				}

				select {
				case out <- s:
				case <-ctx.Done():
					return
				}

				select {
				case <-ticker.C:
				case <-ctx.Done():
					return
				}
			}
		}()

		return out
	}
}

// Valid reports whether the concentration of g could be computed.
func (s Sample) Valid(g mics6814.Gas) bool {
	return g < mics6814.NumGases && s.Concentration[g] != mics6814.Invalid
}

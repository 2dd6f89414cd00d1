// Package watchdog runs the periodic temperature sampling loop. It is the
// exclusive reader of the sensor lines, the sole writer of the published
// temperature, and the only authority that trips an over-temperature
// shutdown.
package watchdog

import (
	"context"
	"log"
	"time"

	"github.com/sweeney/heatcoil/internal/coil"
	"github.com/sweeney/heatcoil/internal/max6675"
)

// DefaultPeriod is the interval between samples.
const DefaultPeriod = time.Second

// Sampler acquires one sensor frame.
type Sampler interface {
	Sample(ctx context.Context) (max6675.Reading, error)
}

// Coil is the actuator surface the watchdog needs to enforce the hard
// ceiling.
type Coil interface {
	Heating() bool
	Disengage() error
}

// Sink receives every published sample.
type Sink interface {
	PublishSample(ticks uint16, fault bool)
}

// Watchdog samples the sensor once per period, publishes the reading, and
// forces the coil off when the hard ceiling is exceeded while heating.
type Watchdog struct {
	sampler Sampler
	coil    Coil
	sink    Sink
	period  time.Duration

	// OnTrip, if non-nil, is called after an over-temperature disengage.
	// It must be set before Start.
	OnTrip func(ticks uint16)

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Watchdog. A period of 0 uses DefaultPeriod.
func New(sampler Sampler, c Coil, sink Sink, period time.Duration) *Watchdog {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Watchdog{
		sampler: sampler,
		coil:    c,
		sink:    sink,
		period:  period,
		done:    make(chan struct{}),
	}
}

// Start launches the sample loop. It must be called at most once.
func (w *Watchdog) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	go w.run(ctx)
}

// Stop signals the loop to exit and waits for it to finish its final
// iteration, so no in-flight sensor frame outlives the call. The loop
// reacts within one sample period plus one clock half-period. Stop is safe
// to call more than once.
func (w *Watchdog) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

func (w *Watchdog) run(ctx context.Context) {
	defer close(w.done)

	for {
		deadline := time.Now().Add(w.period)

		reading, err := w.sampler.Sample(ctx)
		if err != nil {
			// No retry: the next period takes a fresh sample.
			log.Printf("watchdog: sample: %v", err)
		} else {
			w.sink.PublishSample(reading.Ticks, reading.Open)
			if reading.Ticks > coil.HardLimitTicks && w.coil.Heating() {
				log.Printf("thermal limit exceeded (%d ticks), turning off heating coil", reading.Ticks)
				if err := w.coil.Disengage(); err != nil {
					log.Printf("watchdog: disengage: %v", err)
				}
				if w.OnTrip != nil {
					w.OnTrip(reading.Ticks)
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(deadline)):
		}
	}
}

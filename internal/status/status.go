// Package status holds the lifecycle-owned shared state of the heatcoil
// daemon: the latest temperature sample, the sensor-fault flag, and the
// counters and configuration shown by the HTTP and MQTT surfaces.
//
// The temperature is a single-word atomic cell: the watchdog is its only
// writer, and concurrent readers observe either the previous or the newly
// published value, never a torn one.
package status

import (
	"sync"
	"sync/atomic"
	"time"
)

// Config contains daemon configuration for display.
type Config struct {
	SamplePeriodMs int64
	TelemetryMs    int64
	Broker         string
	HTTPAddr       string
	SocketDir      string
	PinCS          int
	PinCLK         int
	PinDATA        int
	PinHeat        int
}

// Counts tracks coil transitions and safety trips since startup.
type Counts struct {
	Engages    int
	Disengages int
	Trips      int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	TempTicks     uint16
	SensorFault   bool
	Heating       bool
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Celsius returns the snapshot temperature in degrees Celsius.
func (s Snapshot) Celsius() float64 {
	return float64(s.TempTicks) * 0.25
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state. The temperature cell is atomic; the
// rest sits behind an RWMutex.
type Tracker struct {
	temp  atomic.Uint32
	fault atomic.Bool

	mu      sync.RWMutex
	heating bool
	counts  Counts
	mqttUp  bool

	startTime time.Time
	config    Config
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{startTime: startTime, config: cfg}
}

// PublishSample records a watchdog sample. Called only by the watchdog.
func (t *Tracker) PublishSample(ticks uint16, fault bool) {
	t.temp.Store(uint32(ticks))
	t.fault.Store(fault)
}

// TempTicks returns the most recent published temperature.
func (t *Tracker) TempTicks() uint16 {
	return uint16(t.temp.Load())
}

// SensorFault reports the open-thermocouple flag of the latest sample.
func (t *Tracker) SensorFault() bool {
	return t.fault.Load()
}

// CoilChanged records a coil transition. Called from the actuator's
// transition hook.
func (t *Tracker) CoilChanged(on bool) {
	t.mu.Lock()
	t.heating = on
	if on {
		t.counts.Engages++
	} else {
		t.counts.Disengages++
	}
	t.mu.Unlock()
}

// TripRecorded counts an over-temperature trip.
func (t *Tracker) TripRecorded() {
	t.mu.Lock()
	t.counts.Trips++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.mqttUp = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := Snapshot{
		Heating:       t.heating,
		Counts:        t.counts,
		MQTTConnected: t.mqttUp,
		StartTime:     t.startTime,
		Config:        t.config,
	}
	t.mu.RUnlock()
	s.TempTicks = t.TempTicks()
	s.SensorFault = t.SensorFault()
	s.Now = time.Now()
	return s
}

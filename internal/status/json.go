package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Heating       bool       `json:"heating"`
	TempTicks     uint16     `json:"temp_ticks"`
	TempCelsius   float64    `json:"temp_celsius"`
	SensorFault   bool       `json:"sensor_fault"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"coil_counts"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of coil counters.
type CountsJSON struct {
	Engages    int `json:"engages"`
	Disengages int `json:"disengages"`
	Trips      int `json:"overtemp_trips"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SamplePeriodMs int64  `json:"sample_period_ms"`
	TelemetryMs    int64  `json:"telemetry_ms"`
	Broker         string `json:"broker"`
	HTTPAddr       string `json:"http_addr"`
	SocketDir      string `json:"socket_dir"`
	PinCS          int    `json:"pin_cs"`
	PinCLK         int    `json:"pin_clk"`
	PinDATA        int    `json:"pin_data"`
	PinHeat        int    `json:"pin_heat"`
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		Heating:       snap.Heating,
		TempTicks:     snap.TempTicks,
		TempCelsius:   snap.Celsius(),
		SensorFault:   snap.SensorFault,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Engages:    snap.Counts.Engages,
			Disengages: snap.Counts.Disengages,
			Trips:      snap.Counts.Trips,
		},
		Config: ConfigJSON{
			SamplePeriodMs: snap.Config.SamplePeriodMs,
			TelemetryMs:    snap.Config.TelemetryMs,
			Broker:         snap.Config.Broker,
			HTTPAddr:       snap.Config.HTTPAddr,
			SocketDir:      snap.Config.SocketDir,
			PinCS:          snap.Config.PinCS,
			PinCLK:         snap.Config.PinCLK,
			PinDATA:        snap.Config.PinDATA,
			PinHeat:        snap.Config.PinHeat,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

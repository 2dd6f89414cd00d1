package main

import (
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/heatcoil/internal/mqtt"
	"github.com/sweeney/heatcoil/internal/status"
)

func TestSignalName(t *testing.T) {
	if got := signalName(syscall.SIGINT); got != "SIGINT" {
		t.Errorf("signalName(SIGINT) = %q", got)
	}
	if got := signalName(syscall.SIGTERM); got != "SIGTERM" {
		t.Errorf("signalName(SIGTERM) = %q", got)
	}
	if got := signalName(syscall.SIGHUP); got != "UNKNOWN" {
		t.Errorf("signalName(SIGHUP) = %q", got)
	}
}

func TestQueueCoilEventDropsWhenFull(t *testing.T) {
	events := make(chan mqtt.CoilEvent, 2)

	queueCoilEvent(events, mqtt.CoilEvent{Event: mqtt.EventCoilOn})
	queueCoilEvent(events, mqtt.CoilEvent{Event: mqtt.EventCoilOff})
	// Full queue: must not block.
	done := make(chan struct{})
	go func() {
		queueCoilEvent(events, mqtt.CoilEvent{Event: mqtt.EventOvertemp})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("queueCoilEvent blocked on a full queue")
	}
	if len(events) != 2 {
		t.Errorf("queue length = %d, want 2", len(events))
	}
}

func TestCoilEventPumpPublishesUntilClosed(t *testing.T) {
	f := mqtt.NewFakePublisher()
	events := make(chan mqtt.CoilEvent, 4)
	done := make(chan struct{})
	go coilEventPump(f, events, done)

	events <- mqtt.CoilEvent{Event: mqtt.EventCoilOn, Heating: true, TempTicks: 400}
	events <- mqtt.CoilEvent{Event: mqtt.EventOvertemp, TempTicks: 2700}
	close(events)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump did not exit after channel close")
	}

	if len(f.CoilEvents) != 2 {
		t.Fatalf("published %d coil events, want 2", len(f.CoilEvents))
	}
	if f.CoilEvents[0].Event != mqtt.EventCoilOn || f.CoilEvents[1].Event != mqtt.EventOvertemp {
		t.Errorf("events = %+v", f.CoilEvents)
	}
}

func TestCoilEventPumpNilPublisher(t *testing.T) {
	events := make(chan mqtt.CoilEvent, 1)
	done := make(chan struct{})
	go coilEventPump(nil, events, done)

	events <- mqtt.CoilEvent{Event: mqtt.EventCoilOn}
	close(events)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump with nil publisher did not drain")
	}
}

func TestTelemetryLoopPublishesSamples(t *testing.T) {
	f := mqtt.NewFakePublisher()
	f.Connected = true
	tracker := status.NewTracker(time.Now(), status.Config{})
	tracker.PublishSample(712, true)

	stop := make(chan struct{})
	loopDone := make(chan struct{})
	go func() {
		telemetryLoop(f, tracker, 5*time.Millisecond, stop)
		close(loopDone)
	}()

	time.Sleep(100 * time.Millisecond)
	close(stop)
	<-loopDone

	if len(f.Samples) == 0 {
		t.Fatal("no telemetry samples published")
	}
	if f.Samples[0].Ticks != 712 || !f.Samples[0].SensorFault {
		t.Errorf("sample = %+v, want ticks=712 fault=true", f.Samples[0])
	}
	if !tracker.Snapshot().MQTTConnected {
		t.Error("telemetry loop did not refresh MQTT connection state")
	}
}

// Command heatcoild drives a resistive heating coil while a MAX6675
// thermocouple converter watches the temperature. It exposes the two
// control endpoints (heatcoil.temp, heatcoil.status) as unix sockets and
// over HTTP, and publishes telemetry to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/heatcoil/internal/coil"
	"github.com/sweeney/heatcoil/internal/device"
	"github.com/sweeney/heatcoil/internal/gpio"
	"github.com/sweeney/heatcoil/internal/max6675"
	"github.com/sweeney/heatcoil/internal/mqtt"
	"github.com/sweeney/heatcoil/internal/sock"
	"github.com/sweeney/heatcoil/internal/status"
	"github.com/sweeney/heatcoil/internal/watchdog"
	"github.com/sweeney/heatcoil/internal/web"
)

type options struct {
	sample    time.Duration
	telemetry time.Duration
	broker    string
	httpAddr  string
	socketDir string
	pinCS     int
	pinCLK    int
	pinDATA   int
	pinHeat   int
	printTemp bool
}

func main() {
	var opts options
	flag.DurationVar(&opts.sample, "sample", watchdog.DefaultPeriod, "Watchdog sample period")
	flag.DurationVar(&opts.telemetry, "telemetry", 15*time.Second, "MQTT telemetry interval (0 to disable)")
	flag.StringVar(&opts.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	flag.StringVar(&opts.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	flag.StringVar(&opts.socketDir, "socket-dir", "/run/heatcoil", "Directory for the control sockets")
	flag.IntVar(&opts.pinCS, "pin-cs", gpio.DefaultPinCS, "BCM pin number for CS")
	flag.IntVar(&opts.pinCLK, "pin-clk", gpio.DefaultPinCLK, "BCM pin number for CLK")
	flag.IntVar(&opts.pinDATA, "pin-data", gpio.DefaultPinDATA, "BCM pin number for DATA")
	flag.IntVar(&opts.pinHeat, "pin-heat", gpio.DefaultPinHeat, "BCM pin number for HEAT")
	flag.BoolVar(&opts.printTemp, "print-temp", false, "Take one sample, print it, and exit")
	flag.Parse()

	if opts.printTemp {
		if err := printTempOnce(opts); err != nil {
			log.Fatalf("fatal: %v", err)
		}
		return
	}

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// printTempOnce acquires the pins, takes a single sample, prints it, and
// releases the pins.
func printTempOnce(opts options) error {
	pins, err := gpio.Request(opts.pinCS, opts.pinCLK, opts.pinDATA, opts.pinHeat)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer pins.Close()

	reader := max6675.New(pins.CS, pins.CLK, pins.Data)
	r, err := reader.Sample(context.Background())
	if err != nil {
		return fmt.Errorf("sample: %w", err)
	}
	fmt.Printf("%d ticks (%.2f C, %.2f F)", r.Ticks, r.Celsius(), r.Fahrenheit())
	if r.Open {
		fmt.Printf(" [thermocouple open]")
	}
	fmt.Println()
	return nil
}

func run(opts options) error {
	tracker := status.NewTracker(time.Now(), status.Config{
		SamplePeriodMs: opts.sample.Milliseconds(),
		TelemetryMs:    opts.telemetry.Milliseconds(),
		Broker:         opts.broker,
		HTTPAddr:       opts.httpAddr,
		SocketDir:      opts.socketDir,
		PinCS:          opts.pinCS,
		PinCLK:         opts.pinCLK,
		PinDATA:        opts.pinDATA,
		PinHeat:        opts.pinHeat,
	})

	// Endpoint registration comes first: if it fails, no pin has been
	// touched yet.
	srv := sock.New(opts.socketDir)
	if err := srv.Listen(); err != nil {
		return err
	}
	defer srv.Close()

	var httpLn net.Listener
	if opts.httpAddr != "" {
		var err error
		httpLn, err = net.Listen("tcp", opts.httpAddr)
		if err != nil {
			return fmt.Errorf("register http endpoint: %w", err)
		}
	}

	// Hardware next. Pins are released last on the way out.
	pins, err := gpio.Request(opts.pinCS, opts.pinCLK, opts.pinDATA, opts.pinHeat)
	if err != nil {
		if httpLn != nil {
			httpLn.Close()
		}
		return fmt.Errorf("init gpio: %w", err)
	}
	defer pins.Close()

	publisher := connectBroker(opts.broker)
	var pub mqtt.Publisher // nil interface when the broker is disabled
	if publisher != nil {
		pub = publisher
		defer publisher.Close()
	}

	// Coil transitions are recorded and queued from inside the actuator's
	// critical section, so the hook must not block on I/O. A goroutine
	// below drains the queue into MQTT.
	events := make(chan mqtt.CoilEvent, 16)
	act := coil.New(pins.Heat, tracker.TempTicks, func(on bool) {
		tracker.CoilChanged(on)
		name := mqtt.EventCoilOff
		if on {
			name = mqtt.EventCoilOn
		}
		queueCoilEvent(events, mqtt.CoilEvent{
			Timestamp: time.Now(),
			Event:     name,
			Heating:   on,
			TempTicks: tracker.TempTicks(),
		})
	})

	reader := max6675.New(pins.CS, pins.CLK, pins.Data)
	wd := watchdog.New(reader, act, tracker, opts.sample)
	wd.OnTrip = func(ticks uint16) {
		tracker.TripRecorded()
		queueCoilEvent(events, mqtt.CoilEvent{
			Timestamp: time.Now(),
			Event:     mqtt.EventOvertemp,
			Heating:   false,
			TempTicks: ticks,
		})
	}
	wd.Start()

	mux := device.NewMux(tracker.TempTicks, act)
	srv.Serve(mux)
	log.Printf("control sockets at %s and %s", srv.TempPath(), srv.StatusPath())

	var webSrv *web.Server
	if httpLn != nil {
		webSrv, err = web.New(opts.httpAddr, tracker, mux)
		if err != nil {
			httpLn.Close()
			srv.Close()
			wd.Stop()
			return fmt.Errorf("init web server: %w", err)
		}
		go func() {
			if err := webSrv.Serve(httpLn); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		log.Printf("http status server listening on %s", opts.httpAddr)
	}

	pumpDone := make(chan struct{})
	go coilEventPump(pub, events, pumpDone)

	if publisher != nil {
		tracker.SetMQTTConnected(publisher.IsConnected())
		startup := mqtt.SystemEvent{
			Timestamp:  time.Now(),
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(tracker.Snapshot(), "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startup); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		}
	}

	log.Printf("heatcoild started: sample=%v broker=%s socket-dir=%s pins cs=%d clk=%d data=%d heat=%d",
		opts.sample, opts.broker, opts.socketDir, opts.pinCS, opts.pinCLK, opts.pinDATA, opts.pinHeat)

	telemetryStop := make(chan struct{})
	if pub != nil && opts.telemetry > 0 {
		go telemetryLoop(pub, tracker, opts.telemetry, telemetryStop)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	log.Printf("received %v, shutting down", s)

	if publisher != nil {
		tracker.SetMQTTConnected(publisher.IsConnected())
		shutdownEvent := mqtt.SystemEvent{
			Timestamp:  time.Now(),
			Event:      "SHUTDOWN",
			Reason:     signalName(s),
			Retained:   true,
			RawPayload: status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", signalName(s)),
		}
		if err := publisher.PublishSystem(shutdownEvent); err != nil {
			log.Printf("failed to publish shutdown event: %v", err)
		}
	}
	close(telemetryStop)

	// Teardown order: endpoints first so no new client write races the
	// teardown, then the watchdog (joined, so no frame is in flight), then
	// a final disengage, and last the pins via the deferred Close.
	if webSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		webSrv.Shutdown(ctx)
		cancel()
	}
	srv.Close()
	wd.Stop()
	act.Disengage()
	close(events)
	<-pumpDone

	log.Printf("heatcoild stopped")
	return nil
}

// connectBroker connects to the MQTT broker, or returns nil when telemetry
// is disabled or the broker is unreachable. The daemon's safety duties do
// not depend on the broker.
func connectBroker(broker string) *mqtt.RealPublisher {
	if broker == "" {
		return nil
	}
	p, err := mqtt.NewRealPublisher(broker)
	if err != nil {
		log.Printf("mqtt disabled: %v", err)
		return nil
	}
	return p
}

// queueCoilEvent enqueues without blocking; a full queue drops the event.
func queueCoilEvent(events chan<- mqtt.CoilEvent, e mqtt.CoilEvent) {
	select {
	case events <- e:
	default:
		log.Printf("coil event queue full, dropping %s", e.Event)
	}
}

// coilEventPump publishes queued coil events until the channel is closed.
func coilEventPump(publisher mqtt.Publisher, events <-chan mqtt.CoilEvent, done chan<- struct{}) {
	defer close(done)
	for e := range events {
		if publisher == nil {
			continue
		}
		if err := publisher.PublishCoil(e); err != nil {
			log.Printf("coil event publish error: %v", err)
		}
	}
}

// telemetryLoop periodically publishes the latest sample.
func telemetryLoop(publisher mqtt.Publisher, tracker *status.Tracker, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if cs, ok := publisher.(mqtt.ConnectionStatus); ok {
				tracker.SetMQTTConnected(cs.IsConnected())
			}
			err := publisher.PublishSample(mqtt.Sample{
				Timestamp:   time.Now(),
				Ticks:       tracker.TempTicks(),
				SensorFault: tracker.SensorFault(),
			})
			if err != nil {
				log.Printf("telemetry publish error: %v", err)
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

package mqtt

// FakePublisher records published telemetry for test assertions.
type FakePublisher struct {
	// Samples contains all temperature samples that were published.
	Samples []Sample

	// CoilEvents contains all coil events that were published.
	CoilEvents []CoilEvent

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SamplePayloads, CoilPayloads and SystemPayloads contain the
	// serialized JSON for each publish.
	SamplePayloads [][]byte
	CoilPayloads   [][]byte
	SystemPayloads [][]byte

	// PublishError, if set, is returned by every publish method.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishSample records the temperature sample.
func (f *FakePublisher) PublishSample(s Sample) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Samples = append(f.Samples, s)

	payload, err := FormatSamplePayload(s)
	if err != nil {
		return err
	}
	f.SamplePayloads = append(f.SamplePayloads, payload)
	return nil
}

// PublishCoil records the coil event.
func (f *FakePublisher) PublishCoil(e CoilEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.CoilEvents = append(f.CoilEvents, e)

	payload, err := FormatCoilPayload(e)
	if err != nil {
		return err
	}
	f.CoilPayloads = append(f.CoilPayloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(e SystemEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.SystemEvents = append(f.SystemEvents, e)

	payload, err := FormatSystemPayload(e)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded telemetry.
func (f *FakePublisher) Reset() {
	f.Samples = nil
	f.CoilEvents = nil
	f.SystemEvents = nil
	f.SamplePayloads = nil
	f.CoilPayloads = nil
	f.SystemPayloads = nil
	f.PublishError = nil
	f.Closed = false
	f.Connected = false
}

package mqtt

import (
	"fmt"
	"testing"
)

func msg(i int) bufferedMsg {
	return bufferedMsg{topic: TopicTemperature, payload: []byte(fmt.Sprintf("m%d", i))}
}

func TestRingBufferPushAndDrain(t *testing.T) {
	r := newRingBuffer(4)

	if got := r.drainAll(); got != nil {
		t.Errorf("drain of empty buffer = %v, want nil", got)
	}

	for i := 0; i < 3; i++ {
		r.push(msg(i))
	}
	if r.len() != 3 {
		t.Errorf("len = %d, want 3", r.len())
	}

	drained := r.drainAll()
	if len(drained) != 3 {
		t.Fatalf("drained %d messages, want 3", len(drained))
	}
	for i, m := range drained {
		if string(m.payload) != fmt.Sprintf("m%d", i) {
			t.Errorf("drained[%d] = %s, want m%d (FIFO order)", i, m.payload, i)
		}
	}
	if r.len() != 0 {
		t.Errorf("len after drain = %d, want 0", r.len())
	}
}

func TestRingBufferOverflowDropsOldest(t *testing.T) {
	r := newRingBuffer(3)
	for i := 0; i < 5; i++ {
		r.push(msg(i))
	}

	drained := r.drainAll()
	if len(drained) != 3 {
		t.Fatalf("drained %d messages, want 3", len(drained))
	}
	want := []string{"m2", "m3", "m4"}
	for i, m := range drained {
		if string(m.payload) != want[i] {
			t.Errorf("drained[%d] = %s, want %s", i, m.payload, want[i])
		}
	}
}

func TestRingBufferReusableAfterDrain(t *testing.T) {
	r := newRingBuffer(2)
	r.push(msg(0))
	r.drainAll()

	r.push(msg(1))
	r.push(msg(2))
	drained := r.drainAll()
	if len(drained) != 2 {
		t.Fatalf("drained %d, want 2", len(drained))
	}
	if string(drained[0].payload) != "m1" || string(drained[1].payload) != "m2" {
		t.Errorf("drained = [%s %s], want [m1 m2]", drained[0].payload, drained[1].payload)
	}
}

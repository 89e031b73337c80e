package mics6814

import "time"

// fakeHAL is a synthetic sampler with a virtual clock.
type fakeHAL struct {
	values  map[Pin]func(n int) uint16
	reads   map[Pin]int
	elapsed time.Duration
	delays  int
	onDelay func(d time.Duration)
}

func newFakeHAL() *fakeHAL {
	return &fakeHAL{
		values: make(map[Pin]func(n int) uint16),
		reads:  make(map[Pin]int),
	}
}

func (h *fakeHAL) constant(pin Pin, v uint16) *fakeHAL {
	h.values[pin] = func(int) uint16 { return v }
	return h
}

func (h *fakeHAL) ReadAnalog(pin Pin) uint16 {
	n := h.reads[pin]
	h.reads[pin]++
	if f, ok := h.values[pin]; ok {
		return f(n)
	}
	return 0
}

func (h *fakeHAL) Delay(d time.Duration) {
	h.elapsed += d
	h.delays++
	if h.onDelay != nil {
		h.onDelay(d)
	}
}

var testPins = Pins{Reducing: 1, Oxidizing: 2, Ammonia: 3}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Window = 4
	return opts
}

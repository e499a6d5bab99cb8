// Package mock is a synthetic radio. Receive returns a complex tone with a
// little gaussian noise on every channel, Transmit records what it was given.
package mock

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/josefcohen96/usrp/internal/sdr"
)

const (
	Device = "Mock SDR"

	// DefaultToneOffset is the tone's offset from the center frequency (Hz)
	DefaultToneOffset = 100_000
)

// Radio implements sdr.Radio without hardware.
type Radio struct {
	mu sync.Mutex

	toneOffset float64
	noise      float64
	phaseStep  float64 // per-channel phase shift (radians)

	transmitted []sdr.TxRequest
	closed      bool
}

// WithToneOffset moves the synthesized tone away from the center frequency.
func WithToneOffset(hz float64) func(r *Radio) {
	return func(r *Radio) {
		r.toneOffset = hz
	}
}

// WithNoise sets the standard deviation of the noise added to I and Q.
func WithNoise(sigma float64) func(r *Radio) {
	return func(r *Radio) {
		r.noise = sigma
	}
}

func New(options ...func(r *Radio)) *Radio {
	r := Radio{
		toneOffset: DefaultToneOffset,
		noise:      1e-4,
		phaseStep:  math.Pi / 4,
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

func (r *Radio) Receive(ctx context.Context, req sdr.RxRequest) ([][]complex64, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, sdr.NewHardwareError(Device, "receive", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	step := 2 * math.Pi * r.toneOffset / req.SamplingRateHz
	out := make([][]complex64, len(req.Channels))
	for c, ch := range req.Channels {
		shift := r.phaseStep * float64(ch)
		samples := make([]complex64, req.NumSamples)
		for i := range samples {
			phase := step*float64(i) + shift
			noiseI := rand.NormFloat64() * r.noise
			noiseQ := rand.NormFloat64() * r.noise
			samples[i] = complex64(complex(math.Cos(phase)+noiseI, math.Sin(phase)+noiseQ))
		}
		out[c] = samples
	}

	return out, nil
}

func (r *Radio) Transmit(ctx context.Context, req sdr.TxRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return sdr.NewHardwareError(Device, "transmit", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	req.Samples = append([]complex64(nil), req.Samples...)
	req.Channels = append([]int(nil), req.Channels...)
	r.transmitted = append(r.transmitted, req)
	return nil
}

// Transmitted returns every request passed to Transmit, oldest first.
func (r *Radio) Transmitted() []sdr.TxRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sdr.TxRequest(nil), r.transmitted...)
}

func (r *Radio) Device() string {
	return Device
}

func (r *Radio) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (r *Radio) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

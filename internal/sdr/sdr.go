package sdr

import (
	"context"
	"fmt"
	"time"
)

// Radio is the hardware capability: receive a fixed number of samples or
// transmit a buffered waveform. Both calls block until the hardware is done.
type Radio interface {
	// Receive returns NumSamples samples for each requested channel, in the
	// order the channels were requested.
	Receive(ctx context.Context, req RxRequest) ([][]complex64, error)

	// Transmit sends the buffer on the requested channels.
	Transmit(ctx context.Context, req TxRequest) error

	// Device returns a human-readable device type, e.g. "USRP B200".
	Device() string

	Close() error
}

// Tuning holds the radio front end settings shared by receive and transmit.
type Tuning struct {
	CenterFrequencyHz float64
	SamplingRateHz    float64
	GainDb            float64
	Channels          []int
}

func (t Tuning) Validate() error {
	if t.CenterFrequencyHz <= 0 {
		return NewConfigError(fmt.Sprintf("sdr: center frequency must be positive: %v given", t.CenterFrequencyHz))
	}
	if t.SamplingRateHz <= 0 {
		return NewConfigError(fmt.Sprintf("sdr: sampling rate must be positive: %v given", t.SamplingRateHz))
	}
	if len(t.Channels) == 0 {
		return NewConfigError("sdr: at least one channel is required")
	}
	for _, ch := range t.Channels {
		if ch < 0 {
			return NewConfigError(fmt.Sprintf("sdr: invalid channel index: %d", ch))
		}
	}
	return nil
}

// RxRequest asks for NumSamples samples per channel.
type RxRequest struct {
	Tuning
	NumSamples int
}

func (r RxRequest) Validate() error {
	if err := r.Tuning.Validate(); err != nil {
		return err
	}
	if r.NumSamples <= 0 {
		return NewConfigError(fmt.Sprintf("sdr: number of samples must be positive: %d given", r.NumSamples))
	}
	return nil
}

// TxRequest carries a flat buffer to transmit and the playback duration
// derived from it.
type TxRequest struct {
	Tuning
	Samples  []complex64
	Duration time.Duration
}

func (r TxRequest) Validate() error {
	if err := r.Tuning.Validate(); err != nil {
		return err
	}
	if len(r.Samples) == 0 {
		return NewConfigError("sdr: nothing to transmit")
	}
	return nil
}

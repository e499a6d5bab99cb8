package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/josefcohen96/usrp/internal/descriptor"
	"github.com/josefcohen96/usrp/internal/iq"
	"github.com/josefcohen96/usrp/internal/sdr"
)

// ErrEmptyCapture is returned when a capture file holds no samples
var ErrEmptyCapture = errors.New("capture file is empty")

// ReplayResult describes a finished replay.
type ReplayResult struct {
	Descriptor descriptor.Descriptor
	Samples    int
	Duration   time.Duration
}

// Replay transmits a capture file with the parameters its name encodes.
type Replay struct {
	radio sdr.Radio
	settings
}

func NewReplay(radio sdr.Radio, options ...Option) *Replay {
	return &Replay{
		radio:    radio,
		settings: newSettings(options),
	}
}

// Run decodes the file name, reads the whole file as one flat buffer and
// transmits it on the given channels. A missing file is reported with an
// error wrapping fs.ErrNotExist.
func (r *Replay) Run(ctx context.Context, path string, channels []int) (*ReplayResult, error) {
	d, err := descriptor.Decode(path)
	if err != nil {
		return nil, err
	}

	samples, err := read(path)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyCapture)
	}

	duration := time.Duration(math.Round(float64(len(samples)) / d.SamplingRateHz() * float64(time.Second)))

	r.logger.Info("replaying",
		slog.String("device", r.radio.Device()),
		slog.String("path", path),
		slog.String("frequency", humanize.SIWithDigits(d.CenterFrequencyHz(), 3, "Hz")),
		slog.String("rate", humanize.SIWithDigits(d.SamplingRateHz(), 3, "S/s")),
		slog.Float64("gain", d.GainDb()),
		slog.Any("channels", channels),
		slog.Duration("duration", duration))

	tx := sdr.TxRequest{
		Tuning: sdr.Tuning{
			CenterFrequencyHz: d.CenterFrequencyHz(),
			SamplingRateHz:    d.SamplingRateHz(),
			GainDb:            d.GainDb(),
			Channels:          channels,
		},
		Samples:  samples,
		Duration: duration,
	}

	if err = r.radio.Transmit(ctx, tx); err != nil {
		return nil, fmt.Errorf("transmitting samples: %w", err)
	}

	return &ReplayResult{Descriptor: d, Samples: len(samples), Duration: duration}, nil
}

func read(path string) ([]complex64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening capture: %w", err)
	}
	defer f.Close()

	samples, err := iq.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return samples, nil
}

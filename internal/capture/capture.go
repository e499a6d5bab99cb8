// Package capture records samples from a radio into descriptor-named files
// and replays such files through a transmitter.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/josefcohen96/usrp/internal/descriptor"
	"github.com/josefcohen96/usrp/internal/iq"
	"github.com/josefcohen96/usrp/internal/sdr"
)

// Visualizer renders captured samples into an artifact stored in dir and
// returns its path.
type Visualizer interface {
	Visualize(dir string, d descriptor.Descriptor, channels [][]complex64) (string, error)
}

type settings struct {
	logger     *slog.Logger
	visualizer Visualizer
}

type Option func(s *settings)

// WithLogger sets the logger for a capture or a replay
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithVisualizer renders every capture after it is saved
func WithVisualizer(v Visualizer) Option {
	return func(s *settings) {
		s.visualizer = v
	}
}

func newSettings(options []Option) settings {
	s := settings{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&s)
	}

	return s
}

// Request describes one capture. NumSamples is derived from the rate and
// the duration.
type Request struct {
	FrequencyHz     float64
	SamplingRateHz  float64
	DurationSeconds float64
	GainDb          float64
	Channels        []int
}

// NumSamples returns round(rate × duration).
func (r Request) NumSamples() int {
	return int(math.Round(r.SamplingRateHz * r.DurationSeconds))
}

func (r Request) Validate() error {
	if !(r.DurationSeconds > 0) {
		return sdr.NewConfigError(fmt.Sprintf("capture: sample time must be positive: %v given", r.DurationSeconds))
	}
	if r.NumSamples() <= 0 {
		return sdr.NewConfigError(fmt.Sprintf("capture: %v s at %v Hz is less than one sample", r.DurationSeconds, r.SamplingRateHz))
	}
	return nil
}

// Result describes a saved capture.
type Result struct {
	Path            string
	Descriptor      descriptor.Descriptor
	Samples         int // per channel
	Bytes           int64
	SpectrogramPath string // empty when no visualizer is set or rendering failed
}

// Capture receives a buffer and stores it under a name encoding the capture
// parameters.
type Capture struct {
	radio sdr.Radio
	dir   string
	settings
}

func NewCapture(radio sdr.Radio, dir string, options ...Option) *Capture {
	return &Capture{
		radio:    radio,
		dir:      dir,
		settings: newSettings(options),
	}
}

// Run performs one capture. An existing file is never overwritten: the file
// gets the smallest free index for its parameters.
func (c *Capture) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	d, err := descriptor.New(req.SamplingRateHz, req.FrequencyHz, req.GainDb, 0)
	if err != nil {
		return nil, sdr.NewConfigError(fmt.Sprintf("capture: %s", err))
	}

	rx := sdr.RxRequest{
		Tuning: sdr.Tuning{
			CenterFrequencyHz: req.FrequencyHz,
			SamplingRateHz:    req.SamplingRateHz,
			GainDb:            req.GainDb,
			Channels:          req.Channels,
		},
		NumSamples: req.NumSamples(),
	}

	c.logger.Info("receiving",
		slog.String("device", c.radio.Device()),
		slog.String("frequency", humanize.SIWithDigits(req.FrequencyHz, 3, "Hz")),
		slog.String("rate", humanize.SIWithDigits(req.SamplingRateHz, 3, "S/s")),
		slog.Float64("gain", req.GainDb),
		slog.Any("channels", req.Channels),
		slog.String("samples", humanize.Comma(int64(rx.NumSamples))))

	channels, err := c.radio.Receive(ctx, rx)
	if err != nil {
		return nil, fmt.Errorf("receiving samples: %w", err)
	}

	f, indexed, err := descriptor.Create(c.dir, d)
	if err != nil {
		return nil, fmt.Errorf("creating capture file: %w", err)
	}

	written, err := write(f, channels)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("writing %s: %w", f.Name(), err), os.Remove(f.Name()))
	}

	result := Result{
		Path:       f.Name(),
		Descriptor: indexed,
		Samples:    rx.NumSamples,
		Bytes:      written,
	}

	c.logger.Info("capture saved",
		slog.String("path", result.Path),
		slog.String("size", humanize.Bytes(uint64(written))))

	if c.visualizer != nil {
		path, err := c.visualizer.Visualize(c.dir, indexed, channels)
		if err != nil {
			c.logger.Warn(fmt.Sprintf("error rendering spectrogram: %s", err))
		} else {
			result.SpectrogramPath = path
			c.logger.Info("spectrogram saved", slog.String("path", path))
		}
	}

	return &result, nil
}

// write stores the channels one after another and closes the file.
func write(f *os.File, channels [][]complex64) (int64, error) {
	w := iq.NewWriter(f)

	err := w.WriteChannels(channels)
	if err == nil {
		err = w.Flush()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	return w.BytesWritten(), err
}

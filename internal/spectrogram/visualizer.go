// Package spectrogram renders captured samples as a PNG spectrogram.
package spectrogram

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"

	"github.com/josefcohen96/usrp/internal/descriptor"
)

// WithLogger sets the logger for the visualizer
func WithLogger(logger *slog.Logger) func(v *Visualizer) {
	return func(v *Visualizer) {
		v.logger = logger
	}
}

// Visualizer writes the spectrogram of the first captured channel next to
// the capture. The image gets its own index, independent of the capture's.
type Visualizer struct {
	renderer *Renderer
	logger   *slog.Logger
}

func NewVisualizer(config Config, options ...func(v *Visualizer)) (*Visualizer, error) {
	renderer, err := NewRenderer(config)
	if err != nil {
		return nil, err
	}

	v := Visualizer{
		renderer: renderer,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&v)
	}

	return &v, nil
}

// Visualize returns the path of the written PNG.
func (v *Visualizer) Visualize(dir string, d descriptor.Descriptor, channels [][]complex64) (string, error) {
	if len(channels) == 0 || len(channels[0]) == 0 {
		return "", ErrNoSamples
	}

	img, err := v.renderer.Render(d, channels[0])
	if err != nil {
		return "", err
	}

	f, indexed, err := descriptor.CreateSpectrogram(dir, d)
	if err != nil {
		return "", fmt.Errorf("creating spectrogram file: %w", err)
	}

	if err = png.Encode(f, img); err != nil {
		err = errors.Join(fmt.Errorf("encoding spectrogram: %w", err), f.Close(), os.Remove(f.Name()))
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", fmt.Errorf("closing spectrogram file: %w", err)
	}

	v.logger.Debug("spectrogram written",
		slog.String("path", f.Name()),
		slog.Int("index", int(indexed.Index())),
		slog.Int("width", img.Bounds().Dx()),
		slog.Int("height", img.Bounds().Dy()))

	return f.Name(), nil
}

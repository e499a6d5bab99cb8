package app

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/josefcohen96/usrp/internal/capture"
	"github.com/josefcohen96/usrp/internal/descriptor"
	"github.com/josefcohen96/usrp/internal/iq"
	"github.com/josefcohen96/usrp/internal/spectrogram"
)

func (a *App) newCaptureCommand() *cobra.Command {
	var req capture.Request

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Receive samples into a new capture file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			radio, err := a.newRadio()
			if err != nil {
				return err
			}
			defer a.closeRadio(radio)

			dir := a.config.Capture.DataDirectory
			if err = os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating data directory: %w", err)
			}

			options := []capture.Option{capture.WithLogger(a.logger)}
			if a.config.Capture.Spectrogram.Enabled {
				v, err := spectrogram.NewVisualizer(a.config.Capture.Spectrogram.Config, spectrogram.WithLogger(a.logger))
				if err != nil {
					return fmt.Errorf("creating visualizer: %w", err)
				}
				options = append(options, capture.WithVisualizer(v))
			}

			result, err := capture.NewCapture(radio, dir, options...).Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.Path)
			if result.SpectrogramPath != "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.SpectrogramPath)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&req.FrequencyHz, "frequency", 0, "Center frequency in Hz")
	cmd.Flags().Float64Var(&req.SamplingRateHz, "sampling-rate", 0, "Sampling rate in Hz")
	cmd.Flags().Float64Var(&req.DurationSeconds, "sample-time", 0, "Duration of the capture in seconds")
	cmd.Flags().Float64Var(&req.GainDb, "gain", 0, "RX gain in dB")
	cmd.Flags().IntSliceVar(&req.Channels, "channels", nil, "Receive channels, e.g. 0 or 0,1")

	for _, name := range []string{"frequency", "sampling-rate", "sample-time", "gain", "channels"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func (a *App) newReplayCommand() *cobra.Command {
	var channels []int

	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Transmit a capture file with the parameters its name encodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			radio, err := a.newRadio()
			if err != nil {
				return err
			}
			defer a.closeRadio(radio)

			result, err := capture.NewReplay(radio, capture.WithLogger(a.logger)).Run(cmd.Context(), args[0], channels)
			if err != nil {
				return err
			}

			a.logger.Info("replay complete",
				slog.String("descriptor", result.Descriptor.String()),
				slog.String("samples", humanize.Comma(int64(result.Samples))),
				slog.Duration("duration", result.Duration))
			return nil
		},
	}

	cmd.Flags().IntSliceVar(&channels, "channels", nil, "Transmit channels, e.g. 0 or 0,1")
	_ = cmd.MarkFlagRequired("channels")

	return cmd
}

func (a *App) newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the capture parameters a file name encodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := inspect(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

// inspect decodes a capture file name and describes the file and its
// spectrogram, if one was rendered.
func inspect(path string) (string, error) {
	d, err := descriptor.Decode(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("inspecting capture: %w", err)
	}

	samples := info.Size() / iq.SampleSize
	duration := time.Duration(math.Round(float64(samples) / d.SamplingRateHz() * float64(time.Second)))

	spectrogramPath := filepath.Join(filepath.Dir(path), d.SpectrogramName())
	if _, err = os.Stat(spectrogramPath); err != nil {
		spectrogramPath = "none"
	}

	return fmt.Sprintf(`file:          %s
frequency:     %s
sampling rate: %s
gain:          %s dB
index:         %d
size:          %s
samples:       %s
duration:      %s
spectrogram:   %s
`,
		path,
		humanize.SIWithDigits(d.CenterFrequencyHz(), 3, "Hz"),
		humanize.SIWithDigits(d.SamplingRateHz(), 3, "S/s"),
		descriptor.FormatFloat(d.GainDb()),
		d.Index(),
		humanize.IBytes(uint64(info.Size())),
		humanize.Comma(samples),
		duration,
		spectrogramPath), nil
}

// Package uhd drives a USRP through the UHD example tools. Every receive or
// transmit starts one tool process that exchanges an fc32 file with us.
package uhd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/josefcohen96/usrp/internal/iq"
	"github.com/josefcohen96/usrp/internal/sdr"
)

const (
	RxRuntime = "rx_samples_to_file"
	TxRuntime = "tx_samples_from_file"
	Device    = "USRP"

	// outputTail is the number of tool output lines kept for error reports
	outputTail = 5
)

// ErrBrokenPipe is returned when the tool output cannot be read
var ErrBrokenPipe = errors.New("broken pipe")

// WithLogger sets the logger for the radio
func WithLogger(logger *slog.Logger) func(r *Radio) {
	return func(r *Radio) {
		r.logger = logger.With(
			slog.String("device", Device),
			slog.String("args", r.config.Args),
		)
	}
}

// WithTempDir sets where sample files are exchanged with the tools, the
// system temp directory by default.
func WithTempDir(dir string) func(r *Radio) {
	return func(r *Radio) {
		r.tempDir = dir
	}
}

// Radio implements sdr.Radio on top of the UHD tools.
type Radio struct {
	config  *Config
	rxBin   string
	txBin   string
	tempDir string
	logger  *slog.Logger
}

// New locates both tools and returns a radio with a discard logger.
func New(config *Config, options ...func(r *Radio)) (*Radio, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	rxBin, err := FindRuntime(orDefault(config.RxRuntime, RxRuntime))
	if err != nil {
		return nil, sdr.NewRuntimeError(fmt.Sprintf("error finding runtime: %s", err))
	}

	txBin, err := FindRuntime(orDefault(config.TxRuntime, TxRuntime))
	if err != nil {
		return nil, sdr.NewRuntimeError(fmt.Sprintf("error finding runtime: %s", err))
	}

	r := Radio{
		config: config,
		rxBin:  rxBin,
		txBin:  txBin,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&r)
	}

	return &r, nil
}

func (r *Radio) Receive(ctx context.Context, req sdr.RxRequest) ([][]complex64, error) {
	dir, err := os.MkdirTemp(r.tempDir, "uhd-rx-*")
	if err != nil {
		return nil, fmt.Errorf("error creating work directory: %w", err)
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "rx.dat")
	args, err := r.config.RxArgs(req, file)
	if err != nil {
		return nil, err
	}

	if err = r.run(ctx, r.rxBin, args); err != nil {
		return nil, sdr.NewHardwareError(Device, "receive", err)
	}

	channels := make([][]complex64, len(req.Channels))
	for i, ch := range req.Channels {
		samples, err := readFile(ChannelFile(file, i, len(req.Channels)))
		if err != nil {
			return nil, sdr.NewHardwareError(Device, "receive", fmt.Errorf("channel %d: %w", ch, err))
		}
		if len(samples) < req.NumSamples {
			return nil, sdr.NewHardwareError(Device, "receive",
				fmt.Errorf("channel %d: %d of %d samples received", ch, len(samples), req.NumSamples))
		}
		channels[i] = samples[:req.NumSamples]
	}

	return channels, nil
}

func (r *Radio) Transmit(ctx context.Context, req sdr.TxRequest) error {
	dir, err := os.MkdirTemp(r.tempDir, "uhd-tx-*")
	if err != nil {
		return fmt.Errorf("error creating work directory: %w", err)
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "tx.dat")
	args, err := r.config.TxArgs(req, file)
	if err != nil {
		return err
	}

	if err = writeFile(file, req.Samples); err != nil {
		return fmt.Errorf("error writing transmit buffer: %w", err)
	}

	r.logger.Info("transmitting",
		slog.Int("samples", len(req.Samples)),
		slog.Duration("duration", req.Duration))

	if err = r.run(ctx, r.txBin, args); err != nil {
		return sdr.NewHardwareError(Device, "transmit", err)
	}

	return nil
}

func (r *Radio) Device() string {
	return Device
}

// Close is a no-op, the tools release the device when they exit.
func (r *Radio) Close() error {
	return nil
}

// run executes one tool and waits for it. Output lines are logged, the last
// few are attached to the error when the tool fails.
func (r *Radio) run(ctx context.Context, bin string, args []string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	r.logger.Debug("starting tool", slog.String("cmd", cmd.String()))

	output, err := startProcess(cmd)
	if err != nil {
		return fmt.Errorf("error starting command: %w", err)
	}
	defer output.Close()

	name := filepath.Base(bin)
	tail := make([]string, 0, outputTail)

	scanner := bufio.NewScanner(output)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		r.logger.Debug(fmt.Sprintf("%s >> %s", name, line))

		if len(tail) == outputTail {
			tail = tail[1:]
		}
		tail = append(tail, line)
	}

	readErr := scanner.Err()
	if readErr != nil && (isHangup(readErr) || errors.Is(readErr, fs.ErrClosed)) {
		readErr = nil
	}

	if err = cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("command canceled: %w", ctx.Err())
		}
		if len(tail) > 0 {
			return fmt.Errorf("command exited with error: %w: %s", err, strings.Join(tail, "; "))
		}
		return fmt.Errorf("command exited with error: %w", err)
	}

	if readErr != nil {
		return fmt.Errorf("%w: error reading output: %w", ErrBrokenPipe, readErr)
	}

	return nil
}

// ChannelFile returns the file the receive tool writes channel i of n to:
// the base name itself for one channel, "<stem>.<i><ext>" otherwise.
func ChannelFile(base string, i, n int) string {
	if n == 1 {
		return base
	}
	ext := filepath.Ext(base)
	return fmt.Sprintf("%s.%02d%s", strings.TrimSuffix(base, ext), i, ext)
}

func readFile(name string) ([]complex64, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return iq.NewReader(f).ReadAll()
}

func writeFile(name string, samples []complex64) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}

	w := iq.NewWriter(f)
	if err = w.Write(samples); err == nil {
		err = w.Flush()
	}

	return errors.Join(err, f.Close())
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

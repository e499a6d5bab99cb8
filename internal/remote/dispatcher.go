// Package remote runs the scanner program on a remote host over SSH. One
// dispatch writes the scan frequency to the scanner's scan file and starts the
// scanner with a command line holding only the options the operator set.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/josefcohen96/usrp/internal/descriptor"
	"github.com/josefcohen96/usrp/internal/scanner"
)

const (
	DefaultExecutable = "/home/pi/cariboulite/applications/scanner1/build/scanner1"
	DefaultScanFile   = "/home/pi/cariboulite/applications/scanner1/myscan.txt"

	// DefaultDwell and DefaultBandwidth fill the scan file line after the
	// frequency; the scanner reads them as they are.
	DefaultDwell     = 15
	DefaultBandwidth = 56000
)

// Command is the pair of shell commands sent in one execution.
type Command struct {
	Configure string // writes the scan file
	Invoke    string // starts the scanner
}

// Line joins both commands so the scanner only starts after the scan file was
// written.
func (c Command) Line() string {
	return c.Configure + " && " + c.Invoke
}

// Result is the outcome of one dispatch.
type Result struct {
	Command Command
	Output
}

// WithLogger sets the logger for the dispatcher
func WithLogger(logger *slog.Logger) func(d *Dispatcher) {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithExecutable sets the scanner program path on the remote host
func WithExecutable(path string) func(d *Dispatcher) {
	return func(d *Dispatcher) {
		d.executable = path
	}
}

// WithScanFile sets the scan file path on the remote host
func WithScanFile(path string) func(d *Dispatcher) {
	return func(d *Dispatcher) {
		d.scanFile = path
	}
}

// WithScanParameters sets the dwell and bandwidth written after the frequency
func WithScanParameters(dwell, bandwidth int) func(d *Dispatcher) {
	return func(d *Dispatcher) {
		d.dwell = dwell
		d.bandwidth = bandwidth
	}
}

// Dispatcher builds and runs scanner commands. It keeps no connection
// between calls.
type Dispatcher struct {
	connector  Connector
	executable string
	scanFile   string
	dwell      int
	bandwidth  int
	logger     *slog.Logger
}

func NewDispatcher(connector Connector, options ...func(d *Dispatcher)) *Dispatcher {
	d := Dispatcher{
		connector:  connector,
		executable: DefaultExecutable,
		scanFile:   DefaultScanFile,
		dwell:      DefaultDwell,
		bandwidth:  DefaultBandwidth,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&d)
	}

	return &d
}

// BuildCommand derives the scan frequency in kHz from the source capture name
// and renders the scanner options. The source option itself is never passed
// to the scanner.
func (d *Dispatcher) BuildCommand(source string, opts *scanner.OptionSet) (Command, error) {
	khz, err := descriptor.ToKHzFromToken(source)
	if err != nil {
		return Command{}, err
	}

	configure := fmt.Sprintf("echo '%s %d %d' > %s",
		descriptor.FormatFloat(khz), d.dwell, d.bandwidth, quote(d.scanFile))

	tokens := []string{quote(d.executable)}
	for _, arg := range scanner.Filter(opts.Without(scanner.SourceOption)) {
		tokens = append(tokens, quote(arg))
	}

	return Command{Configure: configure, Invoke: strings.Join(tokens, " ")}, nil
}

// Dispatch runs the scanner once on the endpoint and returns what it printed.
// A scanner exiting with a non-zero status is reported in the result. The
// shell session is closed before Dispatch returns, whatever the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, endpoint Endpoint, credentials Credentials, source string, opts *scanner.OptionSet) (Result, error) {
	cmd, err := d.BuildCommand(source, opts)
	if err != nil {
		return Result{}, err
	}

	shell, err := d.connector.Connect(ctx, endpoint, credentials)
	if err != nil {
		return Result{}, transportError(endpoint.Host, "connect", err)
	}
	defer func() {
		if err := shell.Close(); err != nil {
			d.logger.Warn(fmt.Sprintf("error closing shell session: %s", err), slog.String("host", endpoint.Host))
		}
	}()

	d.logger.Info("dispatching", slog.String("host", endpoint.Host), slog.String("command", cmd.Line()))

	out, err := shell.Run(ctx, cmd.Line())
	if err != nil {
		return Result{}, transportError(endpoint.Host, "execute", err)
	}

	if out.ExitStatus != 0 {
		d.logger.Warn("scanner exited with non-zero status",
			slog.String("host", endpoint.Host),
			slog.Int("status", out.ExitStatus),
			slog.String("stderr", strings.TrimSpace(out.Stderr)))
	}

	return Result{Command: cmd, Output: out}, nil
}

// transportError keeps typed errors from the connector and wraps the rest.
func transportError(host, op string, err error) error {
	var authErr *RemoteAuthenticationError
	var transportErr *RemoteTransportError
	if errors.As(err, &authErr) || errors.As(err, &transportErr) {
		return err
	}
	return NewRemoteTransportError(host, op, err)
}

// quote leaves plain tokens alone and single-quotes anything a shell would
// interpret.
func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, needsQuoting) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuoting(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("@%+=:,./-_", r)
}

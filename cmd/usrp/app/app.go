package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/josefcohen96/usrp/internal/sdr"
	"github.com/josefcohen96/usrp/internal/sdr/mock"
	"github.com/josefcohen96/usrp/internal/sdr/uhd"
)

// App is the usrp command line. The configuration and the logger are set up
// before any subcommand runs.
type App struct {
	stdout io.Writer

	configPath string
	logLevel   string

	level  slog.LevelVar
	config *Config
	logger *slog.Logger
	closer io.Closer

	root *cobra.Command
}

func New(stdout io.Writer) *App {
	a := App{
		stdout: stdout,
		closer: io.NopCloser(nil),
	}
	a.logger = slog.New(slog.NewTextHandler(stdout, &slog.HandlerOptions{Level: &a.level}))

	a.root = &cobra.Command{
		Use:   "usrp",
		Short: "Capture, replay and scan radio samples with a USRP",
		Long: `usrp records IQ samples from a USRP into files named after the capture
parameters, transmits such files back and starts the remote scanner on a capture.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	a.root.SetOut(stdout)

	a.root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to the configuration file")
	a.root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	a.root.AddCommand(
		a.newCaptureCommand(),
		a.newReplayCommand(),
		a.newScanCommand(),
		a.newInspectCommand(),
		a.newDiscoverCommand(),
	)

	return &a
}

// Logger returns the application logger, configured once a command ran.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

func (a *App) Execute(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.root.ExecuteContext(ctx)
}

func (a *App) Close() error {
	return a.closer.Close()
}

func (a *App) setup(cmd *cobra.Command, _ []string) error {
	config, err := LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration file: %w", err)
	}

	if a.logLevel != "" {
		config.Settings.LogLevel = a.logLevel
	}
	if err = a.level.UnmarshalText([]byte(config.Settings.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", config.Settings.LogLevel)
	}

	a.config = config
	a.logger, a.closer = newLogger(a.stdout, config.Settings, &a.level)
	a.logger.Debug("configuration loaded", slog.String("path", a.configPath), slog.String("command", cmd.Name()))

	return nil
}

func (a *App) newRadio() (sdr.Radio, error) {
	switch a.config.Radio.Backend {
	case BackendMock:
		return mock.New(), nil

	default:
		r, err := uhd.New(&a.config.Radio.UHD, uhd.WithLogger(a.logger))
		if err != nil {
			return nil, fmt.Errorf("creating USRP radio: %w", err)
		}
		return r, nil
	}
}

func (a *App) closeRadio(radio sdr.Radio) {
	if err := radio.Close(); err != nil {
		a.logger.Warn(fmt.Sprintf("error closing radio: %s", err), slog.String("device", radio.Device()))
	}
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/josefcohen96/usrp/internal/remote"
	"github.com/josefcohen96/usrp/internal/scanner"
)

func (a *App) newScanCommand() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the remote scanner at the frequency of a capture",
		Long: `scan writes the capture's center frequency to the scanner's scan file on the
remote host and starts the scanner there. Only scanner options given on the
command line are passed on, the scanner applies its own defaults to the rest.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := scanOptions(cmd.Flags())
			if err != nil {
				return err
			}

			result, err := a.newDispatcher().Dispatch(cmd.Context(),
				a.config.Remote.Endpoint(), a.config.Remote.Credentials(), source, opts)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprint(cmd.OutOrStdout(), result.Stdout)
			if result.ExitStatus != 0 {
				return fmt.Errorf("scanner exited with status %d", result.ExitStatus)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, scanner.SourceOption, "", "Capture file whose center frequency is scanned")
	_ = cmd.MarkFlagRequired(scanner.SourceOption)

	for _, o := range scanner.Options {
		switch o.Kind {
		case scanner.KindBool:
			cmd.Flags().Bool(o.CLI, false, o.Usage)
		case scanner.KindInt:
			cmd.Flags().Int64(o.CLI, 0, o.Usage)
		case scanner.KindFloat:
			cmd.Flags().Float64(o.CLI, 0, o.Usage)
		default:
			cmd.Flags().String(o.CLI, "", o.Usage)
		}
	}

	return cmd
}

// scanOptions builds the scanner option set from the flags the operator set,
// in catalogue order. Flags left alone stay absent.
func scanOptions(flags *pflag.FlagSet) (*scanner.OptionSet, error) {
	opts := scanner.NewOptionSet()

	for _, o := range scanner.Options {
		if !flags.Changed(o.CLI) {
			continue
		}

		var v scanner.Value
		switch o.Kind {
		case scanner.KindBool:
			b, err := flags.GetBool(o.CLI)
			if err != nil {
				return nil, err
			}
			v = scanner.Flag(b)
		case scanner.KindInt:
			i, err := flags.GetInt64(o.CLI)
			if err != nil {
				return nil, err
			}
			v = scanner.Int(i)
		case scanner.KindFloat:
			f, err := flags.GetFloat64(o.CLI)
			if err != nil {
				return nil, err
			}
			v = scanner.Float(f)
		default:
			s, err := flags.GetString(o.CLI)
			if err != nil {
				return nil, err
			}
			v = scanner.String(s)
		}

		opts.Set(o.Name, v)
	}

	if err := scanner.Validate(opts); err != nil {
		return nil, err
	}

	return opts, nil
}

func (a *App) newDispatcher() *remote.Dispatcher {
	connectorOptions := []func(c *remote.SSHConnector){remote.WithConnectorLogger(a.logger)}
	if a.config.Remote.MDNS {
		connectorOptions = append(connectorOptions,
			remote.WithResolver(remote.MDNSResolver{Timeout: time.Duration(a.config.Remote.DiscoveryTimeout)}))
	}

	return remote.NewDispatcher(remote.NewSSHConnector(connectorOptions...),
		remote.WithLogger(a.logger),
		remote.WithExecutable(a.config.Remote.Executable),
		remote.WithScanFile(a.config.Remote.ScanFile),
		remote.WithScanParameters(a.config.Remote.Dwell, a.config.Remote.Bandwidth))
}

func (a *App) newDiscoverCommand() *cobra.Command {
	var service string

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List hosts advertising a service on the local link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			timeout := time.Duration(a.config.Remote.DiscoveryTimeout)
			if timeout <= 0 {
				timeout = remote.DefaultDiscoveryTimeout
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			a.logger.Debug("browsing", slog.String("service", service), slog.Duration("timeout", timeout))

			hosts, err := remote.Discover(ctx, service)
			if err != nil {
				return fmt.Errorf("discovering hosts: %w", err)
			}

			for _, h := range hosts {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\t%v\n", h.Instance, h.Hostname, h.Port, h.Addresses)
			}
			if len(hosts) == 0 {
				a.logger.Info("no hosts found", slog.String("service", service))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", remote.SSHService, "Service type to browse for")

	return cmd
}

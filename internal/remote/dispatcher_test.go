package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/josefcohen96/usrp/internal/descriptor"
	"github.com/josefcohen96/usrp/internal/scanner"
)

type fakeShell struct {
	commands []string
	output   Output
	err      error
	panics   bool
	closed   int
}

func (s *fakeShell) Run(_ context.Context, command string) (Output, error) {
	s.commands = append(s.commands, command)
	if s.panics {
		panic("session dropped")
	}
	return s.output, s.err
}

func (s *fakeShell) Close() error {
	s.closed++
	return nil
}

type fakeConnector struct {
	shell *fakeShell
	err   error

	endpoint    Endpoint
	credentials Credentials
}

func (c *fakeConnector) Connect(_ context.Context, endpoint Endpoint, credentials Credentials) (Shell, error) {
	c.endpoint, c.credentials = endpoint, credentials
	if c.err != nil {
		return nil, c.err
	}
	return c.shell, nil
}

const source = "samples_1.0Mhz_900.0Mhz_10.0dB_1.dat"

func scanOptions() *scanner.OptionSet {
	opts := scanner.NewOptionSet()
	opts.Set(scanner.SourceOption, scanner.String(source))
	opts.Set("nslots", scanner.Int(10))
	opts.Set("fscanfile", scanner.String("/home/pi/myscan.txt"))
	opts.Set("syscode", scanner.Absent)
	opts.Set("v", scanner.String("trace"))
	opts.Set("pwrmeter", scanner.Flag(true))
	opts.Set("corrplotena", scanner.Flag(false))
	return opts
}

func TestDispatcher_BuildCommand(t *testing.T) {
	d := NewDispatcher(&fakeConnector{})

	cmd, err := d.BuildCommand(source, scanOptions())
	if err != nil {
		t.Fatalf("BuildCommand() error = %v", err)
	}

	if expected := "echo '900000.0 15 56000' > /home/pi/cariboulite/applications/scanner1/myscan.txt"; cmd.Configure != expected {
		t.Errorf("Configure = %q, expected %q", cmd.Configure, expected)
	}

	expected := "/home/pi/cariboulite/applications/scanner1/build/scanner1 -nslots 10 -fscanfile /home/pi/myscan.txt -v trace -pwrmeter"
	if cmd.Invoke != expected {
		t.Errorf("Invoke = %q, expected %q", cmd.Invoke, expected)
	}

	if line := cmd.Line(); line != cmd.Configure+" && "+cmd.Invoke {
		t.Errorf("Line() = %q", line)
	}
}

func TestDispatcher_BuildCommandOptions(t *testing.T) {
	d := NewDispatcher(&fakeConnector{},
		WithExecutable("/opt/scanner/bin/scanner"),
		WithScanFile("/tmp/scan list.txt"),
		WithScanParameters(30, 12500))

	opts := scanner.NewOptionSet()
	opts.Set("detmode", scanner.String("a b;rm -rf"))
	opts.Set("syscode", scanner.String("it's"))
	opts.Set("clipth", scanner.Float(0.5))

	cmd, err := d.BuildCommand("/data/samples_2.0Mhz_2400.0Mhz_0.0dB_3.dat", opts)
	if err != nil {
		t.Fatalf("BuildCommand() error = %v", err)
	}

	if expected := "echo '2400000.0 30 12500' > '/tmp/scan list.txt'"; cmd.Configure != expected {
		t.Errorf("Configure = %q, expected %q", cmd.Configure, expected)
	}
	if expected := `/opt/scanner/bin/scanner -detmode 'a b;rm -rf' -syscode 'it'\''s' -clipth 0.5`; cmd.Invoke != expected {
		t.Errorf("Invoke = %q, expected %q", cmd.Invoke, expected)
	}
}

func TestDispatcher_BuildCommandMalformedSource(t *testing.T) {
	conn := &fakeConnector{shell: &fakeShell{}}
	d := NewDispatcher(conn)

	_, err := d.Dispatch(context.Background(), Endpoint{Host: DefaultHost}, Credentials{User: DefaultUser}, "capture.dat", nil)

	var malformed *descriptor.MalformedDescriptorError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedDescriptorError, got %v", err)
	}
	if len(conn.shell.commands) != 0 {
		t.Error("nothing must run for a malformed source")
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	shell := &fakeShell{output: Output{Stdout: "scanning 900000 kHz\nslot 1: idle\n"}}
	conn := &fakeConnector{shell: shell}
	d := NewDispatcher(conn)

	endpoint := Endpoint{Host: DefaultHost}
	credentials := Credentials{User: DefaultUser, Password: "raspberry"}

	result, err := d.Dispatch(context.Background(), endpoint, credentials, source, scanOptions())
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if result.Stdout != shell.output.Stdout {
		t.Errorf("Stdout = %q, expected it verbatim", result.Stdout)
	}
	if len(shell.commands) != 1 || shell.commands[0] != result.Command.Line() {
		t.Errorf("expected a single execution of %q, got %q", result.Command.Line(), shell.commands)
	}
	if shell.closed != 1 {
		t.Errorf("shell closed %d times, expected 1", shell.closed)
	}
	if conn.endpoint != endpoint || conn.credentials != credentials {
		t.Errorf("connector got %+v %+v", conn.endpoint, conn.credentials)
	}
}

func TestDispatcher_NonZeroExit(t *testing.T) {
	shell := &fakeShell{output: Output{Stdout: "partial\n", Stderr: "no radio\n", ExitStatus: 2}}
	d := NewDispatcher(&fakeConnector{shell: shell})

	result, err := d.Dispatch(context.Background(), Endpoint{Host: DefaultHost}, Credentials{User: DefaultUser}, source, nil)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if result.ExitStatus != 2 || result.Stdout != "partial\n" {
		t.Errorf("unexpected result: %+v", result)
	}
	if shell.closed != 1 {
		t.Errorf("shell closed %d times, expected 1", shell.closed)
	}
}

func TestDispatcher_ScopedRelease(t *testing.T) {
	t.Run("execute error", func(t *testing.T) {
		shell := &fakeShell{err: errors.New("connection reset")}
		d := NewDispatcher(&fakeConnector{shell: shell})

		_, err := d.Dispatch(context.Background(), Endpoint{Host: DefaultHost}, Credentials{User: DefaultUser}, source, nil)

		var transportErr *RemoteTransportError
		if !errors.As(err, &transportErr) {
			t.Errorf("expected RemoteTransportError, got %v", err)
		}
		if shell.closed != 1 {
			t.Errorf("shell closed %d times, expected 1", shell.closed)
		}
	})

	t.Run("panic", func(t *testing.T) {
		shell := &fakeShell{panics: true}
		d := NewDispatcher(&fakeConnector{shell: shell})

		func() {
			defer func() { _ = recover() }()
			_, _ = d.Dispatch(context.Background(), Endpoint{Host: DefaultHost}, Credentials{User: DefaultUser}, source, nil)
		}()

		if shell.closed != 1 {
			t.Errorf("shell closed %d times, expected 1", shell.closed)
		}
	})
}

func TestDispatcher_ConnectErrors(t *testing.T) {
	testCases := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{
			name: "authentication",
			err:  NewRemoteAuthenticationError(DefaultHost, DefaultUser, errors.New("denied")),
			check: func(err error) bool {
				var e *RemoteAuthenticationError
				return errors.As(err, &e)
			},
		},
		{
			name: "untyped",
			err:  errors.New("no route to host"),
			check: func(err error) bool {
				var e *RemoteTransportError
				return errors.As(err, &e) && e.Op == "connect"
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDispatcher(&fakeConnector{err: tc.err})

			_, err := d.Dispatch(context.Background(), Endpoint{Host: DefaultHost}, Credentials{User: DefaultUser}, source, nil)
			if !tc.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestQuote(t *testing.T) {
	testCases := []struct {
		in, expected string
	}{
		{"-nslots", "-nslots"},
		{"20.0", "20.0"},
		{"/home/pi/my_scan.txt", "/home/pi/my_scan.txt"},
		{"", "''"},
		{"a b", "'a b'"},
		{"$HOME", "'$HOME'"},
		{"it's", `'it'\''s'`},
	}

	for _, tc := range testCases {
		if got := quote(tc.in); got != tc.expected {
			t.Errorf("quote(%q) = %q, expected %q", tc.in, got, tc.expected)
		}
	}
}

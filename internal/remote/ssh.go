package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/ssh"
)

const (
	DefaultHost = "raspberrypi02.local"
	DefaultUser = "pi"
	DefaultPort = 22
)

// Endpoint is the remote host running the scanner.
type Endpoint struct {
	Host string
	Port int
}

// Address returns host:port, with the default SSH port when none is set.
func (e Endpoint) Address() string {
	port := e.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(port))
}

// Credentials authenticate a shell session. Password and key may be combined,
// at least one is required.
type Credentials struct {
	User     string
	Password string
	KeyPath  string
}

// Output is what a remote command produced.
type Output struct {
	Stdout     string
	Stderr     string
	ExitStatus int
}

// Shell runs commands on a connected host.
type Shell interface {
	Run(ctx context.Context, command string) (Output, error)
	Close() error
}

// Connector opens shell sessions.
type Connector interface {
	Connect(ctx context.Context, endpoint Endpoint, credentials Credentials) (Shell, error)
}

// Resolver turns a host name into an address the dialer can use.
type Resolver interface {
	Resolve(ctx context.Context, host string) (string, error)
}

// WithConnectorLogger sets the logger for the connector
func WithConnectorLogger(logger *slog.Logger) func(c *SSHConnector) {
	return func(c *SSHConnector) {
		c.logger = logger
	}
}

// WithResolver resolves ".local" names through r instead of the system
// resolver.
func WithResolver(r Resolver) func(c *SSHConnector) {
	return func(c *SSHConnector) {
		c.resolver = r
	}
}

// SSHConnector opens one SSH connection per session. Host keys are not
// verified, the scanner hosts are lab devices reinstalled at will.
type SSHConnector struct {
	resolver Resolver
	logger   *slog.Logger
}

func NewSSHConnector(options ...func(c *SSHConnector)) *SSHConnector {
	c := SSHConnector{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

func (c *SSHConnector) Connect(ctx context.Context, endpoint Endpoint, credentials Credentials) (Shell, error) {
	auth, err := authMethods(credentials)
	if err != nil {
		return nil, NewRemoteAuthenticationError(endpoint.Host, credentials.User, err)
	}

	host := endpoint.Host
	if c.resolver != nil && IsLocal(host) {
		if host, err = c.resolver.Resolve(ctx, host); err != nil {
			return nil, NewRemoteTransportError(endpoint.Host, "resolve", err)
		}
		c.logger.Debug("resolved host", slog.String("host", endpoint.Host), slog.String("address", host))
	}

	addr := Endpoint{Host: host, Port: endpoint.Port}.Address()

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, NewRemoteTransportError(endpoint.Host, "dial", err)
	}

	config := &ssh.ClientConfig{
		User:            credentials.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		if isAuthFailure(err) {
			return nil, NewRemoteAuthenticationError(endpoint.Host, credentials.User, err)
		}
		return nil, NewRemoteTransportError(endpoint.Host, "handshake", err)
	}

	c.logger.Debug("connected", slog.String("host", endpoint.Host), slog.String("user", credentials.User))

	return &sshShell{host: endpoint.Host, client: ssh.NewClient(clientConn, chans, reqs)}, nil
}

func authMethods(credentials Credentials) ([]ssh.AuthMethod, error) {
	if credentials.User == "" {
		return nil, errors.New("no ssh user configured")
	}

	var auth []ssh.AuthMethod
	if credentials.Password != "" {
		auth = append(auth, ssh.Password(credentials.Password))
	}
	if credentials.KeyPath != "" {
		key, err := os.ReadFile(credentials.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("read ssh key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse ssh key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if len(auth) == 0 {
		return nil, errors.New("no ssh password or key configured")
	}

	return auth, nil
}

// isAuthFailure matches the handshake error x/crypto/ssh returns once every
// offered method has been rejected. x/crypto has no typed error for this, the
// text is checked against v0.45.0 by TestSSHConnector_AuthenticationFailure.
func isAuthFailure(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}

// IsLocal reports whether host is a link-local mDNS name.
func IsLocal(host string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSuffix(host, ".")), ".local")
}

type sshShell struct {
	host   string
	client *ssh.Client
}

// Run executes the command in a fresh session. A non-zero exit status is
// part of the output, not an error.
func (s *sshShell) Run(ctx context.Context, command string) (Output, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return Output{}, NewRemoteTransportError(s.host, "open session", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		return Output{}, NewRemoteTransportError(s.host, "execute", ctx.Err())
	}

	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		out.ExitStatus = exitErr.ExitStatus()
		return out, nil
	}
	if err != nil {
		return out, NewRemoteTransportError(s.host, "execute", err)
	}

	return out, nil
}

func (s *sshShell) Close() error {
	return s.client.Close()
}

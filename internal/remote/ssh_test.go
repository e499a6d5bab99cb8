package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

// startServer runs an SSH server on loopback that accepts pi/raspberry and
// answers every exec request with "ran: <command>". Commands containing
// "fail" exit with status 3.
func startServer(t *testing.T) Endpoint {
	t.Helper()

	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := ssh.NewSignerFromKey(key)
	if err != nil {
		t.Fatal(err)
	}

	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if c.User() == DefaultUser && string(password) == "raspberry" {
				return nil, nil
			}
			return nil, errors.New("access denied")
		},
	}
	config.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serve(conn, config)
		}
	}()

	host, port, _ := net.SplitHostPort(ln.Addr().String())
	p, _ := strconv.Atoi(port)
	return Endpoint{Host: host, Port: p}
}

func serve(conn net.Conn, config *ssh.ServerConfig) {
	defer conn.Close()

	_, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)

	for nc := range chans {
		if nc.ChannelType() != "session" {
			_ = nc.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}

		ch, requests, err := nc.Accept()
		if err != nil {
			continue
		}

		go func() {
			defer ch.Close()
			for req := range requests {
				if req.Type != "exec" {
					_ = req.Reply(false, nil)
					continue
				}

				var payload struct{ Command string }
				if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
					_ = req.Reply(false, nil)
					return
				}
				_ = req.Reply(true, nil)

				status := uint32(0)
				if strings.Contains(payload.Command, "fail") {
					status = 3
					_, _ = fmt.Fprint(ch.Stderr(), "scanner failed\n")
				}
				_, _ = fmt.Fprintf(ch, "ran: %s\n", payload.Command)
				_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
				return
			}
		}()
	}
}

func TestSSHConnector_Run(t *testing.T) {
	endpoint := startServer(t)

	shell, err := NewSSHConnector().Connect(context.Background(), endpoint, Credentials{User: DefaultUser, Password: "raspberry"})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer shell.Close()

	out, err := shell.Run(context.Background(), "echo '900000.0 15 56000' > /tmp/myscan.txt && scanner1 -v trace")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if expected := "ran: echo '900000.0 15 56000' > /tmp/myscan.txt && scanner1 -v trace\n"; out.Stdout != expected {
		t.Errorf("Stdout = %q, expected %q", out.Stdout, expected)
	}
	if out.ExitStatus != 0 {
		t.Errorf("ExitStatus = %d, expected 0", out.ExitStatus)
	}

	// sessions are per command, the connection stays usable
	out, err = shell.Run(context.Background(), "fail now")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.ExitStatus != 3 || out.Stderr != "scanner failed\n" {
		t.Errorf("unexpected output: %+v", out)
	}
}

func TestSSHConnector_AuthenticationFailure(t *testing.T) {
	endpoint := startServer(t)

	_, err := NewSSHConnector().Connect(context.Background(), endpoint, Credentials{User: DefaultUser, Password: "wrong"})

	var authErr *RemoteAuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected RemoteAuthenticationError, got %v", err)
	}
	if authErr.User != DefaultUser {
		t.Errorf("User = %q, expected %q", authErr.User, DefaultUser)
	}
	// the library's wording is what isAuthFailure relies on
	if !isAuthFailure(authErr.Err) {
		t.Errorf("unexpected handshake error text: %v", authErr.Err)
	}
}

func TestIsAuthFailure(t *testing.T) {
	testCases := []struct {
		err      string
		expected bool
	}{
		{"ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password], no supported methods remain", true},
		{"ssh: handshake failed: EOF", false},
		{"ssh: handshake failed: ssh: no common algorithm for host key", false},
	}

	for _, tc := range testCases {
		if got := isAuthFailure(errors.New(tc.err)); got != tc.expected {
			t.Errorf("isAuthFailure(%q) = %v, expected %v", tc.err, got, tc.expected)
		}
	}
}

func TestSSHConnector_MissingCredentials(t *testing.T) {
	testCases := []struct {
		name        string
		credentials Credentials
	}{
		{"no user", Credentials{Password: "raspberry"}},
		{"no password or key", Credentials{User: DefaultUser}},
		{"missing key file", Credentials{User: DefaultUser, KeyPath: "/nonexistent/id_ed25519"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSSHConnector().Connect(context.Background(), Endpoint{Host: "127.0.0.1"}, tc.credentials)

			var authErr *RemoteAuthenticationError
			if !errors.As(err, &authErr) {
				t.Errorf("expected RemoteAuthenticationError, got %v", err)
			}
		})
	}
}

func TestSSHConnector_TransportFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	_ = ln.Close()

	_, err = NewSSHConnector().Connect(context.Background(),
		Endpoint{Host: "127.0.0.1", Port: addr.Port},
		Credentials{User: DefaultUser, Password: "raspberry"})

	var transportErr *RemoteTransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected RemoteTransportError, got %v", err)
	}
	if transportErr.Op != "dial" {
		t.Errorf("Op = %q, expected dial", transportErr.Op)
	}
}

type staticResolver struct {
	addr string
	err  error
}

func (r staticResolver) Resolve(context.Context, string) (string, error) {
	return r.addr, r.err
}

func TestSSHConnector_Resolver(t *testing.T) {
	endpoint := startServer(t)

	connector := NewSSHConnector(WithResolver(staticResolver{addr: endpoint.Host}))
	shell, err := connector.Connect(context.Background(),
		Endpoint{Host: DefaultHost, Port: endpoint.Port},
		Credentials{User: DefaultUser, Password: "raspberry"})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	_ = shell.Close()

	connector = NewSSHConnector(WithResolver(staticResolver{err: errors.New("not found")}))
	_, err = connector.Connect(context.Background(),
		Endpoint{Host: DefaultHost, Port: endpoint.Port},
		Credentials{User: DefaultUser, Password: "raspberry"})

	var transportErr *RemoteTransportError
	if !errors.As(err, &transportErr) || transportErr.Op != "resolve" {
		t.Errorf("expected resolve RemoteTransportError, got %v", err)
	}
}

func TestEndpoint_Address(t *testing.T) {
	testCases := []struct {
		endpoint Endpoint
		expected string
	}{
		{Endpoint{Host: DefaultHost}, "raspberrypi02.local:22"},
		{Endpoint{Host: "10.0.0.7", Port: 2222}, "10.0.0.7:2222"},
		{Endpoint{Host: "fe80::1"}, "[fe80::1]:22"},
	}

	for _, tc := range testCases {
		if got := tc.endpoint.Address(); got != tc.expected {
			t.Errorf("Address() = %q, expected %q", got, tc.expected)
		}
	}
}

func TestIsLocal(t *testing.T) {
	testCases := []struct {
		host     string
		expected bool
	}{
		{"raspberrypi02.local", true},
		{"RaspberryPi02.Local.", true},
		{"raspberrypi02.lan", false},
		{"192.168.1.20", false},
		{"local", false},
	}

	for _, tc := range testCases {
		if got := IsLocal(tc.host); got != tc.expected {
			t.Errorf("IsLocal(%q) = %v, expected %v", tc.host, got, tc.expected)
		}
	}
}

func TestLookup(t *testing.T) {
	hosts := []Host{
		{Hostname: "other.local.", Addresses: []net.IP{net.ParseIP("10.0.0.1")}},
		{Hostname: "raspberrypi02.local.", Addresses: []net.IP{net.ParseIP("fe80::2"), net.ParseIP("192.168.1.20")}},
	}

	addr, ok := lookup(hosts, "RaspberryPi02.local")
	if !ok || addr != "192.168.1.20" {
		t.Errorf("lookup() = %q, %v, expected the IPv4 address", addr, ok)
	}

	if _, ok = lookup(hosts, "missing.local"); ok {
		t.Error("lookup() found a missing host")
	}
}

package remote

import "fmt"

// RemoteAuthenticationError is returned when the remote host rejects the
// credentials or no usable credentials were given.
type RemoteAuthenticationError struct {
	Host string
	User string
	Err  error
}

func NewRemoteAuthenticationError(host, user string, err error) *RemoteAuthenticationError {
	return &RemoteAuthenticationError{Host: host, User: user, Err: err}
}

func (e *RemoteAuthenticationError) Error() string {
	return fmt.Sprintf("authentication as %s@%s failed: %s", e.User, e.Host, e.Err)
}

func (e *RemoteAuthenticationError) Unwrap() error {
	return e.Err
}

// RemoteTransportError covers every other failure to reach the host or to
// run the command on it.
type RemoteTransportError struct {
	Host string
	Op   string
	Err  error
}

func NewRemoteTransportError(host, op string, err error) *RemoteTransportError {
	return &RemoteTransportError{Host: host, Op: op, Err: err}
}

func (e *RemoteTransportError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Host, e.Err)
}

func (e *RemoteTransportError) Unwrap() error {
	return e.Err
}

//go:build !windows

package uhd

import (
	"errors"
	"io"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
)

// startProcess runs the tool on a pseudo terminal so its progress output is
// line buffered. Both stdout and stderr arrive on the returned reader.
func startProcess(cmd *exec.Cmd) (io.ReadCloser, error) {
	return pty.Start(cmd)
}

// isHangup reports the error a pty master returns once the child has exited.
func isHangup(err error) bool {
	return errors.Is(err, syscall.EIO)
}

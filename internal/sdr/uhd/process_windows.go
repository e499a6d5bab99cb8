//go:build windows

package uhd

import (
	"io"
	"os/exec"
)

func startProcess(cmd *exec.Cmd) (io.ReadCloser, error) {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = cmd.Stdout

	if err = cmd.Start(); err != nil {
		return nil, err
	}

	return stdout, nil
}

func isHangup(error) bool {
	return false
}

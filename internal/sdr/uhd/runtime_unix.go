//go:build !windows

package uhd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// examplesDirs are the places distribution packages install the UHD example
// tools to when they are not on PATH.
var examplesDirs = []string{
	"/usr/lib/uhd/examples",
	"/usr/local/lib/uhd/examples",
	"/usr/libexec/uhd/examples",
	"/usr/lib/x86_64-linux-gnu/uhd/examples",
	"/usr/lib/aarch64-linux-gnu/uhd/examples",
}

// FindRuntime resolves a tool name to an executable path.
func FindRuntime(runtime string) (string, error) {
	if filepath.IsAbs(runtime) {
		if _, err := os.Stat(runtime); err != nil {
			return "", fmt.Errorf("failed to find binary '%s': %w", runtime, err)
		}
		return runtime, nil
	}

	binPath, err := exec.LookPath(runtime)
	if err == nil {
		return binPath, nil
	}

	for _, dir := range examplesDirs {
		binPath := filepath.Join(dir, runtime)
		if info, err := os.Stat(binPath); err == nil && !info.IsDir() {
			return binPath, nil
		}
	}

	return "", fmt.Errorf("failed to find binary '%s': %w", runtime, err)
}

//go:build windows

package uhd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

func FindRuntime(runtime string) (string, error) {
	if filepath.IsAbs(runtime) {
		if _, err := os.Stat(runtime); err != nil {
			return "", fmt.Errorf("failed to find binary '%s': %w", runtime, err)
		}
		return runtime, nil
	}

	if binPath, err := exec.LookPath(runtime); err == nil {
		return binPath, nil
	}

	lookup := []string{}

	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	lookup = append(lookup, filepath.Dir(exePath))

	exePath, err = os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	lookup = append(lookup, exePath)

	patterns := []string{
		filepath.Join("bin", "*", "windows", "x64", fmt.Sprintf("%s.exe", runtime)),
		filepath.Join("lib", "uhd", "examples", fmt.Sprintf("%s.exe", runtime)),
	}

	if programFiles := os.Getenv("ProgramFiles"); programFiles != "" {
		lookup = append(lookup, filepath.Join(programFiles, "UHD"))
	}

	for _, exeDir := range lookup {
		for _, pattern := range patterns {
			matches, err := filepath.Glob(filepath.Join(exeDir, pattern))
			if err != nil || len(matches) == 0 {
				continue // continue to next pattern
			}

			binPath := matches[0]
			if _, err = os.Stat(binPath); err != nil {
				continue
			}

			return binPath, nil
		}
	}

	return "", fmt.Errorf("failed to find binary '%s'", runtime)
}

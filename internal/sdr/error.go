package sdr

import "fmt"

// ConfigError is returned when a radio request or backend configuration is invalid
type ConfigError struct {
	msg string
}

func NewConfigError(msg string) *ConfigError {
	return &ConfigError{msg}
}

func (e *ConfigError) Error() string {
	return e.msg
}

// HardwareError wraps any failure surfaced by the radio backend. It is not
// decomposed further.
type HardwareError struct {
	Device string
	Op     string
	Err    error
}

func NewHardwareError(device, op string, err error) *HardwareError {
	return &HardwareError{Device: device, Op: op, Err: err}
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("%s: %s failed: %s", e.Device, e.Op, e.Err)
}

func (e *HardwareError) Unwrap() error {
	return e.Err
}

// RuntimeError is returned when a backend's external runtime cannot be used
type RuntimeError struct {
	msg string
}

func NewRuntimeError(msg string) *RuntimeError {
	return &RuntimeError{msg}
}

func (e *RuntimeError) Error() string {
	return e.msg
}

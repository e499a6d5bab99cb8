package descriptor

import "fmt"

// MalformedDescriptorError is returned when a file name does not follow the
// samples_<rate>Mhz_<freq>Mhz_<gain>dB_<index>.dat format.
type MalformedDescriptorError struct {
	Token  string
	Reason string
	Err    error
}

func (e *MalformedDescriptorError) Error() string {
	return fmt.Sprintf("malformed descriptor %q: %s", e.Token, e.Reason)
}

func (e *MalformedDescriptorError) Unwrap() error {
	return e.Err
}

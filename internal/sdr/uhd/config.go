package uhd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/josefcohen96/usrp/internal/sdr"
)

const (
	// DefaultArgs selects the first B200 series device
	DefaultArgs = "type=b200"

	// SampleType is the only host sample format iq reads and writes
	SampleType = "float"

	ReferenceInternal Reference = "internal"
	ReferenceExternal Reference = "external"
	ReferenceMIMO     Reference = "mimo"
	ReferenceGPSDO    Reference = "gpsdo"

	WireFormatSC16 WireFormat = "sc16"
	WireFormatSC8  WireFormat = "sc8"
)

var (
	validReferences = map[Reference]struct{}{
		ReferenceInternal: {},
		ReferenceExternal: {},
		ReferenceMIMO:     {},
		ReferenceGPSDO:    {},
	}

	validWireFormats = map[WireFormat]struct{}{
		WireFormatSC16: {},
		WireFormatSC8:  {},
	}
)

type Reference string

func (r Reference) String() string {
	return string(r)
}

type WireFormat string

func (w WireFormat) String() string {
	return string(w)
}

type TimeDuration time.Duration

func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("uhd.TimeDuration: failed to parse: %s", err)
	}

	*d = TimeDuration(duration)
	return nil
}

func (d TimeDuration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Seconds formats the duration the way the UHD tools take it.
func (d TimeDuration) Seconds() string {
	return formatFloat(time.Duration(d).Seconds())
}

/*
Example: receive two channels of a B210 at 900 MHz
    config := uhd.Config{Args: "type=b200", Antenna: "RX2"}
    req := sdr.RxRequest{
        Tuning:     sdr.Tuning{CenterFrequencyHz: 900e6, SamplingRateHz: 1e6, GainDb: 10, Channels: []int{0, 1}},
        NumSamples: 1_000_000,
    }
    // Executes: rx_samples_to_file --args type=b200 --file rx.dat --type float --nsamps 1000000
    //           --rate 1000000 --freq 900000000 --gain 10 --channels 0,1 --ant RX2
*/

// Config is the configuration shared by `rx_samples_to_file` and
// `tx_samples_from_file`.
type Config struct {
	Args string `yaml:"args"` // --args device address, e.g. "type=b200" or "serial=30AD2C5"

	// Front end, optional
	Antenna    string       `yaml:"antenna"`    // --ant antenna selection
	Subdev     string       `yaml:"subdev"`     // --subdev subdevice specification
	Bandwidth  float64      `yaml:"bandwidth"`  // --bw analog frontend filter bandwidth (Hz)
	Reference  Reference    `yaml:"reference"`  // --ref clock reference
	WireFormat WireFormat   `yaml:"wireFormat"` // --wirefmt over the wire format
	Settling   TimeDuration `yaml:"settling"`   // --setup settling time before receiving

	// Tool names or paths, found on PATH when not absolute
	RxRuntime string `yaml:"rxRuntime"`
	TxRuntime string `yaml:"txRuntime"`
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Args) == "" {
		return sdr.NewConfigError("uhd.Config: device args must not be empty")
	}
	if c.Bandwidth < 0 {
		return sdr.NewConfigError(fmt.Sprintf("uhd.Config: bandwidth must not be negative: %v given", c.Bandwidth))
	}
	if c.Settling < 0 {
		return sdr.NewConfigError(fmt.Sprintf("uhd.Config: settling time must not be negative: %s given", time.Duration(c.Settling)))
	}

	if c.Reference != "" {
		if _, ok := validReferences[c.Reference]; !ok {
			return sdr.NewConfigError(fmt.Sprintf("uhd.Config: invalid clock reference: %s", c.Reference))
		}
	}

	if c.WireFormat != "" {
		if _, ok := validWireFormats[c.WireFormat]; !ok {
			return sdr.NewConfigError(fmt.Sprintf("uhd.Config: invalid wire format: %s", c.WireFormat))
		}
	}

	return nil
}

// RxArgs returns the command line arguments for `rx_samples_to_file`.
// With more than one channel the tool writes one file per channel, see
// ChannelFile.
func (c *Config) RxArgs(req sdr.RxRequest, file string) ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	args := c.common(req.Tuning, file)
	args = append(args,
		"--nsamps", strconv.Itoa(req.NumSamples),
		"--channels", joinChannels(req.Channels),
	)
	args = c.frontend(args)

	if c.Settling > 0 {
		args = append(args, "--setup", c.Settling.Seconds())
	}

	return args, nil
}

// TxArgs returns the command line arguments for `tx_samples_from_file`.
// The tool sends the same buffer on every listed channel.
func (c *Config) TxArgs(req sdr.TxRequest, file string) ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	args := c.common(req.Tuning, file)
	args = append(args, "--channel", joinChannels(req.Channels))
	args = c.frontend(args)

	return args, nil
}

func (c *Config) common(t sdr.Tuning, file string) []string {
	return []string{
		"--args", c.Args,
		"--file", file,
		"--type", SampleType,
		"--rate", formatFloat(t.SamplingRateHz),
		"--freq", formatFloat(t.CenterFrequencyHz),
		"--gain", formatFloat(t.GainDb),
	}
}

func (c *Config) frontend(args []string) []string {
	if c.Antenna != "" {
		args = append(args, "--ant", c.Antenna)
	}

	if c.Subdev != "" {
		args = append(args, "--subdev", c.Subdev)
	}

	if c.Bandwidth > 0 {
		args = append(args, "--bw", formatFloat(c.Bandwidth))
	}

	if c.Reference != "" {
		args = append(args, "--ref", c.Reference.String())
	}

	if c.WireFormat != "" {
		args = append(args, "--wirefmt", c.WireFormat.String())
	}

	return args
}

func joinChannels(channels []int) string {
	s := make([]string, len(channels))
	for i, ch := range channels {
		s[i] = strconv.Itoa(ch)
	}
	return strings.Join(s, ",")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

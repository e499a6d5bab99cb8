package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/josefcohen96/usrp/internal/remote"
	"github.com/josefcohen96/usrp/internal/sdr/uhd"
	"github.com/josefcohen96/usrp/internal/spectrogram"
)

const (
	BackendUHD  = "uhd"
	BackendMock = "mock"

	// PasswordEnv overrides remote.password so it can stay out of the file
	PasswordEnv = "USRP_REMOTE_PASSWORD"
)

type TimeDuration time.Duration

func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.TimeDuration: failed to parse: %s", err)
	}

	*d = TimeDuration(duration)
	return nil
}

// Config represents the application configuration
type Config struct {
	Settings Settings      `yaml:"settings"`
	Capture  CaptureConfig `yaml:"capture"`
	Radio    RadioConfig   `yaml:"radio"`
	Remote   RemoteConfig  `yaml:"remote"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string  `yaml:"logLevel"`
	LogFile  LogFile `yaml:"logFile"`
}

// LogFile is an optional rotating log file written alongside stdout
type LogFile struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// CaptureConfig represents where captures go and how they are visualized
type CaptureConfig struct {
	DataDirectory string            `yaml:"dataDirectory"`
	Spectrogram   SpectrogramConfig `yaml:"spectrogram"`
}

type SpectrogramConfig struct {
	Enabled            bool `yaml:"enabled"`
	spectrogram.Config `yaml:",inline"`
}

// RadioConfig selects the radio backend
type RadioConfig struct {
	Backend string     `yaml:"backend"`
	UHD     uhd.Config `yaml:"uhd"`
}

// RemoteConfig represents the scanner host and the scanner program on it
type RemoteConfig struct {
	Host             string       `yaml:"host"`
	Port             int          `yaml:"port"`
	User             string       `yaml:"user"`
	Password         string       `yaml:"password"`
	KeyPath          string       `yaml:"keyPath"`
	Executable       string       `yaml:"executable"`
	ScanFile         string       `yaml:"scanFile"`
	Dwell            int          `yaml:"dwell"`
	Bandwidth        int          `yaml:"bandwidth"`
	MDNS             bool         `yaml:"mdns"`
	DiscoveryTimeout TimeDuration `yaml:"discoveryTimeout"`
}

func (c RemoteConfig) Endpoint() remote.Endpoint {
	return remote.Endpoint{Host: c.Host, Port: c.Port}
}

func (c RemoteConfig) Credentials() remote.Credentials {
	return remote.Credentials{User: c.User, Password: c.Password, KeyPath: c.KeyPath}
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			LogLevel: "info",
			LogFile: LogFile{
				MaxSizeMB:  10,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},
		Capture: CaptureConfig{
			DataDirectory: ".",
			Spectrogram: SpectrogramConfig{
				Enabled: true,
				Config: spectrogram.Config{
					Theme:   spectrogram.DefaultTheme,
					FFTSize: spectrogram.DefaultFFTSize,
				},
			},
		},
		Radio: RadioConfig{
			Backend: BackendUHD,
			UHD: uhd.Config{
				Args:      uhd.DefaultArgs,
				RxRuntime: uhd.RxRuntime,
				TxRuntime: uhd.TxRuntime,
			},
		},
		Remote: RemoteConfig{
			Host:             remote.DefaultHost,
			Port:             remote.DefaultPort,
			User:             remote.DefaultUser,
			Executable:       remote.DefaultExecutable,
			ScanFile:         remote.DefaultScanFile,
			Dwell:            remote.DefaultDwell,
			Bandwidth:        remote.DefaultBandwidth,
			DiscoveryTimeout: TimeDuration(remote.DefaultDiscoveryTimeout),
		},
	}
}

// LoadConfig loads the configuration file over the defaults. An empty path
// keeps the defaults. Environment overrides apply last.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		if err := loadFromFile(config, path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadFromFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err = yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	return nil
}

func applyEnvOverrides(config *Config) {
	if password, ok := os.LookupEnv(PasswordEnv); ok {
		config.Remote.Password = password
	}
}

func (c *Config) Validate() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Settings.LogLevel)); err != nil {
		return fmt.Errorf("settings: invalid log level %q", c.Settings.LogLevel)
	}

	if c.Capture.DataDirectory == "" {
		return errors.New("capture: data directory must not be empty")
	}
	if err := c.Capture.Spectrogram.Validate(); err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	switch c.Radio.Backend {
	case BackendUHD:
		if err := c.Radio.UHD.Validate(); err != nil {
			return err
		}
	case BackendMock:
	default:
		return fmt.Errorf("radio: unknown backend %q", c.Radio.Backend)
	}

	if c.Remote.Host == "" {
		return errors.New("remote: host must not be empty")
	}
	if c.Remote.Port < 0 || c.Remote.Port > 65535 {
		return fmt.Errorf("remote: invalid port %d", c.Remote.Port)
	}
	if c.Remote.Executable == "" || c.Remote.ScanFile == "" {
		return errors.New("remote: executable and scan file must not be empty")
	}
	if c.Remote.DiscoveryTimeout < 0 {
		return fmt.Errorf("remote: discovery timeout must not be negative: %s given", time.Duration(c.Remote.DiscoveryTimeout))
	}

	return nil
}

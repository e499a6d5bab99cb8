package descriptor

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// SamplesPrefix and SamplesExt name the raw capture file.
	SamplesPrefix = "samples"
	SamplesExt    = ".dat"

	// SpectrogramPrefix and SpectrogramExt name the visualization artifact
	// written next to a capture. It is indexed independently of the capture.
	SpectrogramPrefix = "spectrogram"
	SpectrogramExt    = ".png"

	mhzSuffix = "Mhz"
	dbSuffix  = "dB"

	minFields = 4
)

// Descriptor holds the parameters of a single capture: sampling rate, center
// frequency, gain and the sequence index chosen to avoid clobbering an earlier
// capture with the same parameters. The index is not part of the semantic
// identity of a capture.
type Descriptor struct {
	samplingRateHz    float64
	centerFrequencyHz float64
	gainDb            float64
	index             uint32
}

// New validates the parameters and returns a Descriptor.
func New(samplingRateHz, centerFrequencyHz, gainDb float64, index uint32) (Descriptor, error) {
	d := Descriptor{
		samplingRateHz:    samplingRateHz,
		centerFrequencyHz: centerFrequencyHz,
		gainDb:            gainDb,
		index:             index,
	}
	if err := d.validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

func (d Descriptor) validate() error {
	if !(d.samplingRateHz > 0) || math.IsInf(d.samplingRateHz, 1) {
		return fmt.Errorf("sampling rate must be positive: %v given", d.samplingRateHz)
	}
	if !(d.centerFrequencyHz > 0) || math.IsInf(d.centerFrequencyHz, 1) {
		return fmt.Errorf("center frequency must be positive: %v given", d.centerFrequencyHz)
	}
	if math.IsNaN(d.gainDb) || math.IsInf(d.gainDb, 0) {
		return fmt.Errorf("gain must be a finite number: %v given", d.gainDb)
	}
	return nil
}

func (d Descriptor) SamplingRateHz() float64    { return d.samplingRateHz }
func (d Descriptor) CenterFrequencyHz() float64 { return d.centerFrequencyHz }
func (d Descriptor) GainDb() float64            { return d.gainDb }
func (d Descriptor) Index() uint32              { return d.index }

// WithIndex returns a copy of d carrying the given sequence index.
func (d Descriptor) WithIndex(index uint32) Descriptor {
	d.index = index
	return d
}

// FileName returns the capture file name encoding d.
func (d Descriptor) FileName() string {
	return d.token(SamplesPrefix, SamplesExt)
}

// SpectrogramName returns the visualization artifact name encoding d.
func (d Descriptor) SpectrogramName() string {
	return d.token(SpectrogramPrefix, SpectrogramExt)
}

func (d Descriptor) String() string {
	return d.FileName()
}

// Encode formats d as a capture file name token:
//
//	samples_<rateMHz>Mhz_<freqMHz>Mhz_<gain>dB_<index>.dat
func Encode(d Descriptor) string {
	return d.FileName()
}

func (d Descriptor) token(prefix, ext string) string {
	return fmt.Sprintf("%s_%s%s_%s%s_%s%s_%d%s",
		prefix,
		FormatFloat(d.samplingRateHz/1e6), mhzSuffix,
		FormatFloat(d.centerFrequencyHz/1e6), mhzSuffix,
		FormatFloat(d.gainDb), dbSuffix,
		d.index,
		ext)
}

// Decode parses a capture file name token back into a Descriptor. Directory
// components of a path are ignored. Rate and frequency are scaled from MHz back
// to Hz, so the result is only as exact as the MHz representation in the name.
func Decode(token string) (Descriptor, error) {
	parts, err := fields(token)
	if err != nil {
		return Descriptor{}, err
	}

	rateMHz, err := parseField(token, parts[1], mhzSuffix, "sampling rate")
	if err != nil {
		return Descriptor{}, err
	}

	freqHz, err := ToHzFromToken(token)
	if err != nil {
		return Descriptor{}, err
	}

	gain, err := parseField(token, parts[3], dbSuffix, "gain")
	if err != nil {
		return Descriptor{}, err
	}

	d := Descriptor{
		samplingRateHz:    rateMHz * 1e6,
		centerFrequencyHz: freqHz,
		gainDb:            gain,
	}

	// The index is informational, a missing or odd one is not an error.
	if len(parts) > minFields {
		raw := strings.TrimSuffix(parts[4], filepath.Ext(parts[4]))
		if idx, err := strconv.ParseUint(raw, 10, 32); err == nil {
			d.index = uint32(idx)
		}
	}

	if err = d.validate(); err != nil {
		return Descriptor{}, &MalformedDescriptorError{Token: token, Reason: err.Error()}
	}
	return d, nil
}

// ToHzFromToken derives the center frequency in Hz from a token (MHz field x 1e6).
// This is the replay-side derivation.
func ToHzFromToken(token string) (float64, error) {
	mhz, err := frequencyField(token)
	if err != nil {
		return 0, err
	}
	return mhz * 1e6, nil
}

// ToKHzFromToken derives the center frequency in kHz from a token (MHz field x 1e3).
// The remote scanner expects kHz in its scan file.
func ToKHzFromToken(token string) (float64, error) {
	mhz, err := frequencyField(token)
	if err != nil {
		return 0, err
	}
	return mhz * 1e3, nil
}

func frequencyField(token string) (float64, error) {
	parts, err := fields(token)
	if err != nil {
		return 0, err
	}
	return parseField(token, parts[2], mhzSuffix, "center frequency")
}

func fields(token string) ([]string, error) {
	parts := strings.Split(filepath.Base(token), "_")
	if len(parts) < minFields {
		return nil, &MalformedDescriptorError{
			Token:  token,
			Reason: fmt.Sprintf("expected at least %d '_' separated fields, got %d", minFields, len(parts)),
		}
	}
	return parts, nil
}

func parseField(token, field, suffix, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(field, suffix), 64)
	if err != nil {
		return 0, &MalformedDescriptorError{
			Token:  token,
			Reason: fmt.Sprintf("invalid %s field %q", name, field),
			Err:    err,
		}
	}
	return v, nil
}

// NextIndex returns the smallest index, probing upward from 1, for which no
// capture file with d's parameters exists in dir.
func NextIndex(dir string, d Descriptor) (uint32, error) {
	return nextIndex(dir, d, SamplesPrefix, SamplesExt)
}

func nextIndex(dir string, d Descriptor, prefix, ext string) (uint32, error) {
	for idx := uint32(1); idx < math.MaxUint32; idx++ {
		_, err := os.Stat(filepath.Join(dir, d.WithIndex(idx).token(prefix, ext)))
		if errors.Is(err, fs.ErrNotExist) {
			return idx, nil
		}
		if err != nil {
			return 0, fmt.Errorf("probing index %d: %w", idx, err)
		}
	}
	return 0, errors.New("no free index left")
}

// Create opens a new capture file for d in dir. The index is chosen by probing
// upward from 1 and the file is created exclusively, so an existing capture is
// never overwritten. The returned Descriptor carries the chosen index.
//
// Probing is advisory: two processes capturing the same parameters at the same
// time may both pick an index, and the loser simply moves on to the next one.
func Create(dir string, d Descriptor) (*os.File, Descriptor, error) {
	return create(dir, d, SamplesPrefix, SamplesExt)
}

// CreateSpectrogram is Create for the visualization artifact.
func CreateSpectrogram(dir string, d Descriptor) (*os.File, Descriptor, error) {
	return create(dir, d, SpectrogramPrefix, SpectrogramExt)
}

func create(dir string, d Descriptor, prefix, ext string) (*os.File, Descriptor, error) {
	idx, err := nextIndex(dir, d, prefix, ext)
	if err != nil {
		return nil, Descriptor{}, err
	}

	for ; idx < math.MaxUint32; idx++ {
		indexed := d.WithIndex(idx)
		path := filepath.Join(dir, indexed.token(prefix, ext))

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, Descriptor{}, fmt.Errorf("creating %s: %w", path, err)
		}
		return f, indexed, nil
	}
	return nil, Descriptor{}, errors.New("no free index left")
}

package descriptor

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func mustNew(t *testing.T, rate, freq, gain float64, index uint32) Descriptor {
	t.Helper()
	d, err := New(rate, freq, gain, index)
	if err != nil {
		t.Fatalf("New(%v, %v, %v, %d): %v", rate, freq, gain, index, err)
	}
	return d
}

func TestEncode(t *testing.T) {
	testCases := []struct {
		name     string
		rate     float64
		freq     float64
		gain     float64
		index    uint32
		expected string
	}{
		{"integral values", 1e6, 900e6, 10, 1, "samples_1.0Mhz_900.0Mhz_10.0dB_1.dat"},
		{"fractional frequency", 2e6, 433.92e6, 0, 3, "samples_2.0Mhz_433.92Mhz_0.0dB_3.dat"},
		{"fractional rate", 250e3, 2.4e9, 30.5, 12, "samples_0.25Mhz_2400.0Mhz_30.5dB_12.dat"},
		{"negative gain", 1e6, 100e6, -3, 1, "samples_1.0Mhz_100.0Mhz_-3.0dB_1.dat"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := mustNew(t, tc.rate, tc.freq, tc.gain, tc.index)
			if got := Encode(d); got != tc.expected {
				t.Errorf("Encode() = %q, expected %q", got, tc.expected)
			}
		})
	}
}

func TestSpectrogramName(t *testing.T) {
	d := mustNew(t, 1e6, 900e6, 10, 2)
	if got, expected := d.SpectrogramName(), "spectrogram_1.0Mhz_900.0Mhz_10.0dB_2.png"; got != expected {
		t.Errorf("SpectrogramName() = %q, expected %q", got, expected)
	}
}

func TestDecode(t *testing.T) {
	d, err := Decode("samples_1.0Mhz_900.0Mhz_10.0dB_1.dat")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if d.SamplingRateHz() != 1e6 {
		t.Errorf("sampling rate = %v, expected 1e6", d.SamplingRateHz())
	}
	if d.CenterFrequencyHz() != 9e8 {
		t.Errorf("center frequency = %v, expected 9e8", d.CenterFrequencyHz())
	}
	if d.GainDb() != 10.0 {
		t.Errorf("gain = %v, expected 10", d.GainDb())
	}
	if d.Index() != 1 {
		t.Errorf("index = %d, expected 1", d.Index())
	}
}

func TestDecode_IgnoresDirectory(t *testing.T) {
	d, err := Decode(filepath.Join("some_dir", "with_underscores", "samples_2.0Mhz_433.92Mhz_5.0dB_7.dat"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if d.Index() != 7 || d.SamplingRateHz() != 2e6 {
		t.Errorf("unexpected descriptor %+v", d)
	}
}

func TestDecode_Malformed(t *testing.T) {
	testCases := []struct {
		name  string
		token string
	}{
		{"not a descriptor", "not_a_valid_name.dat"},
		{"too few fields", "samples_1.0Mhz_900.0Mhz.dat"},
		{"empty", ""},
		{"bad rate", "samples_fastMhz_900.0Mhz_10.0dB_1.dat"},
		{"bad frequency", "samples_1.0Mhz_highMhz_10.0dB_1.dat"},
		{"bad gain", "samples_1.0Mhz_900.0Mhz_loud_1.dat"},
		{"zero rate", "samples_0.0Mhz_900.0Mhz_10.0dB_1.dat"},
		{"negative frequency", "samples_1.0Mhz_-900.0Mhz_10.0dB_1.dat"},
		{"infinite gain", "samples_1.0Mhz_900.0Mhz_infdB_1.dat"},
		{"negative infinite gain", "samples_1.0Mhz_900.0Mhz_-infdB_1.dat"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.token)
			var malformed *MalformedDescriptorError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedDescriptorError, got %v", err)
			}
			if malformed.Token != tc.token {
				t.Errorf("error token = %q, expected %q", malformed.Token, tc.token)
			}
		})
	}
}

func TestDecode_LenientIndex(t *testing.T) {
	for _, token := range []string{
		"samples_1.0Mhz_900.0Mhz_10.0dB",
		"samples_1.0Mhz_900.0Mhz_10.0dB_x.dat",
	} {
		d, err := Decode(token)
		if err != nil {
			t.Fatalf("Decode(%q): %v", token, err)
		}
		if d.Index() != 0 {
			t.Errorf("Decode(%q) index = %d, expected 0", token, d.Index())
		}
	}
}

func TestRoundTrip(t *testing.T) {
	testCases := []struct {
		rate, freq, gain float64
	}{
		{1e6, 900e6, 10},
		{2e6, 2400e6, 0},
		{56e6, 5800e6, 76},
		{1e6, 1e6, -12.5},
	}

	for _, tc := range testCases {
		d := mustNew(t, tc.rate, tc.freq, tc.gain, 4)
		got, err := Decode(Encode(d))
		if err != nil {
			t.Fatalf("Decode(Encode(%v)): %v", d, err)
		}
		if got != d {
			t.Errorf("round trip mismatch: got %+v, expected %+v", got, d)
		}
	}
}

func TestRoundTrip_Fractional(t *testing.T) {
	d := mustNew(t, 2.5e6, 433.92e6, 0, 1)
	got, err := Decode(Encode(d))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if math.Abs(got.CenterFrequencyHz()-d.CenterFrequencyHz()) > 1e-3 {
		t.Errorf("center frequency drifted: got %v, expected %v", got.CenterFrequencyHz(), d.CenterFrequencyHz())
	}
	if math.Abs(got.SamplingRateHz()-d.SamplingRateHz()) > 1e-3 {
		t.Errorf("sampling rate drifted: got %v, expected %v", got.SamplingRateHz(), d.SamplingRateHz())
	}
}

func TestFrequencyDerivations(t *testing.T) {
	token := "samples_1.0Mhz_900.0Mhz_10.0dB_1.dat"

	hz, err := ToHzFromToken(token)
	if err != nil {
		t.Fatalf("ToHzFromToken: %v", err)
	}
	if hz != 900e6 {
		t.Errorf("ToHzFromToken = %v, expected 900e6", hz)
	}

	khz, err := ToKHzFromToken(token)
	if err != nil {
		t.Fatalf("ToKHzFromToken: %v", err)
	}
	if khz != 900e3 {
		t.Errorf("ToKHzFromToken = %v, expected 900e3", khz)
	}
	if FormatFloat(khz) != "900000.0" {
		t.Errorf("formatted kHz = %q, expected 900000.0", FormatFloat(khz))
	}

	if _, err = ToKHzFromToken("bogus"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestNew_Invalid(t *testing.T) {
	testCases := []struct {
		name             string
		rate, freq, gain float64
	}{
		{"zero rate", 0, 900e6, 0},
		{"negative rate", -1, 900e6, 0},
		{"zero frequency", 1e6, 0, 0},
		{"nan rate", math.NaN(), 900e6, 0},
		{"nan gain", 1e6, 900e6, math.NaN()},
		{"infinite gain", 1e6, 900e6, math.Inf(1)},
		{"negative infinite gain", 1e6, 900e6, math.Inf(-1)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.rate, tc.freq, tc.gain, 1); err == nil {
				t.Error("expected error for invalid parameters")
			}
		})
	}
}

func TestNextIndex(t *testing.T) {
	dir := t.TempDir()
	d := mustNew(t, 1e6, 900e6, 10, 0)

	idx, err := NextIndex(dir, d)
	if err != nil {
		t.Fatalf("NextIndex: %v", err)
	}
	if idx != 1 {
		t.Fatalf("NextIndex on empty dir = %d, expected 1", idx)
	}

	const prior = 5
	for i := uint32(1); i <= prior; i++ {
		if err = os.WriteFile(filepath.Join(dir, d.WithIndex(i).FileName()), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	// A capture with other parameters must not influence the probe.
	other := mustNew(t, 2e6, 900e6, 10, 9)
	if err = os.WriteFile(filepath.Join(dir, other.FileName()), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if idx, err = NextIndex(dir, d); err != nil {
		t.Fatalf("NextIndex: %v", err)
	}
	if idx != prior+1 {
		t.Errorf("NextIndex = %d, expected %d", idx, prior+1)
	}
}

func TestCreate_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	d := mustNew(t, 1e6, 900e6, 10, 0)

	seen := make(map[uint32]bool)
	for i := 0; i < 3; i++ {
		f, indexed, err := Create(dir, d)
		if err != nil {
			t.Fatalf("Create #%d: %v", i, err)
		}
		if _, err = f.WriteString("capture"); err != nil {
			t.Fatal(err)
		}
		_ = f.Close()

		if seen[indexed.Index()] {
			t.Fatalf("index %d reused", indexed.Index())
		}
		seen[indexed.Index()] = true

		if filepath.Base(f.Name()) != indexed.FileName() {
			t.Errorf("file %q does not match descriptor %q", f.Name(), indexed.FileName())
		}
	}

	for idx := uint32(1); idx <= 3; idx++ {
		if !seen[idx] {
			t.Errorf("expected index %d to be used", idx)
		}
	}

	// Spectrograms are indexed on their own.
	f, indexed, err := CreateSpectrogram(dir, d)
	if err != nil {
		t.Fatalf("CreateSpectrogram: %v", err)
	}
	_ = f.Close()
	if indexed.Index() != 1 {
		t.Errorf("spectrogram index = %d, expected 1", indexed.Index())
	}
}

func TestFormatFloat(t *testing.T) {
	testCases := []struct {
		in       float64
		expected string
	}{
		{1, "1.0"},
		{0, "0.0"},
		{900000, "900000.0"},
		{433.92, "433.92"},
		{-3, "-3.0"},
		{0.25, "0.25"},
		{1e16, "1e+16"},
		{1e-5, "1e-05"},
	}

	for _, tc := range testCases {
		if got := FormatFloat(tc.in); got != tc.expected {
			t.Errorf("FormatFloat(%v) = %q, expected %q", tc.in, got, tc.expected)
		}
	}
}

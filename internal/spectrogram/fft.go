package spectrogram

import (
	"errors"
	"math"
	"math/cmplx"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	DefaultFFTSize    = 1024
	DefaultMaxColumns = 1024

	// floorDb stands in for the power of an empty bin
	floorDb = -200.0
)

var ErrNoSamples = errors.New("no samples")

// PowerBounds is the power range (dB) found in a spectrogram.
type PowerBounds struct {
	Min float64
	Max float64
}

// Data is a power matrix with one column per time segment and one value per
// frequency bin in each column, lowest frequency first.
type Data struct {
	Columns      [][]float64
	FrequencyMin float64
	FrequencyMax float64
	Duration     time.Duration
	Bounds       PowerBounds
}

// Bins returns the number of frequency bins per column.
func (d *Data) Bins() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0])
}

// Compute splits the samples into Hamming windowed segments of fftSize,
// overlapping by half, and converts each segment to a power spectrum. Long
// captures spread at most maxColumns segments evenly over the buffer.
func Compute(samples []complex64, centerHz, rateHz float64, fftSize, maxColumns int) (*Data, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	if fftSize <= 0 {
		fftSize = DefaultFFTSize
	}
	if maxColumns <= 0 {
		maxColumns = DefaultMaxColumns
	}

	n := len(samples)
	hop := max(fftSize/2, 1)
	columns := 1
	if n > fftSize {
		columns = 1 + (n-fftSize)/hop
		if columns > maxColumns && maxColumns > 1 {
			hop = (n - fftSize) / (maxColumns - 1)
			columns = min(1+(n-fftSize)/hop, maxColumns)
		} else if columns > maxColumns {
			columns = 1
		}
	}

	window := hamming(fftSize)
	var windowSum float64
	for _, w := range window {
		windowSum += w
	}

	fft := fourier.NewCmplxFFT(fftSize)
	segment := make([]complex128, fftSize)
	coeffs := make([]complex128, fftSize)

	data := Data{
		Columns:      make([][]float64, columns),
		FrequencyMin: centerHz - rateHz/2,
		FrequencyMax: centerHz + rateHz/2,
		Duration:     time.Duration(float64(n) / rateHz * float64(time.Second)),
		Bounds:       PowerBounds{Min: math.Inf(1), Max: math.Inf(-1)},
	}

	for c := range data.Columns {
		start := c * hop
		for i := range segment {
			segment[i] = 0
			if start+i < n {
				s := samples[start+i]
				segment[i] = complex(float64(real(s))*window[i], float64(imag(s))*window[i])
			}
		}

		coeffs = fft.Coefficients(coeffs, segment)

		column := make([]float64, fftSize)
		for i := range column {
			// DC moves to the middle
			v := coeffs[(i+fftSize/2)%fftSize] / complex(windowSum, 0)
			column[i] = powerDb(v)
			data.Bounds.Min = math.Min(data.Bounds.Min, column[i])
			data.Bounds.Max = math.Max(data.Bounds.Max, column[i])
		}
		data.Columns[c] = column
	}

	if data.Bounds.Max <= data.Bounds.Min {
		data.Bounds.Max = data.Bounds.Min + 1
	}

	return &data, nil
}

func powerDb(v complex128) float64 {
	mag := cmplx.Abs(v)
	if mag == 0 {
		return floorDb
	}
	return math.Max(20*math.Log10(mag), floorDb)
}

func hamming(n int) []float64 {
	if n == 1 {
		return []float64{1}
	}
	win := make([]float64, n)
	for i := range win {
		win[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return win
}

// Package iq reads and writes raw complex sample buffers in the fc32 layout
// used by UHD: little-endian float32 I followed by float32 Q for each sample.
// Multi-channel buffers are stored channel-major, every sample of the first
// channel followed by every sample of the next.
package iq

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// SampleSize is the number of bytes a single fc32 sample occupies.
const SampleSize = 8

var ErrTruncated = errors.New("truncated sample")

type Writer struct {
	w   *bufio.Writer
	buf [SampleSize]byte
	n   int64
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends samples to the underlying writer.
func (iw *Writer) Write(samples []complex64) error {
	for _, s := range samples {
		binary.LittleEndian.PutUint32(iw.buf[0:4], math.Float32bits(real(s)))
		binary.LittleEndian.PutUint32(iw.buf[4:8], math.Float32bits(imag(s)))
		if _, err := iw.w.Write(iw.buf[:]); err != nil {
			return err
		}
		iw.n += SampleSize
	}
	return nil
}

// WriteChannels writes each channel in turn.
func (iw *Writer) WriteChannels(channels [][]complex64) error {
	for i, ch := range channels {
		if err := iw.Write(ch); err != nil {
			return fmt.Errorf("writing channel %d: %w", i, err)
		}
	}
	return nil
}

// Flush must be called once all samples are written.
func (iw *Writer) Flush() error {
	return iw.w.Flush()
}

// BytesWritten returns the number of bytes handed to the writer so far.
func (iw *Writer) BytesWritten() int64 {
	return iw.n
}

type Reader struct {
	r   *bufio.Reader
	buf [SampleSize]byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadAll reads samples until EOF. A trailing partial sample is reported as
// ErrTruncated together with the samples read so far.
func (ir *Reader) ReadAll() ([]complex64, error) {
	var samples []complex64
	for {
		n, err := io.ReadFull(ir.r, ir.buf[:])
		if errors.Is(err, io.EOF) {
			return samples, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return samples, fmt.Errorf("%w: %d trailing bytes", ErrTruncated, n)
		}
		if err != nil {
			return samples, err
		}

		samples = append(samples, complex(
			math.Float32frombits(binary.LittleEndian.Uint32(ir.buf[0:4])),
			math.Float32frombits(binary.LittleEndian.Uint32(ir.buf[4:8])),
		))
	}
}

// Split cuts a channel-major buffer back into n equally sized channels.
func Split(samples []complex64, n int) ([][]complex64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", n)
	}
	if len(samples)%n != 0 {
		return nil, fmt.Errorf("%d samples do not divide into %d channels", len(samples), n)
	}

	size := len(samples) / n
	channels := make([][]complex64, n)
	for i := range channels {
		channels[i] = samples[i*size : (i+1)*size]
	}
	return channels, nil
}

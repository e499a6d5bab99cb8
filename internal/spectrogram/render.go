package spectrogram

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/josefcohen96/usrp/internal/descriptor"
)

const (
	dpi            = 72.0
	fontSize       = 12.0
	tickMarkLength = 5
	pixelsPerLabel = 120.0

	defaultTopBorder    = 30
	defaultLeftBorder   = 100
	defaultBottomBorder = 40
	defaultRightBorder  = 30
)

// BorderConfig defines the sizes of white space around the plot
type BorderConfig struct {
	Top    int // title
	Left   int // frequency scale
	Bottom int // time scale and information bar
	Right  int
}

// Config holds the spectrogram options, the zero value renders with defaults.
type Config struct {
	Theme      ColorTheme `yaml:"theme"`
	FFTSize    int        `yaml:"fftSize"`    // bins per column, also the plot height
	MaxColumns int        `yaml:"maxColumns"` // upper bound of the plot width
	FontSize   float64    `yaml:"fontSize"`

	Borders BorderConfig `yaml:"-"`
}

func (c *Config) Validate() error {
	if err := c.Theme.Validate(); err != nil {
		return err
	}
	if c.FFTSize < 0 || c.FFTSize&(c.FFTSize-1) != 0 {
		return fmt.Errorf("spectrogram: FFT size must be a power of two: %d given", c.FFTSize)
	}
	if c.MaxColumns < 0 {
		return fmt.Errorf("spectrogram: max columns must not be negative: %d given", c.MaxColumns)
	}
	if c.FontSize < 0 {
		return fmt.Errorf("spectrogram: font size must not be negative: %v given", c.FontSize)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Theme == "" {
		c.Theme = DefaultTheme
	}
	if c.FFTSize == 0 {
		c.FFTSize = DefaultFFTSize
	}
	if c.MaxColumns == 0 {
		c.MaxColumns = DefaultMaxColumns
	}
	if c.FontSize == 0 {
		c.FontSize = fontSize
	}
	if c.Borders.Top == 0 {
		c.Borders.Top = defaultTopBorder
	}
	if c.Borders.Left == 0 {
		c.Borders.Left = defaultLeftBorder
	}
	if c.Borders.Bottom == 0 {
		c.Borders.Bottom = defaultBottomBorder
	}
	if c.Borders.Right == 0 {
		c.Borders.Right = defaultRightBorder
	}
}

// Renderer draws a spectrogram with time on the horizontal axis and
// frequency on the vertical axis, highest frequency on top.
type Renderer struct {
	config Config
	font   *truetype.Font
}

func NewRenderer(config Config) (*Renderer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	return &Renderer{config: config, font: parsedFont}, nil
}

// Render computes the spectrogram of one channel and draws it with scales
// and a caption describing the capture.
func (r *Renderer) Render(d descriptor.Descriptor, samples []complex64) (*image.RGBA, error) {
	data, err := Compute(samples, d.CenterFrequencyHz(), d.SamplingRateHz(), r.config.FFTSize, r.config.MaxColumns)
	if err != nil {
		return nil, fmt.Errorf("computing spectrogram: %w", err)
	}

	b := r.config.Borders
	width, height := len(data.Columns), data.Bins()

	img := image.NewRGBA(image.Rect(0, 0, b.Left+width+b.Right, b.Top+height+b.Bottom))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	plot := image.Rect(b.Left, b.Top, b.Left+width, b.Top+height)

	ann := r.newAnnotator()
	defer ann.Close()

	if err = ann.annotate(img, plot, d, data); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}

	cm := NewColorMapper(r.config.Theme, data.Bounds)
	for x, column := range data.Columns {
		for bin, power := range column {
			img.Set(plot.Min.X+x, plot.Max.Y-1-bin, cm.Color(power))
		}
	}

	return img, nil
}

type annotator struct {
	context  *freetype.Context
	fontFace font.Face
}

func (r *Renderer) newAnnotator() *annotator {
	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(r.font)
	ctx.SetFontSize(r.config.FontSize)
	ctx.SetHinting(font.HintingFull)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		fontFace: truetype.NewFace(r.font, &truetype.Options{
			Size:    r.config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingFull,
		}),
	}
}

func (a *annotator) Close() error {
	return a.fontFace.Close()
}

func (a *annotator) annotate(img *image.RGBA, plot image.Rectangle, d descriptor.Descriptor, data *Data) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	ops := []struct {
		msg string
		fn  func(*image.RGBA, image.Rectangle, descriptor.Descriptor, *Data) error
	}{
		{"drawing frequency scale", a.drawFrequencyScale},
		{"drawing time scale", a.drawTimeScale},
		{"drawing title", a.drawTitle},
	}
	for _, op := range ops {
		if err := op.fn(img, plot, d, data); err != nil {
			return fmt.Errorf("%s: %w", op.msg, err)
		}
	}

	return nil
}

func (a *annotator) drawFrequencyScale(img *image.RGBA, plot image.Rectangle, _ descriptor.Descriptor, data *Data) error {
	span := data.FrequencyMax - data.FrequencyMin
	step := niceStep(span, plot.Dy())
	metrics := a.fontFace.Metrics()

	for freq := math.Ceil(data.FrequencyMin/step) * step; freq <= data.FrequencyMax; freq += step {
		y := plot.Max.Y - 1 - int((freq-data.FrequencyMin)/span*float64(plot.Dy()-1))

		for x := plot.Min.X - tickMarkLength; x < plot.Min.X; x++ {
			img.Set(x, y, color.Black)
		}

		label := humanHz(freq)
		width := font.MeasureString(a.fontFace, label).Round()
		pt := freetype.Pt(plot.Min.X-tickMarkLength-3-width, y+metrics.Ascent.Round()/2)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return err
		}
	}

	return nil
}

func (a *annotator) drawTimeScale(img *image.RGBA, plot image.Rectangle, _ descriptor.Descriptor, data *Data) error {
	seconds := data.Duration.Seconds()
	if seconds <= 0 {
		return nil
	}

	step := niceStep(seconds, plot.Dx())
	textY := plot.Max.Y + tickMarkLength + a.fontFace.Metrics().Ascent.Round() + 2

	for t := 0.0; t <= seconds; t += step {
		x := plot.Min.X + int(t/seconds*float64(plot.Dx()-1))

		for y := plot.Max.Y; y < plot.Max.Y+tickMarkLength; y++ {
			img.Set(x, y, color.Black)
		}

		label := humanSeconds(t)
		width := font.MeasureString(a.fontFace, label).Round()
		if _, err := a.context.DrawString(label, freetype.Pt(x-width/2, textY)); err != nil {
			return err
		}
	}

	return nil
}

func (a *annotator) drawTitle(img *image.RGBA, plot image.Rectangle, d descriptor.Descriptor, data *Data) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Center: %s", humanHz(d.CenterFrequencyHz())))
	sb.WriteString(fmt.Sprintf("; Rate: %sS/s", strings.TrimSuffix(humanHz(d.SamplingRateHz()), "Hz")))
	sb.WriteString(fmt.Sprintf("; Gain: %s dB", descriptor.FormatFloat(d.GainDb())))
	sb.WriteString(fmt.Sprintf("; Power: %.1f to %.1f dB", data.Bounds.Min, data.Bounds.Max))

	pt := freetype.Pt(plot.Min.X, plot.Min.Y-(plot.Min.Y-a.fontFace.Metrics().Ascent.Round())/2)
	_, err := a.context.DrawString(sb.String(), pt)
	return err
}

// niceStep picks a 1, 2, 5 multiple of a power of ten that puts a label
// roughly every pixelsPerLabel pixels.
func niceStep(span float64, pixels int) float64 {
	labels := math.Max(1, float64(pixels)/pixelsPerLabel)
	target := span / labels
	if target <= 0 {
		return math.Max(span, 1)
	}

	magnitude := math.Pow(10, math.Floor(math.Log10(target)))
	for _, m := range []float64{1, 2, 5, 10} {
		if m*magnitude >= target {
			return m * magnitude
		}
	}
	return 10 * magnitude
}

func humanHz(hz float64) string {
	value, prefix := humanize.ComputeSI(hz)
	return fmt.Sprintf("%0.2f %sHz", value, prefix)
}

func humanSeconds(s float64) string {
	if s == 0 {
		return "0 s"
	}
	value, prefix := humanize.ComputeSI(s)
	return fmt.Sprintf("%g %ss", math.Round(value*1000)/1000, prefix)
}

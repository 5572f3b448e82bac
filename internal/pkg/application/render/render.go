package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", PNG:
		return PNG, nil
	case SVG:
		return SVG, nil
	}
	return "", fmt.Errorf("unsupported image format: %s", s)
}

func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) provider() chart.RendererProvider {
	if f == SVG {
		return chart.SVG
	}
	return chart.PNG
}

var (
	fontOnce sync.Once
	font     *truetype.Font
	fontErr  error
)

func defaultFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		font, fontErr = chart.GetDefaultFont()
	})
	return font, fontErr
}

func newCanvas(format Format, width, height int, background string) (chart.Renderer, error) {
	r, err := format.provider()(width, height)
	if err != nil {
		return nil, fmt.Errorf("creating %s renderer: %w", format, err)
	}

	f, err := defaultFont()
	if err != nil {
		return nil, fmt.Errorf("loading font: %w", err)
	}
	r.SetFont(f)

	r.SetFillColor(drawing.ColorFromHex(background))
	r.MoveTo(0, 0)
	r.LineTo(width, 0)
	r.LineTo(width, height)
	r.LineTo(0, height)
	r.Close()
	r.Fill()

	return r, nil
}

// Placeholder draws a blank canvas with a single line of text, used when
// there is nothing to plot yet.
func Placeholder(w io.Writer, format Format, width, height int, message string) error {
	r, err := newCanvas(format, width, height, "ffffff")
	if err != nil {
		return err
	}

	r.SetFontColor(drawing.ColorFromHex("555555"))
	r.SetFontSize(14)
	box := r.MeasureText(message)
	r.Text(message, (width-box.Width())/2, height/2)

	return r.Save(w)
}

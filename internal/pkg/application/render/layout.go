package render

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// Span is the horizontal range a full lap is spread across
type Span struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

type MarkerStyle struct {
	Y      int     `yaml:"y"`
	Radius float64 `yaml:"radius"`
	Color  string  `yaml:"color"`
}

type LabelStyle struct {
	Y        int     `yaml:"y"`
	FontSize float64 `yaml:"fontSize"`
	Color    string  `yaml:"color"`
}

type Layout struct {
	Width            int         `yaml:"width"`
	Height           int         `yaml:"height"`
	Background       string      `yaml:"background"`
	Track            []Point     `yaml:"track"`
	TrackStrokeWidth float64     `yaml:"trackStrokeWidth"`
	TrackColor       string      `yaml:"trackColor"`
	Span             Span        `yaml:"span"`
	Marker           MarkerStyle `yaml:"marker"`
	Label            LabelStyle  `yaml:"label"`
}

func DefaultLayout() Layout {
	return Layout{
		Width:      800,
		Height:     400,
		Background: "ffffff",
		Track: []Point{
			{X: 100, Y: 200},
			{X: 700, Y: 200},
			{X: 700, Y: 250},
			{X: 100, Y: 250},
		},
		TrackStrokeWidth: 4,
		TrackColor:       "000000",
		Span:             Span{Start: 100, End: 700},
		Marker:           MarkerStyle{Y: 225, Radius: 10, Color: "0000ff"},
		Label:            LabelStyle{Y: 240, FontSize: 12, Color: "000000"},
	}
}

// LoadLayout reads a YAML layout file. Settings missing from the file keep
// their default values.
func LoadLayout(path string) (Layout, error) {
	layout := DefaultLayout()

	b, err := os.ReadFile(path)
	if err != nil {
		return layout, fmt.Errorf("reading layout file: %w", err)
	}

	if err := yaml.Unmarshal(b, &layout); err != nil {
		return layout, fmt.Errorf("parsing layout file %s: %w", path, err)
	}

	if err := layout.Validate(); err != nil {
		return layout, fmt.Errorf("invalid layout in %s: %w", path, err)
	}

	return layout, nil
}

func (l Layout) Validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return errors.New("width and height must be positive")
	}
	if len(l.Track) < 3 {
		return errors.New("track outline needs at least three points")
	}
	if l.Span.End <= l.Span.Start {
		return errors.New("span end must be greater than span start")
	}
	return nil
}

package render

import (
	"fmt"
	"io"
	"math"

	"github.com/diwise/integration-cycleroom/internal/pkg/application/transform"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

type Marker struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Distance    float64 `json:"distance"`
	Fraction    float64 `json:"lapFraction"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Label       string  `json:"label"`
}

type TrackFrame struct {
	Layout  Layout
	Markers []Marker
}

func Label(id string, distance float64) string {
	return fmt.Sprintf("%s: %.2fm", id, distance)
}

// ProjectTrack places every entry on the track span according to its lap
// fraction. All markers share the same y, overlapping markers are not moved.
func ProjectTrack(layout Layout, entries []transform.TrackEntry) TrackFrame {
	span := float64(layout.Span.End - layout.Span.Start)
	markers := make([]Marker, 0, len(entries))

	for _, e := range entries {
		fraction := transform.LapFraction(e.Distance)
		markers = append(markers, Marker{
			ID:          e.ID,
			DisplayName: e.DisplayName,
			Distance:    e.Distance,
			Fraction:    fraction,
			X:           float64(layout.Span.Start) + span*fraction,
			Y:           float64(layout.Marker.Y),
			Label:       Label(e.ID, e.Distance),
		})
	}

	return TrackFrame{Layout: layout, Markers: markers}
}

// DrawTrack draws the track outline first and then one marker and label per bike.
func DrawTrack(w io.Writer, frame TrackFrame, format Format) error {
	l := frame.Layout
	if err := l.Validate(); err != nil {
		return fmt.Errorf("invalid track layout: %w", err)
	}

	r, err := newCanvas(format, l.Width, l.Height, l.Background)
	if err != nil {
		return err
	}

	r.SetStrokeColor(drawing.ColorFromHex(l.TrackColor))
	r.SetStrokeWidth(l.TrackStrokeWidth)
	r.MoveTo(l.Track[0].X, l.Track[0].Y)
	for _, p := range l.Track[1:] {
		r.LineTo(p.X, p.Y)
	}
	r.Close()
	r.Stroke()

	markerColor := drawing.ColorFromHex(l.Marker.Color)

	for _, m := range frame.Markers {
		x := int(math.Round(m.X))

		r.SetFillColor(markerColor)
		r.SetStrokeColor(markerColor)
		r.SetStrokeWidth(1)
		r.Circle(l.Marker.Radius, x, int(m.Y))
		r.FillStroke()

		r.SetFontColor(drawing.ColorFromHex(l.Label.Color))
		r.SetFontSize(l.Label.FontSize)
		r.Text(m.Label, x, l.Label.Y)
	}

	if err := r.Save(w); err != nil {
		return fmt.Errorf("saving track image: %w", err)
	}

	return nil
}

package render

import (
	"fmt"
	"io"

	"github.com/diwise/integration-cycleroom/internal/pkg/application/transform"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	ChartWidth  int = 800
	ChartHeight int = 400
)

const NoDataMessage string = "No bike data available"

// DrawChart plots distance per bike with one category tick per device id.
func DrawChart(w io.Writer, points []transform.ChartPoint, format Format) error {
	if len(points) == 0 {
		return Placeholder(w, format, ChartWidth, ChartHeight, NoDataMessage)
	}

	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))

	// the x range is taken from the ticks, so unlabelled ticks half a step
	// outside the data keep it non empty when there is a single bike
	ticks := make([]chart.Tick, 0, len(points)+2)
	ticks = append(ticks, chart.Tick{Value: -0.5})

	minY, maxY := 0.0, 0.0

	for i, p := range points {
		xs = append(xs, float64(i))
		ys = append(ys, p.Value)
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: p.Category})

		if p.Value > maxY {
			maxY = p.Value
		}
		if p.Value < minY {
			minY = p.Value
		}
	}

	ticks = append(ticks, chart.Tick{Value: float64(len(points)) - 0.5})

	if maxY == minY {
		maxY = minY + 1
	}

	lineColor := drawing.ColorFromHex("8884d8")

	graph := chart.Chart{
		Width:  ChartWidth,
		Height: ChartHeight,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    20,
				Left:   10,
				Right:  20,
				Bottom: 10,
			},
		},
		XAxis: chart.XAxis{
			Name:  "Bike",
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: -0.5, Max: float64(len(points)) - 0.5},
		},
		YAxis: chart.YAxis{
			Name:  "Distance",
			Range: &chart.ContinuousRange{Min: minY, Max: maxY * 1.1},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "distance",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 2,
					DotColor:    lineColor,
					DotWidth:    4,
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{
		chart.Legend(&graph),
	}

	if err := graph.Render(format.provider(), w); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}

	return nil
}

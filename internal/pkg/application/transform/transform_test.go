package transform

import (
	"math"
	"testing"

	"github.com/diwise/integration-cycleroom/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/matryer/is"
)

func TestTrackEntriesPreservesEveryDevice(t *testing.T) {
	is := is.New(t)

	entries := TrackEntries(testSnapshot())

	expected := []TrackEntry{
		{ID: "AA:BB", DisplayName: "Bike1", Distance: 1.25},
		{ID: "CC:DD", DisplayName: "Bike2", Distance: 0.5},
		{ID: "EE:FF", DisplayName: "Bike3", Distance: 12},
	}

	if diff := cmp.Diff(expected, entries); diff != "" {
		t.Errorf("track entries mismatch (-want +got):\n%s", diff)
	}
	is.Equal(len(entries), len(testSnapshot()))
}

func TestChartPointsPreservesEveryDevice(t *testing.T) {
	points := ChartPoints(testSnapshot())

	expected := []ChartPoint{
		{Category: "AA:BB", Value: 1.25},
		{Category: "CC:DD", Value: 0.5},
		{Category: "EE:FF", Value: 12},
	}

	if diff := cmp.Diff(expected, points); diff != "" {
		t.Errorf("chart points mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformOfEmptySnapshot(t *testing.T) {
	is := is.New(t)

	is.Equal(len(TrackEntries(domain.Snapshot{})), 0)
	is.Equal(len(ChartPoints(nil)), 0)
}

func TestLapFractionIsWithinUnitInterval(t *testing.T) {
	is := is.New(t)

	for _, d := range []float64{0, 0.25, 0.999999, 1, 1.25, 3.5, 1e9 + 0.75, 123456.789} {
		f := LapFraction(d)
		is.True(f >= 0)
		is.True(f < 1)
	}

	is.Equal(LapFraction(1.25), 0.25)
	is.Equal(LapFraction(2), 0.0)
}

func TestLapFractionIsMonotonicWithinALap(t *testing.T) {
	is := is.New(t)

	previous := -1.0
	for d := 4.0; d < 5.0; d += 0.01 {
		f := LapFraction(d)
		is.True(f > previous)
		previous = f
	}
}

func TestLapFractionOfUnusualInput(t *testing.T) {
	is := is.New(t)

	is.Equal(LapFraction(-0.25), 0.75)
	is.Equal(LapFraction(math.NaN()), 0.0)
	is.Equal(LapFraction(math.Inf(1)), 0.0)
	is.Equal(LapFraction(math.Inf(-1)), 0.0)
}

func testSnapshot() domain.Snapshot {
	return domain.Snapshot{
		"EE:FF": {DeviceName: "Bike3", Distance: 12},
		"AA:BB": {DeviceName: "Bike1", Distance: 1.25},
		"CC:DD": {DeviceName: "Bike2", Distance: 0.5},
	}
}

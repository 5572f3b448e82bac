package transform

import (
	"math"
	"sort"

	"github.com/diwise/integration-cycleroom/domain"
)

type TrackEntry struct {
	ID          string
	DisplayName string
	Distance    float64
}

type ChartPoint struct {
	Category string
	Value    float64
}

// TrackEntries returns one entry per bike in the snapshot, ordered by device id.
func TrackEntries(snapshot domain.Snapshot) []TrackEntry {
	entries := make([]TrackEntry, 0, len(snapshot))

	for _, id := range sortedIDs(snapshot) {
		bike := snapshot[id]
		entries = append(entries, TrackEntry{
			ID:          id,
			DisplayName: bike.DeviceName,
			Distance:    bike.Distance,
		})
	}

	return entries
}

// ChartPoints returns one point per bike in the snapshot, ordered by device id.
func ChartPoints(snapshot domain.Snapshot) []ChartPoint {
	points := make([]ChartPoint, 0, len(snapshot))

	for _, id := range sortedIDs(snapshot) {
		points = append(points, ChartPoint{
			Category: id,
			Value:    snapshot[id].Distance,
		})
	}

	return points
}

// LapFraction maps a cumulative distance onto [0, 1). Negative distances wrap
// around and non finite values are placed at the start of the lap.
func LapFraction(distance float64) float64 {
	if math.IsNaN(distance) || math.IsInf(distance, 0) {
		return 0
	}

	f := math.Mod(distance, 1)
	if f < 0 {
		f += 1
	}

	// tiny negative remainders round up to exactly 1
	if f >= 1 {
		return 0
	}

	return f
}

func sortedIDs(snapshot domain.Snapshot) []string {
	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

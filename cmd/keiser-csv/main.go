// keiser-csv decodes Keiser M3 advertising data captured in a CSV log with the
// columns address, hex encoded advertising data and rssi.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/diwise/integration-cycleroom/internal/pkg/application/keiser"
)

var (
	fileName string
	verbose  bool
)

func init() {
	pflag.StringVarP(&fileName, "file", "f", "", "CSV log to decode")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "Print every decoded field")
	pflag.Parse()
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if fileName == "" {
		pflag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(fileName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open csv log")
	}
	defer f.Close()

	invalid := 0

	err = keiser.ReadCSV(f, func(row keiser.Row) error {
		if row.Err != nil {
			invalid++
			logger.Warn().Err(row.Err).Int("line", row.Line).Msg("skipping malformed row")
			return nil
		}

		fmt.Println(row.Broadcast.String())

		if verbose {
			b := row.Broadcast
			gear := "-"
			if b.Gear != nil {
				gear = fmt.Sprint(*b.Gear)
			}
			fmt.Printf("  build %d.%d interval %d id %d hr %.1f energy %d time %ds trip %d gear %s rssi %d\n",
				b.BuildMajor, b.BuildMinor, b.Interval, b.ID, b.HeartRate, b.Energy, b.Time, b.Trip, gear, b.RSSI)
		}

		return nil
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read csv log")
	}

	if invalid > 0 {
		logger.Info().Int("skipped", invalid).Msg("done")
	}
}

package keiser

import (
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Row is the outcome of one CSV line. Err is set when the line could not be
// turned into a payload, in which case Broadcast is empty.
type Row struct {
	Line      int
	Broadcast Broadcast
	Err       error
}

// ReadCSV reads "address, hexAdvertisingData, rssi" lines after a header line
// and calls handle once per line. A malformed line is reported through
// Row.Err and does not stop the read. An error returned by handle does.
func ReadCSV(r io.Reader, handle func(Row) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	_, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("reading header: %w", err)
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}

		row := Row{}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return fmt.Errorf("reading csv: %w", err)
			}
			row.Line = pe.Line
			row.Err = err
		} else {
			row.Line, _ = reader.FieldPos(0)
			row.Broadcast, row.Err = parseRecord(record)
		}

		if err := handle(row); err != nil {
			return err
		}
	}
}

func parseRecord(record []string) (Broadcast, error) {
	if len(record) < 3 {
		return Broadcast{}, fmt.Errorf("expected 3 fields, got %d", len(record))
	}

	address := strings.TrimSpace(record[0])

	payload, err := hex.DecodeString(strings.TrimSpace(record[1]))
	if err != nil {
		return Broadcast{}, fmt.Errorf("invalid advertising data: %w", err)
	}

	rssi, err := strconv.Atoi(strings.TrimSpace(record[2]))
	if err != nil {
		return Broadcast{}, fmt.Errorf("invalid rssi: %w", err)
	}

	return Parse(address, payload, rssi), nil
}

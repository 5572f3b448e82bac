package keiser

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

const (
	minPayloadLength int = 4
	maxPayloadLength int = 19

	supportedBuildMajor int = 6
	gearBuildMinor      int = 21

	tripMilesFlag uint16  = 0x8000
	kmPerMile     float64 = 1.60934
)

// Broadcast is a decoded Keiser M3 advertising payload
type Broadcast struct {
	UUID       string
	RSSI       int
	BuildMajor int
	BuildMinor int
	Interval   int
	ID         int
	Cadence    float64
	HeartRate  float64
	Power      int
	Energy     int
	Time       int
	Trip       int
	Gear       *int
	IsValid    bool
}

func (b Broadcast) String() string {
	return fmt.Sprintf("Parsed Data -> UUID: %s, Power: %d, Cadence: %.1f, Valid: %t", b.UUID, b.Power, b.Cadence, b.IsValid)
}

// Parse decodes the manufacturer data of a Keiser M3 advertisement. Payloads
// that cannot be decoded are returned with IsValid set to false.
func Parse(address string, payload []byte, rssi int) Broadcast {
	b := Broadcast{
		UUID: address,
		RSSI: rssi,
	}

	if len(payload) < minPayloadLength || len(payload) > maxPayloadLength {
		return b
	}

	i := 0

	// optional company prefix
	if payload[0] == 2 && payload[1] == 1 {
		i += 2
	}

	b.BuildMajor = buildValue(payload[i])
	b.BuildMinor = buildValue(payload[i+1])
	i += 2

	if b.BuildMajor != supportedBuildMajor || len(payload) <= i+13 {
		return b
	}

	d := payload[i:]

	b.Interval = int(d[0])
	b.ID = int(d[1])
	b.Cadence = float64(binary.LittleEndian.Uint16(d[2:4])) / 10
	b.HeartRate = float64(binary.LittleEndian.Uint16(d[4:6])) / 10
	b.Power = int(binary.LittleEndian.Uint16(d[6:8]))
	b.Energy = int(binary.LittleEndian.Uint16(d[8:10]))
	b.Time = int(d[10])*60 + int(d[11])

	trip := binary.LittleEndian.Uint16(d[12:14])
	if trip&tripMilesFlag != 0 {
		b.Trip = int(float64(trip&^tripMilesFlag) * kmPerMile)
	} else {
		b.Trip = int(trip)
	}

	if b.BuildMinor >= gearBuildMinor && len(d) > 14 {
		gear := int(d[14])
		b.Gear = &gear
	}

	b.IsValid = true

	return b
}

// buildValue reads the hex digits of a build byte as a decimal number, so
// 0x21 is build 21. Bytes with hex letters yield 0.
func buildValue(v byte) int {
	n, err := strconv.Atoi(fmt.Sprintf("%X", v))
	if err != nil {
		return 0
	}
	return n
}

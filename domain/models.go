package domain

// Bike is the latest telemetry the backend holds for a single bike
type Bike struct {
	DeviceName string  `json:"device_name"`
	Distance   float64 `json:"distance"`
	Cadence    float64 `json:"cadence,omitempty"`
	Power      float64 `json:"power,omitempty"`
	HeartRate  float64 `json:"heart_rate,omitempty"`
	Timestamp  string  `json:"timestamp,omitempty"`
}

// Snapshot maps a device address to the telemetry of that bike at one poll instant
type Snapshot map[string]Bike

type BikeOption struct {
	Address    string `json:"address"`
	DeviceName string `json:"deviceName"`
}

type BikeSelection struct {
	BikeNumber    string `json:"bike_number"`
	DeviceAddress string `json:"device_address"`
}

package band

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siiimooon/bluetooth"
)

// Info describes a band found while scanning.
type Info struct {
	Name    string
	Address string
	RSSI    int16

	address bluetooth.Address
}

func (receiver Info) String() string {
	return fmt.Sprintf("%s (%s)", receiver.Name, receiver.Address)
}

// Tile is a home-screen tile shown on the band.
type Tile struct {
	ID             uuid.UUID
	Name           string
	BadgingEnabled bool
	TileIcon       Icon
	SmallIcon      Icon
}

// MessageFlags controls how the band presents a notification.
type MessageFlags uint8

const (
	MessageFlagsNone       MessageFlags = 0x00
	MessageFlagsShowDialog MessageFlags = 0x01
)

// Message is a notification sent to a tile.
type Message struct {
	Title     string
	Body      string
	Timestamp time.Time
	Flags     MessageFlags
}

// SkinTemperatureReading is a struct that represents a skin temperature measurement.
type SkinTemperatureReading struct {
	timestamp   time.Time
	temperature float64
}

// NewSkinTemperatureReading creates a reading of the given temperature in degrees Celsius.
func NewSkinTemperatureReading(timestamp time.Time, celsius float64) SkinTemperatureReading {
	return SkinTemperatureReading{
		timestamp:   timestamp,
		temperature: celsius,
	}
}

func (receiver SkinTemperatureReading) GetTemperature() float64 {
	return receiver.temperature
}

func (receiver SkinTemperatureReading) GetTimestamp() time.Time {
	return receiver.timestamp
}

func (receiver SkinTemperatureReading) String() string {
	return fmt.Sprintf("Temperature: %vC", receiver.temperature)
}

// AccelerometerReading is a struct that represents a 3-axis acceleration measurement in g.
type AccelerometerReading struct {
	timestamp time.Time
	x, y, z   float64
}

// NewAccelerometerReading creates a reading from acceleration values in g.
func NewAccelerometerReading(timestamp time.Time, x, y, z float64) AccelerometerReading {
	return AccelerometerReading{
		timestamp: timestamp,
		x:         x,
		y:         y,
		z:         z,
	}
}

func (receiver AccelerometerReading) GetAccelerationX() float64 {
	return receiver.x
}

func (receiver AccelerometerReading) GetAccelerationY() float64 {
	return receiver.y
}

func (receiver AccelerometerReading) GetAccelerationZ() float64 {
	return receiver.z
}

func (receiver AccelerometerReading) GetTimestamp() time.Time {
	return receiver.timestamp
}

func (receiver AccelerometerReading) String() string {
	return fmt.Sprintf("X = %v\nY = %v\nZ = %v", receiver.x, receiver.y, receiver.z)
}

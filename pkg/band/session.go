package band

import (
	"context"

	"github.com/google/uuid"
)

// Session is the set of operations available on an open band connection.
// *Client implements it over Bluetooth LE.
type Session interface {
	RemainingTileCapacity(ctx context.Context) (int, error)
	AddTile(ctx context.Context, tile Tile) error
	RemoveTile(ctx context.Context, id uuid.UUID) error
	SendMessage(ctx context.Context, tileID uuid.UUID, message Message) error
	StreamSkinTemperature(ctx context.Context, sink chan SkinTemperatureReading) error
	StreamAcceleration(ctx context.Context, sink chan AccelerometerReading) error
	Close() error
}

var _ Session = (*Client)(nil)

package band

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// decodeTemperatureData decodes a Health Thermometer temperature measurement.
// now is used when the payload carries no time stamp.
func decodeTemperatureData(data []byte, now time.Time) (SkinTemperatureReading, error) {
	if len(data) < 5 {
		return SkinTemperatureReading{}, fmt.Errorf("temperature payload too short: %d bytes", len(data))
	}
	flags := data[0]
	fahrenheit := flags&0x01 != 0
	timestampPresent := flags&0x02 != 0

	value, err := decodeIEEE11073Float(binary.LittleEndian.Uint32(data[1:5]))
	if err != nil {
		return SkinTemperatureReading{}, err
	}
	if fahrenheit {
		value = (value - 32) * 5 / 9
	}

	timestamp := now
	if timestampPresent {
		if len(data) < 12 {
			return SkinTemperatureReading{}, fmt.Errorf("temperature time stamp truncated: %d bytes", len(data))
		}
		year := int(binary.LittleEndian.Uint16(data[5:7]))
		timestamp = time.Date(year, time.Month(data[7]), int(data[8]), int(data[9]), int(data[10]), int(data[11]), 0, time.Local)
	}
	return NewSkinTemperatureReading(timestamp, value), nil
}

// decodeIEEE11073Float decodes a 32-bit FLOAT: a signed 24-bit mantissa and a signed 8-bit base-10 exponent.
func decodeIEEE11073Float(raw uint32) (float64, error) {
	mantissa := int32(raw<<8) >> 8
	exponent := int(int8(raw >> 24))

	switch raw & 0x00FFFFFF {
	case 0x7FFFFF, 0x800000, 0x800001:
		return 0, fmt.Errorf("temperature value not available: %#06x", raw&0x00FFFFFF)
	case 0x7FFFFE:
		return math.Inf(1), nil
	case 0x800002:
		return math.Inf(-1), nil
	}

	if exponent < 0 {
		return float64(mantissa) / math.Pow10(-exponent), nil
	}
	return float64(mantissa) * math.Pow10(exponent), nil
}

// decodeAccelerometerData decodes three little-endian int16 axes in milli-g.
func decodeAccelerometerData(data []byte, now time.Time) (AccelerometerReading, error) {
	if len(data) < ACCELEROMETER_SAMPLE_SIZE {
		return AccelerometerReading{}, fmt.Errorf("accelerometer payload too short: %d bytes", len(data))
	}
	axis := func(offset int) float64 {
		return float64(int16(binary.LittleEndian.Uint16(data[offset:offset+2]))) / 1000.0
	}
	return NewAccelerometerReading(now, axis(0), axis(2), axis(4)), nil
}

// encodeFrame prefixes a control point payload with its opcode and length.
func encodeFrame(opcode byte, payload []byte) ([]byte, error) {
	if len(payload) > math.MaxUint16 {
		return nil, fmt.Errorf("payload of %d bytes exceeds frame limit", len(payload))
	}
	frame := make([]byte, 0, FRAME_HEADER_SIZE+len(payload))
	frame = append(frame, opcode)
	frame = binary.LittleEndian.AppendUint16(frame, uint16(len(payload)))
	return append(frame, payload...), nil
}

// encodeAddTile encodes a tile: id, badging flag, name, large icon, small icon.
func encodeAddTile(tile Tile) []byte {
	payload := make([]byte, 0, 64)
	payload = append(payload, tile.ID[:]...)
	if tile.BadgingEnabled {
		payload = append(payload, 0x01)
	} else {
		payload = append(payload, 0x00)
	}
	payload = appendString(payload, tile.Name)
	payload = appendBlob(payload, tile.TileIcon.Bytes())
	return appendBlob(payload, tile.SmallIcon.Bytes())
}

func encodeRemoveTile(id uuid.UUID) []byte {
	return append([]byte{}, id[:]...)
}

// encodeMessage encodes a notification for the tile with the given id.
func encodeMessage(tileID uuid.UUID, message Message) []byte {
	payload := make([]byte, 0, 64)
	payload = append(payload, tileID[:]...)
	payload = append(payload, byte(message.Flags))
	payload = binary.LittleEndian.AppendUint64(payload, uint64(message.Timestamp.Unix()))
	payload = appendString(payload, message.Title)
	return appendString(payload, message.Body)
}

func appendString(dst []byte, s string) []byte {
	return appendBlob(dst, []byte(s))
}

func appendBlob(dst []byte, blob []byte) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(blob)))
	return append(dst, blob...)
}

// chunk splits data into pieces no larger than size.
func chunk(data []byte, size int) [][]byte {
	if size <= 0 {
		size = 1
	}
	chunks := make([][]byte, 0, len(data)/size+1)
	for len(data) > size {
		chunks = append(chunks, data[:size])
		data = data[size:]
	}
	if len(data) > 0 {
		chunks = append(chunks, data)
	}
	return chunks
}

func suppressCancellationError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

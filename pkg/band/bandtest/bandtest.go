// Package bandtest provides an in-memory band for exercising code that talks to a band session.
package bandtest

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/siiimooon/go-band/pkg/band"
)

// SentMessage records a notification sent through a session.
type SentMessage struct {
	TileID  uuid.UUID
	Message band.Message
}

// Band is a fake band. Configure the exported fields before use; recorded calls are read
// through the accessor methods.
type Band struct {
	Paired        []band.Info
	Capacity      int
	Temperatures  []band.SkinTemperatureReading
	Accelerations []band.AccelerometerReading

	DevicesErr  error
	ConnectErr  error
	CapacityErr error
	AddTileErr  error
	RemoveErr   error
	SendErr     error
	StreamErr   error

	mu          sync.Mutex
	connects    int
	closes      int
	open        int
	maxOpen     int
	added       []band.Tile
	removed     []uuid.UUID
	messages    []SentMessage
	streamsDone []string
}

// Devices returns the paired devices.
func (b *Band) Devices(ctx context.Context) ([]band.Info, error) {
	if b.DevicesErr != nil {
		return nil, b.DevicesErr
	}
	return append([]band.Info(nil), b.Paired...), nil
}

// Connect opens a session to the fake band.
func (b *Band) Connect(ctx context.Context, info band.Info) (band.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connects++
	if b.ConnectErr != nil {
		return nil, b.ConnectErr
	}
	b.open++
	if b.open > b.maxOpen {
		b.maxOpen = b.open
	}
	return &Session{band: b}, nil
}

func (b *Band) Connects() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connects
}

func (b *Band) Closes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}

// OpenSessions is the number of sessions not yet closed.
func (b *Band) OpenSessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// MaxOpenSessions is the highest number of sessions open at once.
func (b *Band) MaxOpenSessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxOpen
}

func (b *Band) AddedTiles() []band.Tile {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]band.Tile(nil), b.added...)
}

func (b *Band) RemovedTiles() []uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]uuid.UUID(nil), b.removed...)
}

func (b *Band) Messages() []SentMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]SentMessage(nil), b.messages...)
}

// StoppedStreams lists the sensor streams that ended, in order.
func (b *Band) StoppedStreams() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.streamsDone...)
}

// Session is an open session to a fake Band.
type Session struct {
	band   *Band
	closed bool
}

func (s *Session) RemainingTileCapacity(ctx context.Context) (int, error) {
	if s.band.CapacityErr != nil {
		return 0, s.band.CapacityErr
	}
	return s.band.Capacity, nil
}

func (s *Session) AddTile(ctx context.Context, tile band.Tile) error {
	s.band.mu.Lock()
	defer s.band.mu.Unlock()
	s.band.added = append(s.band.added, tile)
	return s.band.AddTileErr
}

func (s *Session) RemoveTile(ctx context.Context, id uuid.UUID) error {
	s.band.mu.Lock()
	defer s.band.mu.Unlock()
	s.band.removed = append(s.band.removed, id)
	return s.band.RemoveErr
}

func (s *Session) SendMessage(ctx context.Context, tileID uuid.UUID, message band.Message) error {
	s.band.mu.Lock()
	defer s.band.mu.Unlock()
	s.band.messages = append(s.band.messages, SentMessage{TileID: tileID, Message: message})
	return s.band.SendErr
}

func (s *Session) StreamSkinTemperature(ctx context.Context, sink chan band.SkinTemperatureReading) error {
	return replay(ctx, s.band, "skin_temperature", s.band.Temperatures, sink)
}

func (s *Session) StreamAcceleration(ctx context.Context, sink chan band.AccelerometerReading) error {
	return replay(ctx, s.band, "accelerometer", s.band.Accelerations, sink)
}

func (s *Session) Close() error {
	s.band.mu.Lock()
	defer s.band.mu.Unlock()
	s.band.closes++
	if !s.closed {
		s.closed = true
		s.band.open--
	}
	return nil
}

// replay sends readings to sink, then blocks until ctx is done.
func replay[T any](ctx context.Context, b *Band, name string, readings []T, sink chan T) error {
	defer func() {
		b.mu.Lock()
		b.streamsDone = append(b.streamsDone, name)
		b.mu.Unlock()
	}()
	if cap(sink) == 0 {
		return band.ErrUnbufferedChannel
	}
	if b.StreamErr != nil {
		return b.StreamErr
	}
	for _, reading := range readings {
		select {
		case sink <- reading:
		case <-ctx.Done():
			return nil
		}
	}
	<-ctx.Done()
	return nil
}

var _ band.Session = (*Session)(nil)

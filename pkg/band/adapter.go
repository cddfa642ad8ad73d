package band

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siiimooon/bluetooth"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnbufferedChannel      = errors.New("unbuffered channels are not supported")
	ErrCharacteristicNotFound = errors.New("device characteristic not found")
)

const (
	DefaultNamePrefix  = "MSFT Band"
	DefaultScanTimeout = 5 * time.Second

	stopScanRetryInterval = 50 * time.Millisecond
)

// Manager discovers bands and opens sessions to them.
type Manager struct {
	adapter     *bluetooth.Adapter
	namePrefix  string
	scanTimeout time.Duration
	log         *logrus.Entry

	enableOnce sync.Once
	enableErr  error
}

// Option configures a Manager.
type Option func(*Manager)

// WithNamePrefix only reports devices whose advertised name starts with prefix.
func WithNamePrefix(prefix string) Option {
	return func(m *Manager) {
		m.namePrefix = prefix
	}
}

// WithScanTimeout bounds how long Devices scans for.
func WithScanTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		if timeout > 0 {
			m.scanTimeout = timeout
		}
	}
}

// WithLogger sets the logger used by the manager and its sessions.
func WithLogger(log *logrus.Entry) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// NewManager creates a Manager on top of the given adapter, usually bluetooth.DefaultAdapter.
func NewManager(adapter *bluetooth.Adapter, opts ...Option) *Manager {
	manager := &Manager{
		adapter:     adapter,
		namePrefix:  DefaultNamePrefix,
		scanTimeout: DefaultScanTimeout,
		log:         logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(manager)
	}
	manager.log = manager.log.WithField("component", "band")
	return manager
}

func (receiver *Manager) enable() error {
	receiver.enableOnce.Do(func() {
		receiver.enableErr = receiver.adapter.Enable()
	})
	return receiver.enableErr
}

// Devices scans for bands and returns them strongest signal first.
func (receiver *Manager) Devices(ctx context.Context) ([]Info, error) {
	// StopScan fails before Scan starts, so a scan begun under a done context
	// could be left running.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := receiver.enable(); err != nil {
		return nil, fmt.Errorf("failed to enable bluetooth adapter: %w", err)
	}

	scanCtx, cancel := context.WithTimeout(ctx, receiver.scanTimeout)
	defer cancel()

	var mu sync.Mutex
	found := make(map[string]Info)

	scanDone := make(chan struct{})
	go stopScanWhenDone(scanCtx, receiver.adapter, scanDone, receiver.log)

	err := receiver.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		name := result.LocalName()
		if !strings.HasPrefix(name, receiver.namePrefix) {
			return
		}
		address := result.Address.String()
		mu.Lock()
		defer mu.Unlock()
		if _, seen := found[address]; !seen {
			receiver.log.WithFields(logrus.Fields{"name": name, "address": address, "rssi": result.RSSI}).Debug("found band")
		}
		found[address] = Info{
			Name:    name,
			Address: address,
			RSSI:    result.RSSI,
			address: result.Address,
		}
	})
	close(scanDone)
	if err != nil {
		return nil, fmt.Errorf("failed at scanning for devices: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	devices := make([]Info, 0, len(found))
	for _, info := range found {
		devices = append(devices, info)
	}
	slices.SortFunc(devices, func(a, b Info) int {
		if a.RSSI != b.RSSI {
			return int(b.RSSI) - int(a.RSSI)
		}
		return strings.Compare(a.Address, b.Address)
	})
	return devices, nil
}

// scanStopper is the part of *bluetooth.Adapter that ends a scan.
type scanStopper interface {
	StopScan() error
}

// stopScanWhenDone stops the scan once ctx is done. StopScan fails while the
// adapter has not started scanning yet, so it is retried until the scan returns.
func stopScanWhenDone(ctx context.Context, stopper scanStopper, scanDone <-chan struct{}, log *logrus.Entry) {
	select {
	case <-ctx.Done():
	case <-scanDone:
		return
	}
	ticker := time.NewTicker(stopScanRetryInterval)
	defer ticker.Stop()
	for {
		err := stopper.StopScan()
		if err == nil {
			return
		}
		log.WithError(err).Debug("stopping scan failed, retrying")
		select {
		case <-scanDone:
			return
		case <-ticker.C:
		}
	}
}

// Connect opens a session to the band. The caller owns the returned Client and must Close it.
func (receiver *Manager) Connect(ctx context.Context, info Info) (*Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := receiver.enable(); err != nil {
		return nil, fmt.Errorf("failed to enable bluetooth adapter: %w", err)
	}
	device, err := receiver.adapter.Connect(info.address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", info, err)
	}
	client, err := newClient(device, receiver.log.WithField("address", info.Address))
	if err != nil {
		_ = device.Disconnect()
		return nil, err
	}
	return client, nil
}

// Client is an open session to a band.
type Client struct {
	device *bluetooth.Device
	log    *logrus.Entry

	controlPoint  bluetooth.DeviceCharacteristic
	tileCapacity  bluetooth.DeviceCharacteristic
	accelerometer bluetooth.DeviceCharacteristic
	temperature   bluetooth.DeviceCharacteristic

	writeMu sync.Mutex
}

func newClient(device *bluetooth.Device, log *logrus.Entry) (*Client, error) {
	bandService, _ := bluetooth.ParseUUID(BAND_SERVICE)
	controlPoint, _ := bluetooth.ParseUUID(BAND_CHARACTERISTIC_CONTROL_POINT)
	tileCapacity, _ := bluetooth.ParseUUID(BAND_CHARACTERISTIC_TILE_CAPACITY)
	accelerometer, _ := bluetooth.ParseUUID(BAND_CHARACTERISTIC_ACCELEROMETER)
	thermometerService := bluetooth.New16BitUUID(HEALTH_THERMOMETER_SERVICE)
	temperature := bluetooth.New16BitUUID(HEALTH_THERMOMETER_CHARACTERISTIC_TEMP)

	client := &Client{
		device: device,
		log:    log,
	}
	targets := []struct {
		service        bluetooth.UUID
		characteristic bluetooth.UUID
		dst            *bluetooth.DeviceCharacteristic
	}{
		{bandService, controlPoint, &client.controlPoint},
		{bandService, tileCapacity, &client.tileCapacity},
		{bandService, accelerometer, &client.accelerometer},
		{thermometerService, temperature, &client.temperature},
	}
	for _, target := range targets {
		characteristic, err := retrieveDeviceCharacteristic(device, target.service, target.characteristic)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve device characteristic: %w", err)
		}
		*target.dst = characteristic
	}
	return client, nil
}

// Close disconnects from the band.
func (receiver *Client) Close() error {
	receiver.log.Debug("closing session")
	return receiver.device.Disconnect()
}

// RemainingTileCapacity reports how many more tiles the band accepts.
func (receiver *Client) RemainingTileCapacity(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	response, err := readCharacteristic(receiver.tileCapacity)
	if err != nil {
		return 0, fmt.Errorf("failed at reading tile capacity: %w", err)
	}
	if len(response) == 0 {
		return 0, errors.New("empty tile capacity response")
	}
	return int(int8(response[0])), nil
}

// AddTile sends a tile to the band.
func (receiver *Client) AddTile(ctx context.Context, tile Tile) error {
	receiver.log.WithFields(logrus.Fields{"tile": tile.ID, "name": tile.Name}).Debug("adding tile")
	return receiver.command(ctx, OPCODE_ADD_TILE, encodeAddTile(tile))
}

// RemoveTile removes the tile with the given id. Removing a tile that does not exist is not an error.
func (receiver *Client) RemoveTile(ctx context.Context, id uuid.UUID) error {
	receiver.log.WithField("tile", id).Debug("removing tile")
	return receiver.command(ctx, OPCODE_REMOVE_TILE, encodeRemoveTile(id))
}

// SendMessage shows a notification on the tile with the given id.
func (receiver *Client) SendMessage(ctx context.Context, tileID uuid.UUID, message Message) error {
	return receiver.command(ctx, OPCODE_SEND_MESSAGE, encodeMessage(tileID, message))
}

// StreamSkinTemperature streams skin temperature readings from the band to the provided channel.
func (receiver *Client) StreamSkinTemperature(ctx context.Context, sink chan SkinTemperatureReading) error {
	return stream(ctx, receiver.temperature, sink, decodeTemperatureData)
}

// StreamAcceleration streams accelerometer readings from the band to the provided channel.
func (receiver *Client) StreamAcceleration(ctx context.Context, sink chan AccelerometerReading) error {
	return stream(ctx, receiver.accelerometer, sink, decodeAccelerometerData)
}

// command frames payload and writes it to the control point in MTU-sized chunks.
func (receiver *Client) command(ctx context.Context, opcode byte, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	frame, err := encodeFrame(opcode, payload)
	if err != nil {
		return err
	}

	receiver.writeMu.Lock()
	defer receiver.writeMu.Unlock()

	mtu, err := receiver.controlPoint.GetMTU()
	if err != nil {
		return fmt.Errorf("failed to obtain MTU of control point: %w", err)
	}
	for _, part := range chunk(frame, int(mtu)-ATT_HEADER_SIZE) {
		if err := writeCharacteristic(receiver.controlPoint, part); err != nil {
			return fmt.Errorf("failed at writing command %#02x: %w", opcode, err)
		}
	}
	return nil
}

// notifier is the part of bluetooth.DeviceCharacteristic that delivers notifications.
type notifier interface {
	EnableNotifications(callback func(buf []byte)) error
}

// stream decodes notifications from a characteristic into sink until ctx is done.
func stream[T any](ctx context.Context, characteristic notifier, sink chan T, decode func([]byte, time.Time) (T, error)) error {
	if cap(sink) == 0 {
		return ErrUnbufferedChannel
	}

	rawStream := make(chan []byte, 1)
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := streamNotification(streamCtx, characteristic, rawStream); err != nil {
		return fmt.Errorf("failed to enable notifications: %w", err)
	}
	return decodeStream(ctx, rawStream, sink, decode)
}

// decodeStream decodes raw payloads into sink until ctx is done or a payload fails to decode.
func decodeStream[T any](ctx context.Context, rawStream <-chan []byte, sink chan T, decode func([]byte, time.Time) (T, error)) error {
	for {
		select {
		case <-ctx.Done():
			return suppressCancellationError(ctx.Err())
		case raw := <-rawStream:
			reading, err := decode(raw, time.Now())
			if err != nil {
				return fmt.Errorf("failed at decoding reading: %w", err)
			}
			select {
			case sink <- reading:
			case <-ctx.Done():
				return suppressCancellationError(ctx.Err())
			}
		}
	}
}

// retrieveDeviceCharacteristic retrieves a device characteristic from a service.
func retrieveDeviceCharacteristic(device *bluetooth.Device, service, characteristic bluetooth.UUID) (bluetooth.DeviceCharacteristic, error) {
	services, err := device.DiscoverServices([]bluetooth.UUID{service})
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("failed at discovering service %s: %w", service.String(), err)
	}
	for _, service := range services {
		characteristics, err := service.DiscoverCharacteristics([]bluetooth.UUID{characteristic})
		if err != nil {
			return bluetooth.DeviceCharacteristic{}, fmt.Errorf("failed at discovering device characteristic %s: %w", characteristic.String(), err)
		}
		for _, characteristic := range characteristics {
			return characteristic, nil
		}
	}
	return bluetooth.DeviceCharacteristic{}, fmt.Errorf("%w: %s", ErrCharacteristicNotFound, characteristic.String())
}

// readCharacteristic reads a response from a device characteristic.
func readCharacteristic(characteristic bluetooth.DeviceCharacteristic) ([]byte, error) {
	mtu, err := characteristic.GetMTU()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain MTU of characteristic: %w", err)
	}
	data := make([]byte, mtu)
	dataLen, err := characteristic.Read(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from characteristic: %w", err)
	}
	return data[:dataLen], nil
}

// writeCharacteristic writes a request to a device characteristic.
func writeCharacteristic(characteristic bluetooth.DeviceCharacteristic, req []byte) error {
	_, err := characteristic.Write(req)
	return err
}

// streamNotification streams notifications from a device characteristic to the provided channel.
// Notifications are disabled once ctx is done.
func streamNotification(ctx context.Context, characteristic notifier, sink chan []byte) error {
	err := characteristic.EnableNotifications(func(buf []byte) {
		payload := append([]byte(nil), buf...)
		select {
		case sink <- payload:
		case <-ctx.Done():
		}
	})

	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = characteristic.EnableNotifications(nil)
	}()

	return nil
}

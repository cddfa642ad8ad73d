package band

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLog() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

type fakeNotifier struct {
	mu        sync.Mutex
	callbacks []func([]byte)
	err       error
}

func (f *fakeNotifier) EnableNotifications(callback func(buf []byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks = append(f.callbacks, callback)
	return f.err
}

func (f *fakeNotifier) calls() []func([]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]func([]byte)(nil), f.callbacks...)
}

type fakeStopper struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *fakeStopper) StopScan() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("not scanning")
	}
	return nil
}

func (f *fakeStopper) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestDevicesWithDoneContext(t *testing.T) {
	manager := NewManager(nil, WithLogger(quietLog()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	devices, err := manager.Devices(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, devices)
}

func TestStopScanWhenDoneRetriesUntilScanning(t *testing.T) {
	stopper := &fakeStopper{failures: 2}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scanDone := make(chan struct{})

	finished := make(chan struct{})
	go func() {
		stopScanWhenDone(ctx, stopper, scanDone, quietLog())
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("stopScanWhenDone did not return")
	}
	assert.Equal(t, 3, stopper.count())
}

func TestStopScanWhenDoneGivesUpOnceScanReturns(t *testing.T) {
	stopper := &fakeStopper{failures: 1000}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scanDone := make(chan struct{})

	finished := make(chan struct{})
	go func() {
		stopScanWhenDone(ctx, stopper, scanDone, quietLog())
		close(finished)
	}()
	require.Eventually(t, func() bool { return stopper.count() > 0 }, time.Second, 5*time.Millisecond)
	close(scanDone)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("stopScanWhenDone did not return")
	}
}

func TestStopScanWhenDoneSkipsFinishedScan(t *testing.T) {
	stopper := &fakeStopper{}
	scanDone := make(chan struct{})
	close(scanDone)

	stopScanWhenDone(context.Background(), stopper, scanDone, quietLog())
	assert.Zero(t, stopper.count())
}

func temperaturePayload(mantissa int32, exponent int8) []byte {
	return append([]byte{0x00}, ieeeFloat(mantissa, exponent)...)
}

func TestStreamDeliversAndDisablesNotifications(t *testing.T) {
	characteristic := &fakeNotifier{}
	sink := make(chan SkinTemperatureReading, 1)
	ctx, cancel := context.WithCancel(context.Background())

	result := make(chan error, 1)
	go func() {
		result <- stream(ctx, characteristic, sink, decodeTemperatureData)
	}()
	require.Eventually(t, func() bool { return len(characteristic.calls()) == 1 }, time.Second, 5*time.Millisecond)

	characteristic.calls()[0](temperaturePayload(3350, -2))
	reading := <-sink
	assert.Equal(t, "Temperature: 33.5C", reading.String())

	cancel()
	assert.NoError(t, <-result)

	// the second call passes a nil callback to turn notifications off
	require.Eventually(t, func() bool { return len(characteristic.calls()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Nil(t, characteristic.calls()[1])
}

func TestStreamEnableError(t *testing.T) {
	characteristic := &fakeNotifier{err: errors.New("no cccd")}
	err := stream(context.Background(), characteristic, make(chan SkinTemperatureReading, 1), decodeTemperatureData)
	assert.ErrorContains(t, err, "no cccd")
}

func TestDecodeStreamStopsOnDecodeError(t *testing.T) {
	raw := make(chan []byte, 1)
	raw <- []byte{0x00}

	err := decodeStream(context.Background(), raw, make(chan SkinTemperatureReading, 1), decodeTemperatureData)
	assert.ErrorContains(t, err, "failed at decoding reading")
}

func TestDecodeStreamCancellationIsCleanStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := decodeStream(ctx, make(chan []byte), make(chan SkinTemperatureReading, 1), decodeTemperatureData)
	assert.NoError(t, err)
}

func TestDecodeStreamDeadlineIsCleanStop(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	raw := make(chan []byte, 1)
	raw <- temperaturePayload(300, -1)
	// a full sink must not block the stream past its deadline
	sink := make(chan SkinTemperatureReading, 1)
	sink <- NewSkinTemperatureReading(time.Now(), 0)

	err := decodeStream(ctx, raw, sink, decodeTemperatureData)
	assert.NoError(t, err)
}

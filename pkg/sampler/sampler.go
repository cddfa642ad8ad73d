// Package sampler runs the connect, tile and sensor workflow against a band.
//
// Every operation owns exactly one band session for its duration and closes it
// before returning. Readings and errors are reported to a Display as text.
package sampler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siiimooon/go-band/pkg/band"
	"github.com/siiimooon/go-band/pkg/icon"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	NoBandMessage = "This sample app requires a Microsoft Band paired to your phone. Also make sure that you have the latest firmware installed on your Band, as provided by the latest Microsoft Health app."

	DefaultTileID           = "87281FA7-4576-4533-A3E9-8D7BEF7CEEE5"
	DefaultTileName         = "My Tile"
	DefaultNotificationBody = "Your temperature reading has been taken."
	DefaultWindow           = time.Minute
)

// Display receives status text. Implementations decide which goroutine applies it.
type Display interface {
	SetText(text string)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(text string)

func (f DisplayFunc) SetText(text string) {
	f(text)
}

// Connector finds bands and opens sessions to them.
type Connector interface {
	Devices(ctx context.Context) ([]band.Info, error)
	Connect(ctx context.Context, info band.Info) (band.Session, error)
}

// FromManager adapts a Bluetooth band manager to a Connector.
func FromManager(manager *band.Manager) Connector {
	return managerConnector{manager: manager}
}

type managerConnector struct {
	manager *band.Manager
}

func (c managerConnector) Devices(ctx context.Context) ([]band.Info, error) {
	return c.manager.Devices(ctx)
}

func (c managerConnector) Connect(ctx context.Context, info band.Info) (band.Session, error) {
	client, err := c.manager.Connect(ctx, info)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Sensor names accepted in Options.Sensors.
const (
	SensorSkinTemperature = "skin_temperature"
	SensorAccelerometer   = "accelerometer"
)

// Options configures a Sampler.
type Options struct {
	TileID           uuid.UUID
	TileName         string
	BadgingEnabled   bool
	LargeIconPath    string
	SmallIconPath    string
	NotificationBody string
	Window           time.Duration
	Sensors          []string
}

// DefaultOptions returns the options of the stock sample tile.
func DefaultOptions() Options {
	return Options{
		TileID:           uuid.MustParse(DefaultTileID),
		TileName:         DefaultTileName,
		BadgingEnabled:   true,
		NotificationBody: DefaultNotificationBody,
		Window:           DefaultWindow,
		Sensors:          []string{SensorSkinTemperature},
	}
}

func (o Options) wants(sensor string) bool {
	for _, s := range o.Sensors {
		if s == sensor {
			return true
		}
	}
	return false
}

// Sampler runs one band operation at a time on behalf of a UI.
type Sampler struct {
	connector Connector
	display   Display
	opts      Options
	log       *logrus.Entry
	tracer    trace.Tracer
	loadIcons func(large, small string) (band.Icon, band.Icon, error)
}

// Option customises a Sampler.
type Option func(*Sampler)

func WithLogger(log *logrus.Entry) Option {
	return func(s *Sampler) {
		if log != nil {
			s.log = log
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Sampler) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// New creates a Sampler that reports to display.
func New(connector Connector, display Display, opts Options, options ...Option) *Sampler {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if len(opts.Sensors) == 0 {
		opts.Sensors = []string{SensorSkinTemperature}
	}
	sampler := &Sampler{
		connector: connector,
		display:   display,
		opts:      opts,
		log:       logrus.NewEntry(logrus.StandardLogger()),
		tracer:    noop.NewTracerProvider().Tracer(""),
		loadIcons: icon.LoadTileIcons,
	}
	for _, option := range options {
		option(sampler)
	}
	sampler.log = sampler.log.WithField("component", "sampler")
	return sampler
}

// Run connects to the first paired band, adds the tile if capacity allows and
// streams readings to the display for the sampling window.
// Any error is shown on the display and returned.
func (s *Sampler) Run(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "sampler.run")
	defer span.End()

	err := s.withSession(ctx, s.sample)
	return s.fail(span, err)
}

// RemoveTile removes the sample tile from the first paired band.
// The removal is always issued, whether or not the tile exists.
func (s *Sampler) RemoveTile(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "sampler.remove_tile",
		trace.WithAttributes(attribute.String("tile.id", s.opts.TileID.String())))
	defer span.End()

	err := s.withSession(ctx, func(ctx context.Context, session band.Session) error {
		if err := session.RemoveTile(ctx, s.opts.TileID); err != nil {
			return fmt.Errorf("failed to remove tile: %w", err)
		}
		s.log.WithField("tile", s.opts.TileID).Info("tile removed")
		s.display.SetText(fmt.Sprintf("Removed tile %s", s.opts.TileName))
		return nil
	})
	return s.fail(span, err)
}

func (s *Sampler) fail(span trace.Span, err error) error {
	if err == nil {
		return nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.log.WithError(err).Error("operation failed")
	s.display.SetText(err.Error())
	return err
}

// withSession opens a session to the first paired band, runs fn and closes the session.
// With no paired band it shows NoBandMessage and runs nothing.
func (s *Sampler) withSession(ctx context.Context, fn func(context.Context, band.Session) error) (err error) {
	devicesCtx, devicesSpan := s.tracer.Start(ctx, "band.devices")
	devices, err := s.connector.Devices(devicesCtx)
	devicesSpan.SetAttributes(attribute.Int("band.count", len(devices)))
	devicesSpan.End()
	if err != nil {
		return fmt.Errorf("failed to list paired bands: %w", err)
	}
	if len(devices) < 1 {
		s.log.Warn("no paired band found")
		s.display.SetText(NoBandMessage)
		return nil
	}

	connectCtx, connectSpan := s.tracer.Start(ctx, "band.connect",
		trace.WithAttributes(attribute.String("band.name", devices[0].Name)))
	session, err := s.connector.Connect(connectCtx, devices[0])
	connectSpan.End()
	if err != nil {
		return fmt.Errorf("failed to connect to band: %w", err)
	}
	s.log.WithField("band", devices[0].String()).Info("connected")
	defer func() {
		if closeErr := session.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close session: %w", closeErr)
		}
	}()

	return fn(ctx, session)
}

// sample is the body of Run once a session is open.
func (s *Sampler) sample(ctx context.Context, session band.Session) error {
	remaining, err := session.RemainingTileCapacity(ctx)
	if err != nil {
		return fmt.Errorf("failed to read tile capacity: %w", err)
	}
	s.log.WithField("remaining", remaining).Debug("tile capacity")

	notify := remaining > 0
	if notify {
		if err := s.addTile(ctx, session); err != nil {
			return err
		}
	}

	listener := &listener{
		session: session,
		display: s.display,
		tileID:  s.opts.TileID,
		body:    s.opts.NotificationBody,
		notify:  notify,
	}

	windowCtx, span := s.tracer.Start(ctx, "band.sample",
		trace.WithAttributes(attribute.String("window", s.opts.Window.String())))
	defer span.End()
	return s.stream(windowCtx, session, listener)
}

func (s *Sampler) addTile(ctx context.Context, session band.Session) error {
	ctx, span := s.tracer.Start(ctx, "band.tile.add",
		trace.WithAttributes(attribute.String("tile.id", s.opts.TileID.String())))
	defer span.End()

	large, small, err := s.loadIcons(s.opts.LargeIconPath, s.opts.SmallIconPath)
	if err != nil {
		return err
	}
	tile := band.Tile{
		ID:             s.opts.TileID,
		Name:           s.opts.TileName,
		BadgingEnabled: s.opts.BadgingEnabled,
		TileIcon:       large,
		SmallIcon:      small,
	}
	if err := session.AddTile(ctx, tile); err != nil {
		return fmt.Errorf("failed to add tile: %w", err)
	}
	s.log.WithField("tile", tile.ID).Info("tile added")
	return nil
}

// stream starts the configured sensors and feeds readings to l until the window ends.
// All started streams have stopped when it returns.
func (s *Sampler) stream(ctx context.Context, session band.Session, l *listener) error {
	windowCtx, cancel := context.WithTimeout(ctx, s.opts.Window)
	defer cancel()

	temperatures := make(chan band.SkinTemperatureReading, 1)
	accelerations := make(chan band.AccelerometerReading, 1)
	errs := make(chan error, 2)
	started := 0

	if s.opts.wants(SensorSkinTemperature) {
		started++
		go func() {
			errs <- session.StreamSkinTemperature(windowCtx, temperatures)
		}()
	}
	if s.opts.wants(SensorAccelerometer) {
		started++
		go func() {
			errs <- session.StreamAcceleration(windowCtx, accelerations)
		}()
	}
	s.log.WithFields(logrus.Fields{"sensors": s.opts.Sensors, "window": s.opts.Window}).Info("sampling")

	// stop cancels the window and waits for the remaining streams to return.
	stop := func(cause error) error {
		cancel()
		for ; started > 0; started-- {
			if err := <-errs; err != nil && cause == nil {
				cause = fmt.Errorf("sensor stream failed: %w", err)
			}
		}
		return cause
	}

	for {
		select {
		case <-windowCtx.Done():
			if err := ctx.Err(); err != nil {
				return stop(err)
			}
			return stop(nil)
		case err := <-errs:
			started--
			if err != nil {
				return stop(fmt.Errorf("sensor stream failed: %w", err))
			}
		case reading := <-temperatures:
			if err := l.onTemperature(windowCtx, reading); err != nil {
				return stop(err)
			}
		case reading := <-accelerations:
			l.onAcceleration(reading)
		}
	}
}

// listener turns readings into display text and tile notifications on an explicit session.
type listener struct {
	session band.Session
	display Display
	tileID  uuid.UUID
	body    string
	notify  bool
}

func (l *listener) onTemperature(ctx context.Context, reading band.SkinTemperatureReading) error {
	text := reading.String()
	l.display.SetText(text)
	if !l.notify {
		return nil
	}
	err := l.session.SendMessage(ctx, l.tileID, band.Message{
		Title:     text,
		Body:      l.body,
		Timestamp: time.Now(),
		Flags:     band.MessageFlagsShowDialog,
	})
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

func (l *listener) onAcceleration(reading band.AccelerometerReading) {
	l.display.SetText(reading.String())
}

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sgp30

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dbrgn/sgp30-go/sensirion"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
)

const (
	// SensorAddress is the only i2c address the device decodes.
	SensorAddress uint16 = 0x58

	// warmupMeasurements is the number of measurements after
	// init_air_quality during which the device reports the fixed startup
	// values of 400ppm CO2eq and 0ppb TVOC.
	warmupMeasurements = 15

	// measureInterval is the measurement cadence the datasheet requires
	// for the dynamic baseline compensation to work.
	measureInterval = time.Second
)

// The device command set. Reply sizes and settle times are from the
// datasheet command table.
var (
	cmdInitAirQuality    = sensirion.Command{Opcode: 0x2003, Settle: 10 * time.Millisecond}
	cmdMeasureAirQuality = sensirion.Command{Opcode: 0x2008, ReplyWords: 2, Settle: 12 * time.Millisecond}
	cmdGetBaseline       = sensirion.Command{Opcode: 0x2015, ReplyWords: 2, Settle: 10 * time.Millisecond}
	cmdSetBaseline       = sensirion.Command{Opcode: 0x201e, ArgWords: 2, Settle: 10 * time.Millisecond}
	cmdSetHumidity       = sensirion.Command{Opcode: 0x2061, ArgWords: 1, Settle: 10 * time.Millisecond}
	cmdMeasureTest       = sensirion.Command{Opcode: 0x2032, ReplyWords: 1, Settle: 220 * time.Millisecond}
	cmdGetFeatureSet     = sensirion.Command{Opcode: 0x202f, ReplyWords: 1, Settle: 2 * time.Millisecond}
	cmdMeasureRawSignals = sensirion.Command{Opcode: 0x2050, ReplyWords: 2, Settle: 25 * time.Millisecond}
	cmdGetSerial         = sensirion.Command{Opcode: 0x3682, ReplyWords: 3, Settle: 500 * time.Microsecond}
	cmdGetTVOCBaseline   = sensirion.Command{Opcode: 0x20b3, ReplyWords: 1, Settle: 10 * time.Millisecond}
	cmdSetTVOCBaseline   = sensirion.Command{Opcode: 0x2077, ArgWords: 1, Settle: 10 * time.Millisecond}
)

// measureTestPass is the word the device returns when the built-in self
// test succeeds.
const measureTestPass uint16 = 0xd400

// ErrNotInitialized is returned by MeasureAirQuality before InitAirQuality
// has run.
var ErrNotInitialized = errors.New("sgp30: air quality engine not initialized")

type sensorState uint8

const (
	stateUninitialized sensorState = iota
	stateWarmup
	stateRunning
)

// Dev is a handle to an SGP30 device on an i2c bus.
type Dev struct {
	d  *i2c.Dev
	mu sync.Mutex
	// shutdown terminates a running SenseContinuous.
	shutdown chan struct{}
	// Progress of the on-chip measurement engine as driven by this handle.
	state      sensorState
	warmupLeft int
}

// NewI2C returns a handle to an SGP30 on the supplied bus. The device only
// decodes address 0x58, so pass SensorAddress unless the sensor sits behind
// an address translator.
//
// No commands are sent. Call InitAirQuality before measuring, or use Sense
// which does it on first use.
func NewI2C(b i2c.Bus, addr uint16) (*Dev, error) {
	return &Dev{d: &i2c.Dev{Bus: b, Addr: addr}}, nil
}

// InitAirQuality starts the on-chip measurement engine. For the first 15
// measurements afterwards the device reports the fixed startup values of
// 400ppm CO2eq and 0ppb TVOC; Warmup reports whether that phase is still
// active. On an already initialized handle this is a no-op, use
// ForceInitAirQuality to restart the engine.
func (d *Dev) InitAirQuality(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != stateUninitialized {
		return nil
	}
	return d.initAirQuality(ctx)
}

// ForceInitAirQuality restarts the measurement engine even if it is already
// running. The warm up phase starts over and baseline values learned since
// the last power-up are discarded unless restored with SetBaseline.
func (d *Dev) ForceInitAirQuality(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initAirQuality(ctx)
}

func (d *Dev) initAirQuality(ctx context.Context) error {
	if _, err := d.command(ctx, cmdInitAirQuality, nil); err != nil {
		return err
	}
	d.state = stateWarmup
	d.warmupLeft = warmupMeasurements
	return nil
}

// MeasureAirQuality reads one CO2 equivalent / TVOC sample. It fails with
// ErrNotInitialized until InitAirQuality has run. The datasheet requires
// calling it once per second for the dynamic baseline compensation to work;
// SenseContinuous runs that cadence.
func (d *Dev) MeasureAirQuality(ctx context.Context) (Measurement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == stateUninitialized {
		return Measurement{}, ErrNotInitialized
	}
	words, err := d.command(ctx, cmdMeasureAirQuality, nil)
	if err != nil {
		return Measurement{}, err
	}
	if d.state == stateWarmup {
		d.warmupLeft--
		if d.warmupLeft == 0 {
			d.state = stateRunning
		}
	}
	return Measurement{CO2eq: CO2(words[0]), TVOC: TVOC(words[1])}, nil
}

// Warmup reports whether the measurement engine is still in its startup
// phase, during which MeasureAirQuality returns the fixed values 400ppm
// and 0ppb.
func (d *Dev) Warmup() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == stateWarmup
}

// MeasureRawSignals reads the raw H2 and ethanol signals that feed the
// air quality algorithm. They are meant for lab verification, not for
// regular operation.
func (d *Dev) MeasureRawSignals(ctx context.Context) (RawSignals, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.command(ctx, cmdMeasureRawSignals, nil)
	if err != nil {
		return RawSignals{}, err
	}
	return RawSignals{H2: words[0], Ethanol: words[1]}, nil
}

// Baseline reads the current state of the baseline compensation algorithm.
// Persist it and restore it with SetBaseline after a power cycle to skip
// the relearning phase, which takes up to 12 hours.
func (d *Dev) Baseline(ctx context.Context) (Baseline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.command(ctx, cmdGetBaseline, nil)
	if err != nil {
		return Baseline{}, err
	}
	return Baseline{CO2eq: words[0], TVOC: words[1]}, nil
}

// SetBaseline restores baseline values previously read with Baseline.
func (d *Dev) SetBaseline(ctx context.Context, b Baseline) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	// The device expects the TVOC word first, the reverse of the order
	// get_baseline reports.
	_, err := d.command(ctx, cmdSetBaseline, []uint16{b.TVOC, b.CO2eq})
	return err
}

// SetHumidity sets the absolute humidity used by the on-chip humidity
// compensation. The zero value disables the compensation. Use
// AbsoluteHumidity to derive the value from the readings of a humidity
// sensor.
func (d *Dev) SetHumidity(ctx context.Context, h Humidity) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.command(ctx, cmdSetHumidity, []uint16{uint16(h)})
	return err
}

// FeatureSet reads the product type and version word of the device.
func (d *Dev) FeatureSet(ctx context.Context) (FeatureSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.command(ctx, cmdGetFeatureSet, nil)
	if err != nil {
		return FeatureSet{}, err
	}
	return parseFeatureSet(words[0]), nil
}

// SelfTest runs the built-in self test and reports whether it passed. A
// completed test with a failure pattern returns (false, nil); an error
// means the test could not be run. The test takes around 220ms and
// disturbs a running measurement cadence.
func (d *Dev) SelfTest(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.command(ctx, cmdMeasureTest, nil)
	if err != nil {
		return false, err
	}
	return words[0] == measureTestPass, nil
}

// SerialNumber returns the 48 bit serial number set at the factory.
func (d *Dev) SerialNumber(ctx context.Context) (SerialNumber, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.command(ctx, cmdGetSerial, nil)
	if err != nil {
		return 0, err
	}
	return SerialNumber(uint64(words[0])<<32 | uint64(words[1])<<16 | uint64(words[2])), nil
}

// TVOCInceptiveBaseline reads the inceptive baseline of the TVOC channel.
// Only devices with feature set 0x21 or later implement it.
func (d *Dev) TVOCInceptiveBaseline(ctx context.Context) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.command(ctx, cmdGetTVOCBaseline, nil)
	if err != nil {
		return 0, err
	}
	return words[0], nil
}

// SetTVOCInceptiveBaseline writes the inceptive baseline of the TVOC
// channel. Only devices with feature set 0x21 or later implement it.
func (d *Dev) SetTVOCInceptiveBaseline(ctx context.Context, baseline uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.command(ctx, cmdSetTVOCBaseline, []uint16{baseline})
	return err
}

// Sense reads one air quality sample, initializing the device on first
// use. Use MeasureAirQuality directly for cancellable reads.
func (d *Dev) Sense(m *Measurement) error {
	if err := d.InitAirQuality(context.Background()); err != nil {
		return err
	}
	got, err := d.MeasureAirQuality(context.Background())
	if err != nil {
		return err
	}
	*m = got
	return nil
}

// SenseContinuous measures on the given interval and streams the readings
// to the returned channel until Halt is called. The interval must not be
// shorter than the one second cadence the device is specified for.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan Measurement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shutdown != nil {
		return nil, errors.New("sgp30: SenseContinuous already running")
	}
	if interval < measureInterval {
		return nil, errors.New("sgp30: interval is shorter than the 1s measurement cadence")
	}
	shutdown := make(chan struct{})
	d.shutdown = shutdown
	ch := make(chan Measurement, 16)
	go func(ch chan<- Measurement) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(ch)
		for {
			select {
			case <-shutdown:
				return
			case <-ticker.C:
				m := Measurement{}
				if err := d.Sense(&m); err == nil && len(ch) < cap(ch) {
					ch <- m
				}
			}
		}
	}(ch)
	return ch, nil
}

// Halt stops a running SenseContinuous. The device has no low power
// command; it keeps measuring internally. Implements conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shutdown != nil {
		close(d.shutdown)
		d.shutdown = nil
	}
	return nil
}

// Precision sets the fields of m to the smallest change in readings the
// device can report: 1ppm CO2eq and 1ppb TVOC.
func (d *Dev) Precision(m *Measurement) {
	m.CO2eq = 1
	m.TVOC = 1
}

func (d *Dev) String() string {
	return fmt.Sprintf("sgp30: %s", d.d.String())
}

// command runs one protocol transaction: write the command frame, wait the
// settle time, then read and verify the reply. All device access funnels
// through here. The caller must hold d.mu.
func (d *Dev) command(ctx context.Context, cmd sensirion.Command, args []uint16) ([]uint16, error) {
	w, err := cmd.Encode(args)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.d.Tx(w, nil); err != nil {
		return nil, fmt.Errorf("sgp30: cmd 0x%04x: %w", cmd.Opcode, err)
	}
	if err := settle(ctx, cmd.Settle); err != nil {
		return nil, err
	}
	if cmd.ReplyWords == 0 {
		return nil, nil
	}
	r := make([]byte, cmd.ReplyLen())
	if err := d.d.Tx(nil, r); err != nil {
		return nil, fmt.Errorf("sgp30: cmd 0x%04x: %w", cmd.Opcode, err)
	}
	words, err := sensirion.DecodeWords(r, cmd.ReplyWords)
	if err != nil {
		return nil, fmt.Errorf("sgp30: cmd 0x%04x: %w", cmd.Opcode, err)
	}
	return words, nil
}

// settle waits for the sensor to finish processing a command. A
// cancellable context aborts the wait early, before the reply is read.
func settle(ctx context.Context, d time.Duration) error {
	if ctx.Done() == nil {
		time.Sleep(d)
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ conn.Resource = &Dev{}

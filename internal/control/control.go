// Package control drives the power, USB and key lines of one attached DUT.
//
// A Handle holds no state beyond its signal table and acquired lines: every
// operation sets a line, and the hardware is the state. Handles are not safe
// for concurrent use; callers serialise operations on a handle.
package control

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/dut-control/internal/config"
	"github.com/sweeney/dut-control/internal/gpio"
)

// SettleDelay is how long Open waits after forcing power off and resolving
// the USB switch.
const SettleDelay = 500 * time.Millisecond

// ErrNotConfigured is returned when an operation targets a signal the DUT
// was not wired with.
var ErrNotConfigured = errors.New("signal not configured")

// Key identifies a button on the DUT.
type Key int

const (
	KeyFastboot Key = iota
	KeyPower
)

func (k Key) String() string {
	switch k {
	case KeyFastboot:
		return "fastboot"
	case KeyPower:
		return "power"
	}
	return fmt.Sprintf("key(%d)", int(k))
}

// Event reports a line that was set.
type Event struct {
	Time   time.Time
	Board  string
	Signal config.Signal
	On     bool
}

// Observer is notified after each successful line write.
type Observer interface {
	Record(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Record calls f(e).
func (f ObserverFunc) Record(e Event) { f(e) }

// Option configures a Handle.
type Option func(*Handle)

// WithSleep replaces time.Sleep for the settle delay.
func WithSleep(sleep func(time.Duration)) Option {
	return func(h *Handle) { h.sleep = sleep }
}

// WithNow replaces time.Now for event timestamps.
func WithNow(now func() time.Time) Option {
	return func(h *Handle) { h.now = now }
}

// WithObserver registers an observer for line writes. May be given more
// than once.
func WithObserver(o Observer) Option {
	return func(h *Handle) { h.observers = append(h.observers, o) }
}

// Handle is an attached DUT.
type Handle struct {
	board     string
	table     config.SignalTable
	lines     gpio.Lines
	sleep     func(time.Duration)
	now       func() time.Time
	observers []Observer
}

// Open acquires the lines of dev, forces the DUT off, resolves the USB
// switch according to dev.UsbAlwaysOn and waits SettleDelay.
// dev.HasPowerKey is set when a power key is wired.
func Open(dev *config.Device, backend gpio.Backend, opts ...Option) (*Handle, error) {
	h := &Handle{
		board: dev.Board,
		table: dev.Signals,
		sleep: time.Sleep,
		now:   time.Now,
	}
	for _, o := range opts {
		o(h)
	}

	lines, err := backend.Acquire(h.table)
	if err != nil {
		return nil, fmt.Errorf("acquire gpio: %w", err)
	}
	h.lines = lines

	if h.table.Has(config.PowerKey) {
		dev.HasPowerKey = true
	}

	h.Power(false)
	h.USB(dev.UsbAlwaysOn)

	h.sleep(SettleDelay)

	log.Printf("attached %s: power=%v usb=%v fastboot_key=%v power_key=%v usb_always_on=%v",
		h.board,
		h.table.Has(config.Power), h.table.Has(config.UsbDisconnect),
		h.table.Has(config.FastbootKey), h.table.Has(config.PowerKey),
		dev.UsbAlwaysOn)
	return h, nil
}

// toggle is the only place lines are written. Polarity is applied here so
// callers always speak in logical states.
func (h *Handle) toggle(sig config.Signal, on bool) error {
	if !h.table.Has(sig) {
		return ErrNotConfigured
	}

	if err := h.lines.SetLevel(sig, h.table[sig].Level(on)); err != nil {
		log.Printf("warning: %s %s: unable to set value: %v", h.board, sig, err)
		return nil
	}

	ev := Event{Time: h.now(), Board: h.board, Signal: sig, On: on}
	for _, o := range h.observers {
		o.Record(ev)
	}
	return nil
}

// Power switches the DUT's main power. It returns ErrNotConfigured when no
// power line is wired.
func (h *Handle) Power(on bool) error {
	return h.toggle(config.Power, on)
}

// USB drives the USB disconnect switch.
func (h *Handle) USB(on bool) {
	h.toggle(config.UsbDisconnect, on)
}

// Key asserts or releases a button. Unknown keys are ignored.
func (h *Handle) Key(k Key, asserted bool) {
	if sig, ok := KeySignal(k); ok {
		h.toggle(sig, asserted)
	}
}

// Configured reports whether sig is wired on this DUT.
func (h *Handle) Configured(sig config.Signal) bool {
	return h.table.Has(sig)
}

// Signals returns a copy of the signal table.
func (h *Handle) Signals() config.SignalTable {
	return h.table
}

// Board returns the board name of the attached DUT.
func (h *Handle) Board() string {
	return h.board
}

// Close releases the lines. The handle must not be used afterwards.
func (h *Handle) Close() error {
	if h.lines == nil {
		return nil
	}
	err := h.lines.Close()
	h.lines = nil
	return err
}

// KeySignal returns the signal a key is wired to.
func KeySignal(k Key) (config.Signal, bool) {
	switch k {
	case KeyFastboot:
		return config.FastbootKey, true
	case KeyPower:
		return config.PowerKey, true
	}
	return 0, false
}

// Package config contains the device document model: the fixed table of
// control signals for a DUT and the loader that builds it from YAML.
// This package has NO hardware dependencies.
package config

// Signal identifies one of the fixed control roles wired to a DUT.
type Signal int

const (
	Power Signal = iota
	FastbootKey
	PowerKey
	UsbDisconnect

	// NumSignals is the size of a SignalTable.
	NumSignals
)

var signalKeys = [NumSignals]string{
	Power:         "power",
	FastbootKey:   "fastboot_key",
	PowerKey:      "power_key",
	UsbDisconnect: "usb_disconnect",
}

// Key returns the name used for the signal in the device document.
func (s Signal) Key() string {
	if s < 0 || s >= NumSignals {
		return "unknown"
	}
	return signalKeys[s]
}

func (s Signal) String() string {
	return s.Key()
}

// Signals returns every role in table order.
func Signals() []Signal {
	return []Signal{Power, FastbootKey, PowerKey, UsbDisconnect}
}

func signalForKey(key string) (Signal, bool) {
	for i, k := range signalKeys {
		if k == key {
			return Signal(i), true
		}
	}
	return 0, false
}

// SignalBinding maps a role onto a physical GPIO line.
// Chip and Offset are meaningless unless Present is set.
type SignalBinding struct {
	Chip      string
	Offset    uint32
	ActiveLow bool
	Present   bool
}

// Level returns the physical line level that represents the logical state on.
func (b SignalBinding) Level(on bool) bool {
	return on != b.ActiveLow
}

// SignalTable holds one binding per role. It is a value type: copies never
// share state.
type SignalTable [NumSignals]SignalBinding

// Has reports whether the role was declared.
func (t SignalTable) Has(s Signal) bool {
	if s < 0 || s >= NumSignals {
		return false
	}
	return t[s].Present
}

// Device is the record shared between the loader, the control engine and
// the daemon.
type Device struct {
	Board       string
	Name        string
	UsbAlwaysOn bool
	Signals     SignalTable

	// HasPowerKey is set when the control engine attaches and finds a power
	// key wired.
	HasPowerKey bool
}

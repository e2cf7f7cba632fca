// Package status provides a thread-safe status tracker for the dut-control daemon.
// It is read by HTTP handlers and by MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/dut-control/internal/config"
	"github.com/sweeney/dut-control/internal/control"
)

// State is the last commanded state of a signal.
// It records what was written, not a read-back of the line.
type State string

const (
	StateOn      State = "ON"
	StateOff     State = "OFF"
	StateUnknown State = "UNKNOWN"
	StateAbsent  State = "ABSENT"
)

// NetworkInfo contains network state of the controller host.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	ConfigPath string
	Broker     string
	HTTPAddr   string
}

// SignalStatus is the tracked state of one signal.
type SignalStatus struct {
	Signal     config.Signal
	Configured bool
	Chip       string
	Offset     uint32
	ActiveLow  bool
	State      State
	Count      int // successful writes since attach
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Board         string
	Name          string
	Attached      bool
	HasPowerKey   bool
	UsbAlwaysOn   bool
	Signals       [config.NumSignals]SignalStatus
	LastChange    time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	t := &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
	for _, sig := range config.Signals() {
		t.snap.Signals[sig] = SignalStatus{Signal: sig, State: StateAbsent}
	}
	return t
}

// SetDevice records the device being controlled. Configured signals start
// UNKNOWN until the first write is recorded. Setting the same board again
// keeps the recorded states.
func (t *Tracker) SetDevice(dev *config.Device) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.snap.Signals
	same := t.snap.Board == dev.Board
	t.snap.Board = dev.Board
	t.snap.Name = dev.Name
	t.snap.UsbAlwaysOn = dev.UsbAlwaysOn
	t.snap.HasPowerKey = dev.HasPowerKey
	for _, sig := range config.Signals() {
		b := dev.Signals[sig]
		st := SignalStatus{Signal: sig, State: StateAbsent}
		if b.Present {
			st = SignalStatus{
				Signal:     sig,
				Configured: true,
				Chip:       b.Chip,
				Offset:     b.Offset,
				ActiveLow:  b.ActiveLow,
				State:      StateUnknown,
			}
			if same && prev[sig].Configured {
				st.State = prev[sig].State
				st.Count = prev[sig].Count
			}
		}
		t.snap.Signals[sig] = st
	}
}

// SetAttached records whether the lines are currently held.
func (t *Tracker) SetAttached(attached bool) {
	t.mu.Lock()
	t.snap.Attached = attached
	t.mu.Unlock()
}

// Record updates the state of the signal in e. It satisfies control.Observer.
func (t *Tracker) Record(e control.Event) {
	if e.Signal < 0 || e.Signal >= config.NumSignals {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	st := &t.snap.Signals[e.Signal]
	if e.On {
		st.State = StateOn
	} else {
		st.State = StateOff
	}
	st.Count++
	t.snap.LastChange = e.Time
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

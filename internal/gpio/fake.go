package gpio

import (
	"fmt"

	"github.com/sweeney/dut-control/internal/config"
)

// Call records a single SetLevel invocation.
type Call struct {
	Signal config.Signal
	High   bool
}

// FakeBackend is a test double that records acquisitions and line writes.
type FakeBackend struct {
	// AcquireError, if set, will be returned by Acquire.
	AcquireError error

	// SetErrors, if set for a signal, will be returned by SetLevel for it.
	SetErrors map[config.Signal]error

	// Acquired contains every table passed to Acquire.
	Acquired []config.SignalTable

	// Calls contains every SetLevel invocation across all acquired lines,
	// including ones that returned an error.
	Calls []Call

	// Closed counts Close calls on acquired lines.
	Closed int
}

// NewFakeBackend creates a FakeBackend for testing.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{SetErrors: make(map[config.Signal]error)}
}

// Acquire records the table and returns lines for its present bindings.
func (f *FakeBackend) Acquire(table config.SignalTable) (Lines, error) {
	if f.AcquireError != nil {
		return nil, f.AcquireError
	}
	f.Acquired = append(f.Acquired, table)
	return &FakeLines{backend: f, table: table}, nil
}

// CallsFor returns the recorded calls for one signal.
func (f *FakeBackend) CallsFor(sig config.Signal) []Call {
	var out []Call
	for _, c := range f.Calls {
		if c.Signal == sig {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears recorded calls and errors.
func (f *FakeBackend) Reset() {
	f.AcquireError = nil
	f.SetErrors = make(map[config.Signal]error)
	f.Acquired = nil
	f.Calls = nil
	f.Closed = 0
}

// FakeLines are the lines handed out by FakeBackend.
type FakeLines struct {
	backend *FakeBackend
	table   config.SignalTable
	closed  bool
}

// SetLevel records the call. Writing a signal that was not acquired is an
// error, as on real hardware.
func (l *FakeLines) SetLevel(sig config.Signal, high bool) error {
	if l.closed {
		return fmt.Errorf("%s: lines closed", sig)
	}
	if !l.table.Has(sig) {
		return fmt.Errorf("%s: line not acquired", sig)
	}
	l.backend.Calls = append(l.backend.Calls, Call{Signal: sig, High: high})
	if err := l.backend.SetErrors[sig]; err != nil {
		return err
	}
	return nil
}

// Close marks the lines closed.
func (l *FakeLines) Close() error {
	l.closed = true
	l.backend.Closed++
	return nil
}

// Package gpio provides GPIO output lines with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/dut-control/internal/config"

// Consumer is the label the kernel shows for lines held by this process.
const Consumer = "dut-control"

// Backend acquires the lines described by a signal table.
type Backend interface {
	// Acquire requests every present binding as an output driven to its
	// inactive level. Absent bindings are skipped.
	Acquire(table config.SignalTable) (Lines, error)
}

// Lines is a set of acquired output lines, one per present signal.
type Lines interface {
	// SetLevel drives the physical level of the line bound to sig.
	// Polarity has already been applied by the caller: high is high.
	SetLevel(sig config.Signal, high bool) error

	// Close releases the lines.
	Close() error
}

func levelValue(high bool) int {
	if high {
		return 1
	}
	return 0
}

//go:build linux

package gpio

import (
	"fmt"

	"github.com/sweeney/dut-control/internal/config"
	"github.com/warthog618/go-gpiocdev"
)

// ChipBackend acquires lines from the Linux GPIO character device.
type ChipBackend struct{}

// NewChipBackend returns a backend for the local GPIO chips.
func NewChipBackend() (*ChipBackend, error) {
	return &ChipBackend{}, nil
}

// ChipLines holds lines requested from one or more GPIO chips.
type ChipLines struct {
	lines [config.NumSignals]*gpiocdev.Line
}

// Acquire requests each present binding as an output at its inactive level.
// On failure every line already requested is released.
func (b *ChipBackend) Acquire(table config.SignalTable) (Lines, error) {
	cl := &ChipLines{}
	for _, sig := range config.Signals() {
		binding := table[sig]
		if !binding.Present {
			continue
		}
		if binding.Chip == "" {
			cl.Close()
			return nil, fmt.Errorf("%s: no chip configured", sig)
		}

		l, err := gpiocdev.RequestLine(binding.Chip, int(binding.Offset),
			gpiocdev.AsOutput(levelValue(binding.Level(false))),
			gpiocdev.WithConsumer(Consumer))
		if err != nil {
			cl.Close()
			return nil, fmt.Errorf("request %s line %s:%d: %w", sig, binding.Chip, binding.Offset, err)
		}
		cl.lines[sig] = l
	}
	return cl, nil
}

// SetLevel drives the line bound to sig.
func (c *ChipLines) SetLevel(sig config.Signal, high bool) error {
	if sig < 0 || sig >= config.NumSignals || c.lines[sig] == nil {
		return fmt.Errorf("%s: line not acquired", sig)
	}
	if err := c.lines[sig].SetValue(levelValue(high)); err != nil {
		return fmt.Errorf("set %s: %w", sig, err)
	}
	return nil
}

// Close releases every acquired line. Lines keep their last driven level
// until the kernel reclaims them, so a powered-off DUT stays off.
func (c *ChipLines) Close() error {
	var errs []error
	for i, l := range c.lines {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", config.Signal(i), err))
		}
		c.lines[i] = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

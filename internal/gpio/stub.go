//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/dut-control/internal/config"
)

// ChipBackend is not available on non-Linux platforms.
type ChipBackend struct{}

// NewChipBackend returns an error on non-Linux platforms.
func NewChipBackend() (*ChipBackend, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Acquire is not implemented on non-Linux platforms.
func (b *ChipBackend) Acquire(table config.SignalTable) (Lines, error) {
	return nil, errors.New("gpio: not supported")
}

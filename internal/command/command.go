// Package command parses the text commands accepted over MQTT and HTTP and
// applies them to a control handle.
package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sweeney/dut-control/internal/config"
	"github.com/sweeney/dut-control/internal/control"
)

// ErrSyntax is returned for text that is not a command.
var ErrSyntax = errors.New("invalid command")

// Target is the part of the DUT a command acts on.
type Target string

const (
	TargetPower Target = "power"
	TargetUSB   Target = "usb"
	TargetKey   Target = "key"
)

// Command is a parsed command.
type Command struct {
	Target Target
	Key    control.Key // only for TargetKey
	On     bool
}

func (c Command) String() string {
	state := "off"
	if c.On {
		state = "on"
	}
	if c.Target == TargetKey {
		return fmt.Sprintf("key %s %s", c.Key, state)
	}
	return fmt.Sprintf("%s %s", c.Target, state)
}

// Signal returns the signal the command drives.
func (c Command) Signal() config.Signal {
	switch c.Target {
	case TargetPower:
		return config.Power
	case TargetUSB:
		return config.UsbDisconnect
	}
	sig, _ := control.KeySignal(c.Key)
	return sig
}

// Controller is the subset of *control.Handle that commands need.
type Controller interface {
	Power(on bool) error
	USB(on bool)
	Key(k control.Key, asserted bool)
	Configured(sig config.Signal) bool
}

// Parse reads a command. Accepted forms, case-insensitive:
//
//	power on|off
//	usb on|off
//	key fastboot|power on|off
//	press fastboot|power
//	release fastboot|power
func Parse(text string) (Command, error) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty", ErrSyntax)
	}

	switch fields[0] {
	case "power", "usb":
		if len(fields) != 2 {
			break
		}
		on, ok := parseState(fields[1])
		if !ok {
			break
		}
		return Command{Target: Target(fields[0]), On: on}, nil

	case "key":
		if len(fields) != 3 {
			break
		}
		k, ok := parseKey(fields[1])
		if !ok {
			break
		}
		on, ok := parseState(fields[2])
		if !ok {
			break
		}
		return Command{Target: TargetKey, Key: k, On: on}, nil

	case "press", "release":
		if len(fields) != 2 {
			break
		}
		k, ok := parseKey(fields[1])
		if !ok {
			break
		}
		return Command{Target: TargetKey, Key: k, On: fields[0] == "press"}, nil
	}

	return Command{}, fmt.Errorf("%w: %q", ErrSyntax, text)
}

func parseState(s string) (bool, bool) {
	switch s {
	case "on", "1", "assert":
		return true, true
	case "off", "0", "deassert":
		return false, true
	}
	return false, false
}

func parseKey(s string) (control.Key, bool) {
	switch s {
	case "fastboot":
		return control.KeyFastboot, true
	case "power":
		return control.KeyPower, true
	}
	return 0, false
}

// Apply runs c against h. Unlike the handle itself, Apply reports a command
// for an unwired signal as control.ErrNotConfigured so remote callers learn
// about it.
func Apply(h Controller, c Command) error {
	if !h.Configured(c.Signal()) {
		return fmt.Errorf("%s: %w", c.Signal(), control.ErrNotConfigured)
	}

	switch c.Target {
	case TargetPower:
		return h.Power(c.On)
	case TargetUSB:
		h.USB(c.On)
	case TargetKey:
		h.Key(c.Key, c.On)
	}
	return nil
}

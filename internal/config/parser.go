package config

import (
	"fmt"
	"strconv"
)

// ParseSignals reads a sequence of single-key signal blocks:
//
//	- power:
//	    chip: gpiochip0
//	    line: 7
//	    active_low: true
//
// Roles may appear in any order and may be omitted. A role declared twice,
// an unknown role or an unknown option is an error.
func ParseSignals(c *Cursor) (SignalTable, error) {
	var table SignalTable

	if _, err := c.Expect(EventSequenceStart); err != nil {
		return table, err
	}

	for {
		if _, ok := c.Accept(EventMappingStart); !ok {
			break
		}

		line := c.Line()
		key, err := c.Expect(EventScalar)
		if err != nil {
			return table, err
		}
		sig, ok := signalForKey(key)
		if !ok {
			return table, &Error{Key: key, Line: line, Msg: fmt.Sprintf("unknown signal %q", key)}
		}
		if table[sig].Present {
			return table, &Error{Key: key, Line: line, Msg: fmt.Sprintf("signal %q declared twice", key)}
		}

		binding, err := parseBinding(c)
		if err != nil {
			return table, err
		}
		binding.Present = true
		table[sig] = binding

		if _, err := c.Expect(EventMappingEnd); err != nil {
			return table, err
		}
	}

	if _, err := c.Expect(EventSequenceEnd); err != nil {
		return table, err
	}
	return table, nil
}

// parseBinding reads the option mapping of one role, up to and including
// its mapping end.
func parseBinding(c *Cursor) (SignalBinding, error) {
	var b SignalBinding

	if _, err := c.Expect(EventMappingStart); err != nil {
		return b, err
	}

	for {
		line := c.Line()
		key, ok := c.Accept(EventScalar)
		if !ok {
			break
		}
		value, err := c.Expect(EventScalar)
		if err != nil {
			return b, err
		}

		switch key {
		case "chip":
			b.Chip = value
		case "line":
			offset, err := strconv.ParseUint(value, 0, 32)
			if err != nil {
				return b, &Error{Key: key, Line: line, Msg: fmt.Sprintf("invalid line %q", value)}
			}
			b.Offset = uint32(offset)
		case "active_low":
			b.ActiveLow = value == "true"
		default:
			return b, &Error{Key: key, Line: line, Msg: fmt.Sprintf("unknown option %q", key)}
		}
	}

	if _, err := c.Expect(EventMappingEnd); err != nil {
		return b, err
	}
	return b, nil
}

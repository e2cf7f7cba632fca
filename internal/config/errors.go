package config

import (
	"errors"
	"fmt"
)

// ErrUnknownDevice is returned when a board is not in the document.
var ErrUnknownDevice = errors.New("unknown device")

// Error describes an invalid device document. Key names the offending key
// when there is one.
type Error struct {
	Board string
	Key   string
	Line  int
	Msg   string
}

func (e *Error) Error() string {
	s := "config"
	if e.Board != "" {
		s += ": device " + e.Board
	}
	if e.Line > 0 {
		s += fmt.Sprintf(": line %d", e.Line)
	}
	return s + ": " + e.Msg
}

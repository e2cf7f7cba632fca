package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is a parsed device document.
type File struct {
	Devices []*Device
}

type fileDoc struct {
	Devices []deviceDoc `yaml:"devices"`
}

type deviceDoc struct {
	Board       string    `yaml:"board"`
	Name        string    `yaml:"name"`
	UsbAlwaysOn bool      `yaml:"usb_always_on"`
	LocalGPIO   yaml.Node `yaml:"local_gpio"`
}

// LoadFile reads and parses the device document at path.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a device document. Unknown keys anywhere in the document are
// errors; devices without a local_gpio list have no signals.
func Load(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc fileDoc
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &Error{Msg: "empty document"}
		}
		return nil, &Error{Msg: err.Error()}
	}

	file := &File{}
	seen := make(map[string]bool)
	for i := range doc.Devices {
		d := &doc.Devices[i]
		if d.Board == "" {
			return nil, &Error{Key: "board", Msg: fmt.Sprintf("device %d has no board", i)}
		}
		if seen[d.Board] {
			return nil, &Error{Board: d.Board, Key: "board", Msg: "board declared twice"}
		}
		seen[d.Board] = true

		dev := &Device{
			Board:       d.Board,
			Name:        d.Name,
			UsbAlwaysOn: d.UsbAlwaysOn,
		}
		if d.LocalGPIO.Kind != 0 {
			table, err := ParseSignals(NewCursor(&d.LocalGPIO))
			if err != nil {
				var cfgErr *Error
				if errors.As(err, &cfgErr) {
					cfgErr.Board = d.Board
				}
				return nil, err
			}
			dev.Signals = table
		}
		file.Devices = append(file.Devices, dev)
	}
	return file, nil
}

// Device returns the device with the given board name.
func (f *File) Device(board string) (*Device, error) {
	for _, d := range f.Devices {
		if d.Board == board {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, board)
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testDocument = `
devices:
  - board: db845c
    name: Dragonboard 845c
    usb_always_on: true
    local_gpio:
      - power:
          chip: gpiochip0
          line: 7
          active_low: true
      - power_key:
          chip: gpiochip0
          line: 8
      - usb_disconnect:
          chip: gpiochip1
          line: 0x1A
  - board: rb3
    name: Robotics RB3
  - board: qcs404
    local_gpio:
      - fastboot_key:
          chip: gpiochip2
          line: 4
`

func TestLoad(t *testing.T) {
	f, err := Load(strings.NewReader(testDocument))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Devices) != 3 {
		t.Fatalf("expected 3 devices, got %d", len(f.Devices))
	}

	db, err := f.Device("db845c")
	if err != nil {
		t.Fatalf("device db845c: %v", err)
	}
	if db.Name != "Dragonboard 845c" {
		t.Errorf("Name: got %q", db.Name)
	}
	if !db.UsbAlwaysOn {
		t.Error("expected UsbAlwaysOn=true")
	}
	if db.HasPowerKey {
		t.Error("HasPowerKey must only be set by the control engine")
	}
	want := SignalTable{
		Power:         {Chip: "gpiochip0", Offset: 7, ActiveLow: true, Present: true},
		PowerKey:      {Chip: "gpiochip0", Offset: 8, Present: true},
		UsbDisconnect: {Chip: "gpiochip1", Offset: 26, Present: true},
	}
	if db.Signals != want {
		t.Errorf("Signals: got %+v, want %+v", db.Signals, want)
	}

	rb3, err := f.Device("rb3")
	if err != nil {
		t.Fatalf("device rb3: %v", err)
	}
	if rb3.Signals != (SignalTable{}) {
		t.Errorf("rb3: expected no signals, got %+v", rb3.Signals)
	}
	if rb3.UsbAlwaysOn {
		t.Error("rb3: expected UsbAlwaysOn=false")
	}

	qcs, err := f.Device("qcs404")
	if err != nil {
		t.Fatalf("device qcs404: %v", err)
	}
	if !qcs.Signals.Has(FastbootKey) || qcs.Signals.Has(Power) {
		t.Errorf("qcs404: unexpected signals %+v", qcs.Signals)
	}
}

func TestLoadUnknownDevice(t *testing.T) {
	f, err := Load(strings.NewReader(testDocument))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.Device("nope"); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("expected ErrUnknownDevice, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantBoard string
		wantKey   string
	}{
		{
			name: "unknown signal",
			doc: `
devices:
  - board: b1
    local_gpio:
      - foo:
          chip: c0
`,
			wantBoard: "b1",
			wantKey:   "foo",
		},
		{
			name: "unknown option",
			doc: `
devices:
  - board: b1
    local_gpio:
      - power:
          voltage: 5
`,
			wantBoard: "b1",
			wantKey:   "voltage",
		},
		{
			name: "missing board",
			doc: `
devices:
  - name: nameless
`,
			wantKey: "board",
		},
		{
			name: "duplicate board",
			doc: `
devices:
  - board: b1
  - board: b1
`,
			wantBoard: "b1",
			wantKey:   "board",
		},
		{
			name: "unknown device key",
			doc: `
devices:
  - board: b1
    power_always_on: true
`,
		},
		{
			name: "empty document",
			doc:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			var cfgErr *Error
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if cfgErr.Board != tt.wantBoard {
				t.Errorf("Board: got %q, want %q", cfgErr.Board, tt.wantBoard)
			}
			if cfgErr.Key != tt.wantKey {
				t.Errorf("Key: got %q, want %q", cfgErr.Key, tt.wantKey)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	if err := os.WriteFile(path, []byte(testDocument), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Devices) != 3 {
		t.Errorf("expected 3 devices, got %d", len(f.Devices))
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Board: "b1", Key: "foo", Line: 4, Msg: `unknown signal "foo"`}
	want := `config: device b1: line 4: unknown signal "foo"`
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

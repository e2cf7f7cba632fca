package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/dut-control/internal/config"
	"github.com/sweeney/dut-control/internal/control"
)

func testDevice() *config.Device {
	var table config.SignalTable
	table[config.Power] = config.SignalBinding{Chip: "gpiochip0", Offset: 7, ActiveLow: true, Present: true}
	table[config.UsbDisconnect] = config.SignalBinding{Chip: "gpiochip1", Offset: 26, Present: true}
	return &config.Device{Board: "db845c", Name: "Dragonboard 845c", UsbAlwaysOn: true, Signals: table}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{ConfigPath: "/etc/dut-control.yaml", Broker: "tcp://localhost:1883", HTTPAddr: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.HTTPAddr != ":80" {
		t.Errorf("Config.HTTPAddr: got %q, want %q", snap.Config.HTTPAddr, ":80")
	}
	if snap.Attached {
		t.Error("expected Attached=false initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
	for _, st := range snap.Signals {
		if st.State != StateAbsent {
			t.Errorf("%s: got %q, want ABSENT", st.Signal, st.State)
		}
	}
}

func TestSetDevice(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	dev := testDevice()
	dev.HasPowerKey = true
	tr.SetDevice(dev)

	snap := tr.Snapshot()
	if snap.Board != "db845c" || snap.Name != "Dragonboard 845c" {
		t.Errorf("device: got %q / %q", snap.Board, snap.Name)
	}
	if !snap.UsbAlwaysOn || !snap.HasPowerKey {
		t.Errorf("flags: usb_always_on=%v has_power_key=%v", snap.UsbAlwaysOn, snap.HasPowerKey)
	}

	power := snap.Signals[config.Power]
	want := SignalStatus{Signal: config.Power, Configured: true, Chip: "gpiochip0", Offset: 7, ActiveLow: true, State: StateUnknown}
	if power != want {
		t.Errorf("power: got %+v, want %+v", power, want)
	}
	if snap.Signals[config.FastbootKey].State != StateAbsent {
		t.Errorf("fastboot_key: got %q, want ABSENT", snap.Signals[config.FastbootKey].State)
	}
}

func TestSetDeviceAgainKeepsState(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.SetDevice(testDevice())
	tr.Record(control.Event{Time: time.Now(), Signal: config.Power, On: false})

	dev := testDevice()
	dev.HasPowerKey = true
	tr.SetDevice(dev)

	snap := tr.Snapshot()
	if snap.Signals[config.Power].State != StateOff || snap.Signals[config.Power].Count != 1 {
		t.Errorf("power: got %+v, want OFF with 1 write", snap.Signals[config.Power])
	}
	if !snap.HasPowerKey {
		t.Error("expected HasPowerKey to be updated")
	}

	other := testDevice()
	other.Board = "rb3"
	tr.SetDevice(other)
	if st := tr.Snapshot().Signals[config.Power]; st.State != StateUnknown || st.Count != 0 {
		t.Errorf("new board should reset power, got %+v", st)
	}
}

func TestRecord(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.SetDevice(testDevice())
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tr.Record(control.Event{Time: at, Board: "db845c", Signal: config.Power, On: true})
	tr.Record(control.Event{Time: at.Add(time.Second), Board: "db845c", Signal: config.Power, On: false})
	tr.Record(control.Event{Time: at.Add(2 * time.Second), Board: "db845c", Signal: config.UsbDisconnect, On: true})

	snap := tr.Snapshot()
	if snap.Signals[config.Power].State != StateOff {
		t.Errorf("power state: got %q, want OFF", snap.Signals[config.Power].State)
	}
	if snap.Signals[config.Power].Count != 2 {
		t.Errorf("power count: got %d, want 2", snap.Signals[config.Power].Count)
	}
	if snap.Signals[config.UsbDisconnect].State != StateOn {
		t.Errorf("usb state: got %q, want ON", snap.Signals[config.UsbDisconnect].State)
	}
	if !snap.LastChange.Equal(at.Add(2 * time.Second)) {
		t.Errorf("LastChange: got %v", snap.LastChange)
	}

	// Out of range signals are ignored.
	tr.Record(control.Event{Signal: config.NumSignals, On: true})
}

func TestTrackerIsObserver(t *testing.T) {
	var _ control.Observer = NewTracker(time.Now(), Config{})
}

func TestSetAttached(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetAttached(true)
	if !tr.Snapshot().Attached {
		t.Error("expected Attached=true")
	}
	tr.SetAttached(false)
	if tr.Snapshot().Attached {
		t.Error("expected Attached=false")
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	net := &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"}
	tr.SetNetwork(net)

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected non-nil Network")
	}
	if snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want %q", snap.Network.IP, "192.168.1.42")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.SetDevice(testDevice())
	tr.Record(control.Event{Signal: config.Power, On: true})

	snap1 := tr.Snapshot()

	tr.Record(control.Event{Signal: config.Power, On: false})

	// snap1 should still reflect old state
	if snap1.Signals[config.Power].State != StateOn {
		t.Error("snapshot should be a copy; power state was modified")
	}
	if snap1.Signals[config.Power].Count != 1 {
		t.Error("snapshot should be a copy; power count was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(start, Config{Broker: "tcp://localhost:1883", HTTPAddr: ":80"})
	tr.SetDevice(testDevice())
	tr.SetAttached(true)
	tr.SetMQTTConnected(true)
	tr.Record(control.Event{Time: start.Add(time.Minute), Signal: config.Power, On: true})

	snap := tr.Snapshot()
	snap.Now = start.Add(15 * time.Minute)

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Board != "db845c" {
		t.Errorf("Board: got %q, want db845c", parsed.Status.Board)
	}
	if !parsed.Status.Attached {
		t.Error("expected Attached=true")
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if !parsed.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if parsed.Status.LastChange != "2026-01-01T00:01:00Z" {
		t.Errorf("LastChange: got %q", parsed.Status.LastChange)
	}

	power := parsed.Status.Signals["power"]
	if power.State != "ON" || !power.Configured || power.Line != 7 || !power.ActiveLow || power.Writes != 1 {
		t.Errorf("power: got %+v", power)
	}
	usb := parsed.Status.Signals["usb_disconnect"]
	if usb.State != "UNKNOWN" || usb.Line != 26 {
		t.Errorf("usb_disconnect: got %+v", usb)
	}
	if fb := parsed.Status.Signals["fastboot_key"]; fb.State != "ABSENT" || fb.Configured {
		t.Errorf("fastboot_key: got %+v", fb)
	}
	if len(parsed.Status.Signals) != int(config.NumSignals) {
		t.Errorf("expected %d signals, got %d", config.NumSignals, len(parsed.Status.Signals))
	}

	// Event and Reason should be omitted
	if parsed.Status.Event != "" {
		t.Errorf("expected empty Event for web format, got %q", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("expected empty Reason for web format, got %q", parsed.Status.Reason)
	}
}

func TestFormatJSONNoLastChange(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var raw map[string]interface{}
	json.Unmarshal(FormatJSON(snap), &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["last_change"]; exists {
		t.Error("last_change should be omitted before any write")
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Board:     "db845c",
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
	if parsed.Status.UptimeSeconds != 1800 {
		t.Errorf("UptimeSeconds: got %d, want 1800", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	// Verify "reason" is not in the raw JSON output
	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", parsed.Status.Network.IP)
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.SetDevice(testDevice())
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Record(control.Event{Time: time.Now(), Signal: config.Power, On: i%2 == 0})
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}

package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/dut-control/internal/config"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string                `json:"event,omitempty"`
	Reason        string                `json:"reason,omitempty"`
	Board         string                `json:"board"`
	Name          string                `json:"name,omitempty"`
	Attached      bool                  `json:"attached"`
	HasPowerKey   bool                  `json:"has_power_key"`
	UsbAlwaysOn   bool                  `json:"usb_always_on"`
	Signals       map[string]SignalJSON `json:"signals"`
	LastChange    string                `json:"last_change,omitempty"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	StartTime     string                `json:"start_time"`
	Timestamp     string                `json:"timestamp"`
	MQTT          MQTTStatus            `json:"mqtt"`
	Network       *NetworkJSON          `json:"network,omitempty"`
	Config        ConfigJSON            `json:"config"`
}

// SignalJSON is the JSON representation of one signal.
type SignalJSON struct {
	Configured bool   `json:"configured"`
	State      string `json:"state"`
	Chip       string `json:"chip,omitempty"`
	Line       uint32 `json:"line"`
	ActiveLow  bool   `json:"active_low"`
	Writes     int    `json:"writes"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	ConfigPath string `json:"config_path"`
	Broker     string `json:"broker"`
	HTTPAddr   string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Board:         snap.Board,
		Name:          snap.Name,
		Attached:      snap.Attached,
		HasPowerKey:   snap.HasPowerKey,
		UsbAlwaysOn:   snap.UsbAlwaysOn,
		Signals:       make(map[string]SignalJSON, config.NumSignals),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			ConfigPath: snap.Config.ConfigPath,
			Broker:     snap.Config.Broker,
			HTTPAddr:   snap.Config.HTTPAddr,
		},
	}
	if !snap.LastChange.IsZero() {
		inner.LastChange = snap.LastChange.UTC().Format(time.RFC3339)
	}

	for _, st := range snap.Signals {
		state := string(st.State)
		if state == "" {
			state = string(StateUnknown)
		}
		inner.Signals[st.Signal.Key()] = SignalJSON{
			Configured: st.Configured,
			State:      state,
			Chip:       st.Chip,
			Line:       st.Offset,
			ActiveLow:  st.ActiveLow,
			Writes:     st.Count,
		}
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

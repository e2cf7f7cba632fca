package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/dut-control/internal/config"
	"github.com/sweeney/dut-control/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stateClass": func(s status.State) string {
		switch s {
		case status.StateOn:
			return "on"
		case status.StateOff:
			return "off"
		case status.StateAbsent:
			return "absent"
		}
		return "unknown"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Board}} - dut-control</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.absent { color: #bbb; }
.note { color: #888; font-size: 0.9em; }
button { font-family: monospace; margin: 0 4px 4px 0; }
</style>
</head>
<body>
<h1>{{if .Name}}{{.Name}}{{else}}{{.Board}}{{end}}</h1>

<h2>Signals</h2>
<table>
<tr><th>Signal</th><th>Line</th><th>State</th></tr>
{{range .Signals}}<tr><td>{{.Signal}}</td>{{if .Configured}}<td>{{.Chip}}:{{.Offset}}{{if .ActiveLow}} (active low){{end}}</td>{{else}}<td class="absent">not wired</td>{{end}}<td id="state-{{.Signal}}" class="{{stateClass .State}}">{{.State}}</td></tr>
{{end}}</table>
<p class="note">States are the last value written, not read back from the line.</p>
{{if .Control}}
<h2>Control</h2>
<p>
{{if .Powered}}<button onclick="send('power on')">Power on</button> <button onclick="send('power off')">Power off</button>{{end}}
{{if .USB}}<button onclick="send('usb on')">USB on</button> <button onclick="send('usb off')">USB off</button>{{end}}
</p>
<p id="control-result"></p>
<script>
function send(cmd) {
  var out = document.getElementById("control-result");
  fetch("/control", { method: "POST", body: cmd }).then(function(r) {
    if (r.ok) { location.reload(); return; }
    return r.text().then(function(t) { out.textContent = cmd + ": " + t; });
  });
}
</script>
{{end}}
<h2>Device</h2>
<table>
<tr><th>Board</th><td>{{.Board}}</td></tr>
<tr><th>Attached</th><td>{{if .Attached}}yes{{else}}no{{end}}</td></tr>
<tr><th>Power key boot</th><td>{{if .HasPowerKey}}yes{{else}}no{{end}}</td></tr>
<tr><th>USB always on</th><td>{{if .UsbAlwaysOn}}yes{{else}}no{{end}}</td></tr>
{{if not .LastChange.IsZero}}<tr><th>Last change</th><td>{{.LastChange.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Config</th><td>{{.Config.ConfigPath}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, control bool) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime  time.Duration
		Control bool
		Powered bool
		USB     bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Control:  control,
		Powered:  snap.Signals[config.Power].Configured,
		USB:      snap.Signals[config.UsbDisconnect].Configured,
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("render status page: %v", err)
	}
}

package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/garden-controller/internal/status"
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
	"onOff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
	"ms": func(d time.Duration) int64 { return d.Milliseconds() },
	"stamp": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format("2006-01-02T15:04:05Z")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Garden Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.invalid { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Garden Controller{{if .Config.DeviceName}} ({{.Config.DeviceName}}){{end}}</h1>

<h2>Outputs</h2>
<table>
<tr><th>Light</th><td id="light-state" class="{{if .Light.On}}on{{else}}off{{end}}">{{onOff .Light.On}}</td></tr>
<tr><th>Light reason</th><td>{{.Light.Reason}} ({{.Light.Policy}})</td></tr>
<tr><th>Manual off</th><td>{{if .Light.ManualOff}}yes{{else}}no{{end}}</td></tr>
<tr><th>Valve</th><td id="valve-state" class="{{if .Watering.ValveOn}}on{{else}}off{{end}}">{{onOff .Watering.ValveOn}}</td></tr>
<tr><th>Valve reason</th><td>{{.Watering.Reason}} ({{.Watering.Policy}})</td></tr>
{{if eq (printf "%s" .Watering.Policy) "timer"}}<tr><th>Next watering</th><td>{{stamp .Watering.NextWateringDue}}</td></tr>{{end}}
</table>

<h2>Sensors</h2>
<table>
{{with .Sensors}}
<tr><th>Temperature</th><td>{{if .Climate.OK}}{{printf "%.1f" .Climate.TemperatureC}} &deg;C{{else}}<span class="invalid">invalid</span>{{end}}</td></tr>
<tr><th>Humidity</th><td>{{if .Climate.OK}}{{printf "%.0f" .Climate.HumidityPct}} %{{else}}<span class="invalid">invalid</span>{{end}}</td></tr>
<tr><th>Motion</th><td>{{if .Motion}}yes{{else}}no{{end}}</td></tr>
<tr><th>Soil</th><td>{{if .Soil.OK}}{{.Soil.Raw}}{{else}}<span class="invalid">invalid</span>{{end}}</td></tr>
<tr><th>Light level</th><td>{{if .LightLuxOK}}{{printf "%.0f" .LightLux}} lx{{else}}<span class="invalid">invalid</span>{{end}}</td></tr>
<tr><th>Read at</th><td>{{stamp .ReadAt}}</td></tr>
{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{.SessionState}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Parameters</h2>
<table>
<tr><th>Telemetry</th><td>{{ms .Params.TelemetryInterval}}ms</td></tr>
<tr><th>Sensor read</th><td>{{ms .Params.SensorReadInterval}}ms</td></tr>
<tr><th>Too cold</th><td>{{printf "%.1f" .Params.TempTooColdC}} &deg;C{{if not .Params.TempLightEnabled}} (disabled){{end}}</td></tr>
<tr><th>Valve min on/off</th><td>{{ms .Params.MinValveOn}}ms / {{ms .Params.MinValveOff}}ms</td></tr>
<tr><th>Watering</th><td>{{ms .Params.WateringDuration}}ms every {{ms .Params.WateringInterval}}ms</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Cycle</th><td>{{.Config.CycleMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Button presses</th><td>{{.Counts.ButtonPresses}}</td></tr>
<tr><th>Commands</th><td>{{.Counts.Commands}}</td></tr>
<tr><th>Telemetry sent/failed</th><td>{{.Counts.TelemetrySent}} / {{.Counts.TelemetryFailed}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}

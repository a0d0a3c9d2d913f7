package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/pulse-sensor/internal/status"
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
	"bpm": func(hr int) string {
		if hr == 0 {
			return "--"
		}
		return fmt.Sprintf("%d bpm", hr)
	},
	"f2": func(v float64) string {
		return fmt.Sprintf("%.2f", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Pulse Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.alert { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.faulted { color: red; }
</style>
</head>
<body>
<h1>Pulse Sensor</h1>

<h2>Vitals</h2>
<table>
<tr><th>Finger</th><td class="{{if .Presence}}on{{else}}off{{end}}">{{if .Presence}}PRESENT{{else}}ABSENT{{end}} ({{f2 .PresenceScore}})</td></tr>
<tr><th>Heart Rate</th><td>{{bpm .HeartRate}}</td></tr>
<tr><th>Rhythm</th><td class="{{if .Arrhythmia}}alert{{end}}">{{if .Arrhythmia}}IRREGULAR{{else}}normal{{end}}</td></tr>
<tr><th>Irregular Beats</th><td>{{.ArrhythmiaCount}}</td></tr>
</table>

<h2>Channels</h2>
<table>
<tr><th>Channel</th><td>Value / Quality</td></tr>
{{range $name, $r := .Channels}}<tr><th>{{$name}}</th><td{{if $r.Faulted}} class="faulted"{{end}}>{{if $r.Faulted}}FAULT (last {{f2 $r.Value}}){{else}}{{f2 $r.Value}} / {{f2 $r.Quality}}{{end}}</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Calibration</h2>
<table>
<tr><th>Sensitivity</th><td>{{f2 .Calibration.SensitivityLevel}}</td></tr>
<tr><th>Amplitude Threshold</th><td>{{f2 .Calibration.AmplitudeThreshold}}</td></tr>
<tr><th>Rhythm Threshold</th><td>{{f2 .Calibration.RhythmThreshold}}</td></tr>
<tr><th>Environment Factor</th><td>{{f2 .Calibration.EnvironmentQualityFactor}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Session</th><td>{{.SessionID}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}

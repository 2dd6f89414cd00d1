package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/heatcoil/internal/status"
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
	"celsius": func(s status.Snapshot) string {
		return fmt.Sprintf("%.2f", s.Celsius())
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Heat Coil</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: red; font-weight: bold; }
.off { color: #888; }
.fault { color: orange; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Heat Coil</h1>

<table>
<tr><th>Coil</th><td>{{if .Heating}}<span class="on">ON</span>{{else}}<span class="off">OFF</span>{{end}}</td></tr>
<tr><th>Temperature</th><td>{{.TempTicks}} ticks ({{celsius .}} &deg;C)</td></tr>
<tr><th>Thermocouple</th><td>{{if .SensorFault}}<span class="fault">OPEN</span>{{else}}connected{{end}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>MQTT</th><td>{{if .MQTTConnected}}<span class="connected">connected</span>{{else}}<span class="disconnected">disconnected</span>{{end}} ({{.Config.Broker}})</td></tr>
</table>

<table>
<tr><th>Engages</th><td>{{.Counts.Engages}}</td></tr>
<tr><th>Disengages</th><td>{{.Counts.Disengages}}</td></tr>
<tr><th>Overtemp trips</th><td>{{.Counts.Trips}}</td></tr>
</table>

<table>
<tr><th>Sample period</th><td>{{.Config.SamplePeriodMs}} ms</td></tr>
<tr><th>Pins (CS/CLK/DATA/HEAT)</th><td>{{.Config.PinCS}}/{{.Config.PinCLK}}/{{.Config.PinDATA}}/{{.Config.PinHeat}}</td></tr>
<tr><th>Sockets</th><td>{{.Config.SocketDir}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> &middot; <a href="/temp">temp</a> &middot; <a href="/status">status</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	if err := indexTmpl.Execute(w, snap); err != nil {
		log.Printf("web: render index: %v", err)
	}
}

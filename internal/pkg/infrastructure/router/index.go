package router

import (
	"html/template"
	"net/http"

	"github.com/diwise/integration-cycleroom/domain"
	"github.com/diwise/integration-cycleroom/internal/pkg/application/selection"
)

type indexData struct {
	Status           string
	Bikes            []domain.BikeOption
	ShowConfirmation bool
	RefreshMillis    int64
	Hint             string
}

func (router *routerStruct) index(w http.ResponseWriter, r *http.Request) {
	options, state := router.form.Options(r.Context())

	data := indexData{
		Status:           router.race.Frame().State.Status.String(),
		Bikes:            options,
		ShowConfirmation: router.form.ConfirmationVisible(),
		RefreshMillis:    router.race.Interval().Milliseconds(),
		Hint:             selection.IncompleteSelectionMessage,
	}

	if state.Err != nil {
		router.log.Warn().Err(state.Err).Msg("bike options unavailable")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		router.log.Error().Err(err).Msg("failed to render index page")
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Cycleroom</title>
</head>
<body>
<h1>Race Visualization</h1>
<p id="status">Data: {{.Status}}</p>
<img id="track" src="/api/race/track" width="800" height="400" alt="race track">
<h1>Bike Race Visualization</h1>
<img id="chart" src="/api/race/chart" width="800" height="400" alt="distance chart">
<h1>Bike Selection</h1>
<form method="post" action="/api/bike-selection" onsubmit="return validate(this)">
<label>Select a Bike:
<select name="device_address">
<option value="">Select a bike</option>
{{range .Bikes}}<option value="{{.Address}}">{{.DeviceName}} ({{.Address}})</option>
{{end}}</select>
</label>
<label>Enter Bike Number:
<input type="text" name="bike_number" placeholder="e.g. 1, 2, 3...">
</label>
<button type="submit">Save Selection</button>
</form>
{{if .ShowConfirmation}}<div id="confirmation">Bike selection saved!</div>{{end}}
<script>
function validate(form) {
  if (!form.device_address.value || !form.bike_number.value.trim()) {
    alert({{.Hint}});
    return false;
  }
  return true;
}
{{if gt .RefreshMillis 0}}setInterval(function () {
  var t = Date.now();
  document.getElementById("track").src = "/api/race/track?t=" + t;
  document.getElementById("chart").src = "/api/race/chart?t=" + t;
}, {{.RefreshMillis}});{{end}}
</script>
</body>
</html>
`))

package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/diwise/integration-cycleroom/domain"
	"github.com/diwise/integration-cycleroom/internal/pkg/application/poller"
	"github.com/diwise/integration-cycleroom/internal/pkg/application/render"
	"github.com/diwise/integration-cycleroom/internal/pkg/application/selection"
	"github.com/dustin/go-humanize"
)

const dataStatusHeader string = "X-Data-Status"

type raceResponse struct {
	Status     string          `json:"status"`
	Updated    *time.Time      `json:"updated,omitempty"`
	UpdatedAgo string          `json:"updatedAgo,omitempty"`
	Error      string          `json:"error,omitempty"`
	Bikes      []render.Marker `json:"bikes"`
}

type bikeOptionsResponse struct {
	Status string              `json:"status"`
	Bikes  []domain.BikeOption `json:"bikes"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newRaceResponse(state poller.State, markers []render.Marker) raceResponse {
	resp := raceResponse{
		Status: state.Status.String(),
		Bikes:  markers,
	}

	if !state.UpdatedAt.IsZero() {
		updated := state.UpdatedAt.UTC()
		resp.Updated = &updated
		resp.UpdatedAgo = humanize.Time(state.UpdatedAt)
	}

	if state.Err != nil {
		resp.Error = state.Err.Error()
	}

	return resp
}

func (router *routerStruct) raceState(w http.ResponseWriter, r *http.Request) {
	frame := router.race.Frame()

	w.Header().Set(dataStatusHeader, frame.State.Status.String())
	router.writeJSON(w, http.StatusOK, newRaceResponse(frame.State, frame.Track.Markers))
}

func (router *routerStruct) raceTrack(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		router.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	frame := router.race.Frame()

	buf := &bytes.Buffer{}
	if err := render.DrawTrack(buf, frame.Track, format); err != nil {
		router.log.Error().Err(err).Msg("failed to draw track")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	router.writeImage(w, format, frame.State, buf)
}

func (router *routerStruct) raceChart(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		router.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	frame := router.race.Frame()

	buf := &bytes.Buffer{}
	if err := render.DrawChart(buf, frame.Chart, format); err != nil {
		router.log.Error().Err(err).Msg("failed to draw chart")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	router.writeImage(w, format, frame.State, buf)
}

func (router *routerStruct) bikeOptions(w http.ResponseWriter, r *http.Request) {
	options, state := router.form.Options(r.Context())

	w.Header().Set(dataStatusHeader, state.Status.String())
	router.writeJSON(w, http.StatusOK, bikeOptionsResponse{
		Status: state.Status.String(),
		Bikes:  options,
	})
}

// saveBikeSelection accepts JSON from API clients and url encoded values from
// the form on the index page, which is redirected back to the page.
func (router *routerStruct) saveBikeSelection(w http.ResponseWriter, r *http.Request) {
	var sel domain.BikeSelection

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	fromForm := mediaType == "application/x-www-form-urlencoded"

	if fromForm {
		if err := r.ParseForm(); err != nil {
			router.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid form data"})
			return
		}
		sel.BikeNumber = r.PostForm.Get("bike_number")
		sel.DeviceAddress = r.PostForm.Get("device_address")
	} else if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
		router.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	saved, err := router.form.Submit(r.Context(), sel)
	if errors.Is(err, selection.ErrIncompleteSelection) {
		router.writeJSON(w, http.StatusBadRequest, errorResponse{Error: selection.IncompleteSelectionMessage})
		return
	}
	if err != nil {
		router.writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to save bike selection"})
		return
	}

	if fromForm {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	router.writeJSON(w, http.StatusCreated, saved)
}

func (router *routerStruct) confirmation(w http.ResponseWriter, r *http.Request) {
	router.writeJSON(w, http.StatusOK, struct {
		Visible bool `json:"visible"`
	}{
		Visible: router.form.ConfirmationVisible(),
	})
}

func (router *routerStruct) writeImage(w http.ResponseWriter, format render.Format, state poller.State, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set(dataStatusHeader, state.Status.String())
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		router.log.Error().Err(err).Msg("failed to write image")
	}
}

func (router *routerStruct) writeJSON(w http.ResponseWriter, code int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		router.log.Error().Err(err).Msg("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(b)
}

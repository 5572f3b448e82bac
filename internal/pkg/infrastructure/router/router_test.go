package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/diwise/integration-cycleroom/domain"
	"github.com/diwise/integration-cycleroom/internal/pkg/application"
	"github.com/diwise/integration-cycleroom/internal/pkg/application/poller"
	"github.com/diwise/integration-cycleroom/internal/pkg/application/render"
	"github.com/diwise/integration-cycleroom/internal/pkg/application/selection"
	"github.com/diwise/integration-cycleroom/internal/pkg/application/transform"
	"github.com/go-chi/chi"
	"github.com/matryer/is"
	"github.com/rs/zerolog/log"
)

func TestThatHealthEndpointReturns204(t *testing.T) {
	is := is.New(t)

	ts := httptest.NewServer(newRouterForTesting(freshRace(), &fakeForm{}).router)
	defer ts.Close()

	resp, _ := testRequest(is, ts, "GET", "/health", nil)

	is.Equal(resp.StatusCode, http.StatusNoContent) // health endpoint status code not ok
}

func TestThatRaceStateContainsMarkers(t *testing.T) {
	is := is.New(t)

	ts := httptest.NewServer(newRouterForTesting(freshRace(), &fakeForm{}).router)
	defer ts.Close()

	resp, body := testRequest(is, ts, "GET", "/api/race", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.Header.Get(dataStatusHeader), "fresh")

	race := raceResponse{}
	is.NoErr(json.Unmarshal([]byte(body), &race))
	is.Equal(race.Status, "fresh")
	is.True(race.Updated != nil)
	is.Equal(len(race.Bikes), 1)
	is.Equal(race.Bikes[0].Label, "AA:BB: 1.25m")
	is.Equal(race.Bikes[0].X, 250.0)
}

func TestThatStaleRaceStateReportsError(t *testing.T) {
	is := is.New(t)

	race := freshRace()
	race.frame.State.Status = poller.Stale
	race.frame.State.Err = errors.New("request failed, expected status code 200, got 404")

	ts := httptest.NewServer(newRouterForTesting(race, &fakeForm{}).router)
	defer ts.Close()

	resp, body := testRequest(is, ts, "GET", "/api/race", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.Header.Get(dataStatusHeader), "stale")
	is.True(strings.Contains(body, "got 404"))
	is.True(strings.Contains(body, "AA:BB"))
}

func TestThatTrackIsServedAsImage(t *testing.T) {
	is := is.New(t)

	ts := httptest.NewServer(newRouterForTesting(freshRace(), &fakeForm{}).router)
	defer ts.Close()

	resp, _ := testRequest(is, ts, "GET", "/api/race/track", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.Header.Get("Content-Type"), "image/png")

	resp, body := testRequest(is, ts, "GET", "/api/race/track?format=svg", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.Header.Get("Content-Type"), "image/svg+xml")
	is.True(strings.Contains(body, "AA:BB: 1.25m"))

	resp, _ = testRequest(is, ts, "GET", "/api/race/track?format=bmp", nil)
	is.Equal(resp.StatusCode, http.StatusBadRequest)
}

func TestThatChartIsServedWhenNeverLoaded(t *testing.T) {
	is := is.New(t)

	race := &fakeRace{frame: application.Frame{State: poller.State{Status: poller.NeverLoaded}}}

	ts := httptest.NewServer(newRouterForTesting(race, &fakeForm{}).router)
	defer ts.Close()

	resp, body := testRequest(is, ts, "GET", "/api/race/chart?format=svg", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.Header.Get(dataStatusHeader), "never-loaded")
	is.True(strings.Contains(body, render.NoDataMessage))
}

func TestThatChartIsServedForSingleBike(t *testing.T) {
	is := is.New(t)

	ts := httptest.NewServer(newRouterForTesting(freshRace(), &fakeForm{}).router)
	defer ts.Close()

	resp, _ := testRequest(is, ts, "GET", "/api/race/chart", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.Header.Get("Content-Type"), "image/png")

	resp, body := testRequest(is, ts, "GET", "/api/race/chart?format=svg", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.Header.Get(dataStatusHeader), "fresh")
	is.True(strings.Contains(body, "AA:BB"))
}

func TestThatSavedSelectionIsEchoedTrimmed(t *testing.T) {
	is := is.New(t)

	ts := httptest.NewServer(newRouterForTesting(freshRace(), &fakeForm{}).router)
	defer ts.Close()

	resp, body := testRequest(is, ts, "POST", "/api/bike-selection", strings.NewReader(`{"bike_number":" 2 ","device_address":"AA:BB "}`))
	is.Equal(resp.StatusCode, http.StatusCreated)

	saved := domain.BikeSelection{}
	is.NoErr(json.Unmarshal([]byte(body), &saved))
	is.Equal(saved, domain.BikeSelection{BikeNumber: "2", DeviceAddress: "AA:BB"})
}

func TestThatBikeOptionsAreListed(t *testing.T) {
	is := is.New(t)

	form := &fakeForm{options: []domain.BikeOption{{Address: "AA:BB", DeviceName: "Bike1"}}}

	ts := httptest.NewServer(newRouterForTesting(freshRace(), form).router)
	defer ts.Close()

	resp, body := testRequest(is, ts, "GET", "/api/bikes", nil)
	is.Equal(resp.StatusCode, http.StatusOK)

	options := bikeOptionsResponse{}
	is.NoErr(json.Unmarshal([]byte(body), &options))
	is.Equal(options.Bikes, form.options)
}

func TestThatBikeSelectionIsSaved(t *testing.T) {
	is := is.New(t)

	form := &fakeForm{}

	ts := httptest.NewServer(newRouterForTesting(freshRace(), form).router)
	defer ts.Close()

	resp, _ := testRequest(is, ts, "POST", "/api/bike-selection", strings.NewReader(`{"bike_number":"2","device_address":"AA:BB"}`))
	is.Equal(resp.StatusCode, http.StatusCreated)
	is.Equal(form.submitted, []domain.BikeSelection{{BikeNumber: "2", DeviceAddress: "AA:BB"}})

	resp, body := testRequest(is, ts, "GET", "/api/bike-selection/confirmation", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(strings.TrimSpace(body), `{"visible":true}`)
}

func TestThatIncompleteBikeSelectionIsRejected(t *testing.T) {
	is := is.New(t)

	form := &fakeForm{err: selection.ErrIncompleteSelection}

	ts := httptest.NewServer(newRouterForTesting(freshRace(), form).router)
	defer ts.Close()

	resp, body := testRequest(is, ts, "POST", "/api/bike-selection", strings.NewReader(`{"bike_number":"","device_address":"AA:BB"}`))
	is.Equal(resp.StatusCode, http.StatusBadRequest)
	is.True(strings.Contains(body, selection.IncompleteSelectionMessage))
}

func TestThatBackendFailureOnSelectionIsReported(t *testing.T) {
	is := is.New(t)

	form := &fakeForm{err: errors.New("request failed")}

	ts := httptest.NewServer(newRouterForTesting(freshRace(), form).router)
	defer ts.Close()

	resp, _ := testRequest(is, ts, "POST", "/api/bike-selection", strings.NewReader(`{"bike_number":"2","device_address":"AA:BB"}`))
	is.Equal(resp.StatusCode, http.StatusBadGateway)
}

func TestThatFormPostRedirectsToIndex(t *testing.T) {
	is := is.New(t)

	form := &fakeForm{}

	ts := httptest.NewServer(newRouterForTesting(freshRace(), form).router)
	defer ts.Close()

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	values := url.Values{"bike_number": {"5"}, "device_address": {"AA:BB"}}
	resp, err := client.PostForm(ts.URL+"/api/bike-selection", values)
	is.NoErr(err)
	defer resp.Body.Close()

	is.Equal(resp.StatusCode, http.StatusSeeOther)
	is.Equal(resp.Header.Get("Location"), "/")
	is.Equal(form.submitted[0].BikeNumber, "5")
}

func TestThatIndexPageListsBikes(t *testing.T) {
	is := is.New(t)

	form := &fakeForm{options: []domain.BikeOption{{Address: "AA:BB", DeviceName: "Bike1"}}}

	ts := httptest.NewServer(newRouterForTesting(freshRace(), form).router)
	defer ts.Close()

	resp, body := testRequest(is, ts, "GET", "/", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, "Bike1 (AA:BB)"))
	is.True(strings.Contains(body, "2000"))
}

func newRouterForTesting(race RaceView, form BikeSelector) *routerStruct {
	r := chi.NewRouter()
	log := log.Logger

	return SetupRouter(r, log, race, form)
}

func testRequest(is *is.I, ts *httptest.Server, method, path string, body io.Reader) (*http.Response, string) {
	req, _ := http.NewRequest(method, ts.URL+path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)
	respBody, _ := io.ReadAll(resp.Body)
	defer resp.Body.Close()

	return resp, string(respBody)
}

func freshRace() *fakeRace {
	snapshot := domain.Snapshot{"AA:BB": {DeviceName: "Bike1", Distance: 1.25}}

	return &fakeRace{
		frame: application.Frame{
			State: poller.State{
				Status:    poller.Fresh,
				Snapshot:  snapshot,
				UpdatedAt: time.Now().Add(-3 * time.Second),
				Sequence:  1,
			},
			Track: render.ProjectTrack(render.DefaultLayout(), transform.TrackEntries(snapshot)),
			Chart: transform.ChartPoints(snapshot),
		},
	}
}

type fakeRace struct {
	frame application.Frame
}

func (f *fakeRace) Frame() application.Frame {
	return f.frame
}

func (f *fakeRace) Interval() time.Duration {
	return poller.DefaultInterval
}

type fakeForm struct {
	options   []domain.BikeOption
	err       error
	submitted []domain.BikeSelection
	visible   bool
}

func (f *fakeForm) Options(ctx context.Context) ([]domain.BikeOption, poller.State) {
	return f.options, poller.State{Status: poller.Fresh}
}

func (f *fakeForm) Submit(ctx context.Context, sel domain.BikeSelection) (domain.BikeSelection, error) {
	if f.err != nil {
		return sel, f.err
	}
	sel.BikeNumber = strings.TrimSpace(sel.BikeNumber)
	sel.DeviceAddress = strings.TrimSpace(sel.DeviceAddress)
	f.submitted = append(f.submitted, sel)
	f.visible = true
	return sel, nil
}

func (f *fakeForm) ConfirmationVisible() bool {
	return f.visible
}

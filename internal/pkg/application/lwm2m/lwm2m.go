package lwm2m

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/diwise/integration-cycleroom/domain"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/farshidtz/senml/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

var tlsSkipVerify bool

func init() {
	tlsSkipVerify = env.GetVariableOrDefault(zerolog.Logger{}, "TLS_SKIP_VERIFY", "0") == "1"
}

var tracer = otel.Tracer("integration-cycleroom/lwm2m")

const (
	DistanceURN         string = "urn:oma:lwm2m:ext:3330"
	PowerMeasurementURN string = "urn:oma:lwm2m:ext:3305"
)

const (
	sensorValue           string = "5700"
	instantaneousActPower string = "5800"
)

// CreateAndSendAsLWM2M sends one distance pack per bike, and a power pack for
// bikes that report power.
func CreateAndSendAsLWM2M(ctx context.Context, snapshot domain.Snapshot, observedAt time.Time, url string, sender SenderFunc) error {
	logger := logging.GetFromContext(ctx)

	var errs []error

	addresses := make([]string, 0, len(snapshot))
	for address := range snapshot {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)

	for _, address := range addresses {
		bike := snapshot[address]
		log := logger.With().Str("device_id", address).Logger()

		packs := []senml.Pack{
			newPack(DistanceURN, sensorValue, address, bike.Distance, "km", observedAt),
		}

		if bike.Power > 0 {
			packs = append(packs, newPack(PowerMeasurementURN, instantaneousActPower, address, bike.Power, "W", observedAt))
		}

		for _, p := range packs {
			err := sender(ctx, url, p)
			if err != nil {
				log.Error().Err(err).Msg("could not send pack")
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

func newPack(baseName, name, id string, v float64, u string, t time.Time) senml.Pack {
	p := senml.Pack{
		senml.Record{
			BaseName:    baseName,
			BaseTime:    float64(t.Unix()),
			Name:        "0",
			StringValue: id,
		},
		newRec(name, v, u, t),
	}
	return p
}

func newRec(name string, v float64, u string, t time.Time) senml.Record {
	return senml.Record{
		Name:  name,
		Value: &v,
		Time:  float64(t.Unix()),
		Unit:  u,
	}
}

type SenderFunc = func(context.Context, string, senml.Pack) error

func Send(ctx context.Context, url string, pack senml.Pack) error {
	var err error

	ctx, span := tracer.Start(ctx, "send-object")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	var httpClient http.Client

	if tlsSkipVerify {
		customTransport := http.DefaultTransport.(*http.Transport).Clone()
		customTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		httpClient = http.Client{
			Transport: otelhttp.NewTransport(customTransport),
		}
	} else {
		httpClient = http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	var b []byte
	b, err = json.Marshal(pack)
	if err != nil {
		return err
	}

	var req *http.Request
	req, err = http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(b))
	if err != nil {
		return err
	}

	req.Header.Add("Content-Type", "application/senml+json")

	var resp *http.Response
	resp, err = httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		err = fmt.Errorf("unexpected response code %d", resp.StatusCode)
	}

	return err
}

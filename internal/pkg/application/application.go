package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/diwise/integration-cycleroom/domain"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

type CycleroomClient interface {
	GetBikes(ctx context.Context) (domain.Snapshot, error)
	SaveBikeSelection(ctx context.Context, selection domain.BikeSelection) error
}

type cycleroomClient struct {
	baseUrl    string
	httpClient http.Client
}

var tracer = otel.Tracer("integration-cycleroom/app")

func NewClient(baseUrl string) CycleroomClient {
	return &cycleroomClient{
		baseUrl: strings.TrimSuffix(baseUrl, "/"),
		httpClient: http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *cycleroomClient) GetBikes(ctx context.Context) (domain.Snapshot, error) {
	var err error

	ctx, span := tracer.Start(ctx, "get-bikes")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	var req *http.Request
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/bikes", c.baseUrl), nil)
	if err != nil {
		err = fmt.Errorf("failed to create request: %s", err.Error())
		return nil, err
	}

	req.Header.Add("Accept", "application/json")

	var response *http.Response
	response, err = c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed to retrieve bike data: %s", err.Error())
		return nil, err
	}

	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		err = fmt.Errorf("request failed, expected status code %d, got %d", http.StatusOK, response.StatusCode)
		return nil, err
	}

	var responseBytes []byte
	responseBytes, err = io.ReadAll(response.Body)
	if err != nil {
		err = fmt.Errorf("failed to read response body as bytes: %s", err.Error())
		return nil, err
	}

	snapshot := domain.Snapshot{}

	err = json.Unmarshal(responseBytes, &snapshot)
	if err != nil {
		err = fmt.Errorf("failed to unmarshal response: %s,\ndue to: %s", string(responseBytes), err.Error())
		return nil, err
	}

	return snapshot, nil
}

func (c *cycleroomClient) SaveBikeSelection(ctx context.Context, selection domain.BikeSelection) error {
	var err error

	ctx, span := tracer.Start(ctx, "save-bike-selection")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	var body []byte
	body, err = json.Marshal(selection)
	if err != nil {
		err = fmt.Errorf("failed to marshal bike selection: %s", err.Error())
		return err
	}

	var req *http.Request
	req, err = http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/api/bike-selection", c.baseUrl), bytes.NewBuffer(body))
	if err != nil {
		err = fmt.Errorf("failed to create request: %s", err.Error())
		return err
	}

	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")

	var response *http.Response
	response, err = c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed to save bike selection: %s", err.Error())
		return err
	}

	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		err = fmt.Errorf("request failed, expected a successful status code, got %d", response.StatusCode)
		return err
	}

	return nil
}

package fiware

import (
	"context"
	"errors"
	"time"

	"github.com/diwise/context-broker/pkg/ngsild"
	ngsierrors "github.com/diwise/context-broker/pkg/ngsild/errors"
	"github.com/diwise/context-broker/pkg/ngsild/types"
	"github.com/diwise/context-broker/pkg/ngsild/types/entities"
	. "github.com/diwise/context-broker/pkg/ngsild/types/entities/decorators"
	"github.com/diwise/context-broker/pkg/ngsild/types/properties"
	"github.com/diwise/integration-cycleroom/domain"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"
)

const (
	DeviceIDPrefix string = "urn:ngsi-ld:Device:cycleroom:"
	DeviceTypeName string = "Device"
)

// KiloMetre in UN/CEFACT common codes
const distanceUnitCode string = "KMT"

var tracer = otel.Tracer("integration-cycleroom/fiware")

// EntityWriter is the part of the context broker client used for publishing
type EntityWriter interface {
	CreateEntity(ctx context.Context, entity types.Entity, headers map[string][]string) (*ngsild.CreateEntityResult, error)
	MergeEntity(ctx context.Context, entityID string, fragment types.EntityFragment, headers map[string][]string) (*ngsild.MergeEntityResult, error)
}

// PublishSnapshot merges every bike of the snapshot into its own Device entity,
// creating the entity when the broker does not know it yet.
func PublishSnapshot(ctx context.Context, cbClient EntityWriter, snapshot domain.Snapshot, observedAt time.Time) error {
	var err error

	ctx, span := tracer.Start(ctx, "publish-bikes")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	_, ctx, logger := o11y.AddTraceIDToLoggerAndStoreInContext(span, logging.GetFromContext(ctx), ctx)

	timestamp := observedAt.UTC().Format(time.RFC3339)

	var errs []error

	for address, bike := range snapshot {
		if e := createOrUpdateBike(ctx, cbClient, address, bike, timestamp); e != nil {
			logger.Error().Err(e).Str("device_address", address).Msg("failed to publish bike")
			errs = append(errs, e)
		}
	}

	err = errors.Join(errs...)

	return err
}

func createOrUpdateBike(ctx context.Context, cbClient EntityWriter, address string, bike domain.Bike, timestamp string) error {
	logger := logging.GetFromContext(ctx)

	headers := map[string][]string{"Content-Type": {"application/ld+json"}}

	decorators := []entities.EntityDecoratorFunc{
		entities.DefaultContext(),
		Text("name", bike.DeviceName),
		DateTime(properties.DateObserved, timestamp),
		Number("distance", bike.Distance, properties.UnitCode(distanceUnitCode), properties.ObservedAt(timestamp)),
	}

	decorators = append(decorators, createFragmentsFromTelemetry(bike, timestamp)...)

	entityID := DeviceIDPrefix + address

	fragment, err := entities.NewFragment(decorators...)
	if err != nil {
		return err
	}

	_, err = cbClient.MergeEntity(ctx, entityID, fragment, headers)
	if err == nil {
		logger.Debug().Msgf("updated entity %s", entityID)
		return nil
	}

	if !errors.Is(err, ngsierrors.ErrNotFound) {
		return err
	}

	var entity types.Entity
	entity, err = entities.New(entityID, DeviceTypeName, decorators...)
	if err != nil {
		return err
	}

	_, err = cbClient.CreateEntity(ctx, entity, headers)
	if err != nil {
		return err
	}

	logger.Info().Msgf("created entity %s", entityID)

	return nil
}

func createFragmentsFromTelemetry(bike domain.Bike, timestamp string) []entities.EntityDecoratorFunc {
	readings := []entities.EntityDecoratorFunc{}

	for _, r := range []struct {
		name  string
		value float64
		unit  string
	}{
		{"cadence", bike.Cadence, unitCodes["rpm"]},
		{"power", bike.Power, unitCodes["watt"]},
		{"heartRate", bike.HeartRate, unitCodes["bpm"]},
	} {
		if r.value == 0 {
			continue
		}
		readings = append(readings, Number(
			r.name,
			r.value,
			properties.UnitCode(r.unit),
			properties.ObservedAt(timestamp),
		))
	}

	return readings
}

var unitCodes map[string]string = map[string]string{
	"rpm":  "RPM",
	"watt": "WTT",
	"bpm":  "BPM",
}

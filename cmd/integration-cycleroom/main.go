package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diwise/context-broker/pkg/ngsild/client"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/go-chi/chi"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/diwise/integration-cycleroom/internal/pkg/application"
	"github.com/diwise/integration-cycleroom/internal/pkg/application/poller"
	"github.com/diwise/integration-cycleroom/internal/pkg/application/render"
	"github.com/diwise/integration-cycleroom/internal/pkg/application/selection"
	"github.com/diwise/integration-cycleroom/internal/pkg/infrastructure/router"
)

const serviceName string = "integration-cycleroom"

func main() {
	serviceVersion := buildinfo.SourceVersion()

	// a missing .env file is fine, everything can be set in the environment
	_ = godotenv.Load()

	ctx, logger, cleanup := o11y.Init(context.Background(), serviceName, serviceVersion)
	defer cleanup()

	baseUrl := env.GetVariableOrDie(logger, "CYCLEROOM_API_URL", "cycleroom api base url")
	servicePort := env.GetVariableOrDefault(logger, "SERVICE_PORT", "8080")
	contextBrokerUrl := env.GetVariableOrDefault(logger, "CONTEXT_BROKER_URL", "")
	layoutFile := env.GetVariableOrDefault(logger, "TRACK_LAYOUT_FILE", "")
	lwm2mUrl := env.GetVariableOrDefault(logger, "LWM2M_URL", "")

	raceConfig := application.RaceConfig{
		Interval: durationOrDie(logger, "POLL_INTERVAL", poller.DefaultInterval),
		Timeout:  durationOrDie(logger, "REQUEST_TIMEOUT", 0),
		Layout:   render.DefaultLayout(),
		LwM2MURL: lwm2mUrl,
	}

	if layoutFile != "" {
		layout, err := render.LoadLayout(layoutFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load track layout")
		}
		raceConfig.Layout = layout
	}

	if contextBrokerUrl != "" {
		raceConfig.Broker = client.NewContextBrokerClient(contextBrokerUrl)
	} else {
		logger.Info().Msg("no context broker configured, bike data will not be published")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := application.NewClient(baseUrl)

	race := application.StartRace(ctx, api, raceConfig)
	defer race.Stop()

	form := selection.NewForm(api)
	defer form.Close()

	r := router.SetupRouter(chi.NewRouter(), logger, race, form)

	if err := r.Start(ctx, servicePort); err != nil {
		logger.Error().Err(err).Msg("failed to start router")
		return
	}

	logger.Info().Msg("shutting down")
}

func durationOrDie(logger zerolog.Logger, name string, defaultValue time.Duration) time.Duration {
	value := env.GetVariableOrDefault(logger, name, defaultValue.String())

	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Fatal().Err(err).Str("name", name).Msg("invalid duration")
	}

	return d
}

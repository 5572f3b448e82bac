package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/diwise/integration-cycleroom/domain"
	"github.com/diwise/integration-cycleroom/internal/pkg/application"
	"github.com/diwise/integration-cycleroom/internal/pkg/application/poller"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/rs/zerolog"
)

type Router interface {
	Start(ctx context.Context, port string) error
}

type RaceView interface {
	Frame() application.Frame
	Interval() time.Duration
}

type BikeSelector interface {
	Options(ctx context.Context) ([]domain.BikeOption, poller.State)
	Submit(ctx context.Context, selection domain.BikeSelection) (domain.BikeSelection, error)
	ConfirmationVisible() bool
}

type routerStruct struct {
	router chi.Router
	log    zerolog.Logger
	race   RaceView
	form   BikeSelector
}

func SetupRouter(chiRouter chi.Router, log zerolog.Logger, race RaceView, form BikeSelector) *routerStruct {
	r := &routerStruct{
		router: chiRouter,
		log:    log,
		race:   race,
		form:   form,
	}

	chiRouter.Use(middleware.Logger)
	chiRouter.Get("/health", r.health)
	chiRouter.Get("/", r.index)

	chiRouter.Route("/api", func(api chi.Router) {
		api.Get("/race", r.raceState)
		api.Get("/race/track", r.raceTrack)
		api.Get("/race/chart", r.raceChart)
		api.Get("/bikes", r.bikeOptions)
		api.Post("/bike-selection", r.saveBikeSelection)
		api.Get("/bike-selection/confirmation", r.confirmation)
	})

	return r
}

func (r *routerStruct) Start(ctx context.Context, port string) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: r.router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	r.log.Info().Str("port", port).Msg("starting to listen for connections")

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func (router *routerStruct) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

package application

import (
	"context"
	"time"

	"github.com/diwise/integration-cycleroom/internal/pkg/application/fiware"
	"github.com/diwise/integration-cycleroom/internal/pkg/application/lwm2m"
	"github.com/diwise/integration-cycleroom/internal/pkg/application/poller"
	"github.com/diwise/integration-cycleroom/internal/pkg/application/render"
	"github.com/diwise/integration-cycleroom/internal/pkg/application/transform"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

type RaceConfig struct {
	Interval time.Duration
	Timeout  time.Duration
	Layout   render.Layout
	// Broker and LwM2MURL are optional, fresh snapshots are published to
	// whichever is set
	Broker   fiware.EntityWriter
	LwM2MURL string
}

// Frame is everything needed to render one view, derived from a single state
type Frame struct {
	State poller.State
	Track render.TrackFrame
	Chart []transform.ChartPoint
}

type Race struct {
	poller   *poller.Handle
	layout   render.Layout
	interval time.Duration
}

func StartRace(ctx context.Context, client CycleroomClient, cfg RaceConfig) *Race {
	opts := []poller.Option{
		poller.WithInterval(cfg.Interval),
		poller.WithTimeout(cfg.Timeout),
	}

	if cfg.Broker != nil {
		opts = append(opts, poller.WithListener(publishTo(cfg.Broker)))
	}

	if cfg.LwM2MURL != "" {
		opts = append(opts, poller.WithListener(sendTo(cfg.LwM2MURL, lwm2m.Send)))
	}

	layout := cfg.Layout
	if err := layout.Validate(); err != nil {
		logger := logging.GetFromContext(ctx)
		logger.Warn().Err(err).Msg("track layout not usable, falling back to the default layout")
		layout = render.DefaultLayout()
	}

	return &Race{
		poller:   poller.Start(ctx, client.GetBikes, opts...),
		layout:   layout,
		interval: cfg.Interval,
	}
}

func (r *Race) Frame() Frame {
	state := r.poller.State()

	return Frame{
		State: state,
		Track: render.ProjectTrack(r.layout, transform.TrackEntries(state.Snapshot)),
		Chart: transform.ChartPoints(state.Snapshot),
	}
}

func (r *Race) Interval() time.Duration {
	return r.interval
}

func (r *Race) Stop() {
	r.poller.Stop()
}

func publishTo(broker fiware.EntityWriter) poller.Listener {
	return func(ctx context.Context, state poller.State) {
		if state.Status != poller.Fresh {
			return
		}
		// failures are logged by the publisher and never affect the race state
		_ = fiware.PublishSnapshot(ctx, broker, state.Snapshot, state.UpdatedAt)
	}
}

func sendTo(url string, sender lwm2m.SenderFunc) poller.Listener {
	return func(ctx context.Context, state poller.State) {
		if state.Status != poller.Fresh {
			return
		}
		_ = lwm2m.CreateAndSendAsLWM2M(ctx, state.Snapshot, state.UpdatedAt, url, sender)
	}
}

package selection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/diwise/integration-cycleroom/domain"
	"github.com/diwise/integration-cycleroom/internal/pkg/application/poller"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

const ConfirmationPeriod time.Duration = 3 * time.Second

// IncompleteSelectionMessage is shown to the user when a field is left empty
const IncompleteSelectionMessage string = "Please select a bike and enter a number."

var ErrIncompleteSelection = errors.New("bike selection requires both a bike and a bike number")

type BikeAPI interface {
	GetBikes(ctx context.Context) (domain.Snapshot, error)
	SaveBikeSelection(ctx context.Context, selection domain.BikeSelection) error
}

// OptionsMaxAge is how long a fetched bike list is reused before the next
// page load fetches it again.
const OptionsMaxAge time.Duration = poller.DefaultInterval

type Form struct {
	api    BikeAPI
	banner *banner
	maxAge time.Duration

	mu    sync.Mutex
	state poller.State
}

func NewForm(api BikeAPI) *Form {
	return &Form{
		api:    api,
		banner: &banner{period: ConfirmationPeriod},
		maxAge: OptionsMaxAge,
	}
}

// Options lists the selectable bikes. The list is fetched again when the last
// fetch failed or is older than OptionsMaxAge, so bikes that connect after
// startup show up on the next page load.
func (f *Form) Options(ctx context.Context) ([]domain.BikeOption, poller.State) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.Status != poller.Fresh || time.Since(f.state.UpdatedAt) >= f.maxAge {
		snapshot, err := f.api.GetBikes(ctx)
		f.state = f.state.Next(f.state.Sequence+1, snapshot, err, time.Now())

		if err != nil {
			logger := logging.GetFromContext(ctx)
			logger.Error().Err(err).Str("status", f.state.Status.String()).Msg("failed to fetch bike options")
		}
	}

	return Options(f.state.Snapshot), f.state
}

// Submit saves a selection and returns it as it was sent to the backend.
func (f *Form) Submit(ctx context.Context, selection domain.BikeSelection) (domain.BikeSelection, error) {
	logger := logging.GetFromContext(ctx)

	selection.BikeNumber = strings.TrimSpace(selection.BikeNumber)
	selection.DeviceAddress = strings.TrimSpace(selection.DeviceAddress)

	if selection.BikeNumber == "" || selection.DeviceAddress == "" {
		return selection, ErrIncompleteSelection
	}

	err := f.api.SaveBikeSelection(ctx, selection)
	if err != nil {
		logger.Error().Err(err).Str("device_address", selection.DeviceAddress).Msg("failed to save bike selection")
		return selection, fmt.Errorf("saving bike selection: %w", err)
	}

	logger.Info().Str("device_address", selection.DeviceAddress).Str("bike_number", selection.BikeNumber).Msg("bike selection saved")

	f.banner.show()

	return selection, nil
}

func (f *Form) ConfirmationVisible() bool {
	return f.banner.isVisible()
}

func (f *Form) Close() {
	f.banner.hide()
}

// Options lists the bikes of a snapshot ordered by address
func Options(snapshot domain.Snapshot) []domain.BikeOption {
	options := make([]domain.BikeOption, 0, len(snapshot))
	for address, bike := range snapshot {
		options = append(options, domain.BikeOption{Address: address, DeviceName: bike.DeviceName})
	}

	sort.Slice(options, func(i, j int) bool {
		return options[i].Address < options[j].Address
	})

	return options
}

type banner struct {
	mu      sync.Mutex
	period  time.Duration
	visible bool
	timer   *time.Timer
	shown   uint64
}

// show makes the banner visible for one period. A second show restarts the period.
func (b *banner) show() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
	}

	b.visible = true
	b.shown++

	shown := b.shown
	b.timer = time.AfterFunc(b.period, func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		// a timer that already fired may still belong to an earlier show
		if b.shown == shown {
			b.visible = false
			b.timer = nil
		}
	})
}

func (b *banner) hide() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.visible = false
}

func (b *banner) isVisible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.visible
}

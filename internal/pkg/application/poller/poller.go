package poller

import (
	"context"
	"sync"
	"time"

	"github.com/diwise/integration-cycleroom/domain"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"go.uber.org/atomic"
)

const DefaultInterval time.Duration = 2000 * time.Millisecond

type Status int

const (
	NeverLoaded Status = iota
	Fresh
	Stale
)

func (s Status) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "never-loaded"
	}
}

// State is the outcome of the most recently applied fetch. Snapshot is shared
// between copies of the state and must be treated as read only.
type State struct {
	Status    Status
	Snapshot  domain.Snapshot
	UpdatedAt time.Time
	Err       error
	Sequence  uint64
}

// Next returns the state that follows a fetch result. A snapshot replaces the
// state, an error keeps the previous snapshot and marks it stale.
func (s State) Next(seq uint64, snapshot domain.Snapshot, err error, now time.Time) State {
	if seq > s.Sequence {
		s.Sequence = seq
	}

	if err != nil {
		s.Err = err
		if s.Status == Fresh {
			s.Status = Stale
		}
		return s
	}

	return State{
		Status:    Fresh,
		Snapshot:  snapshot,
		UpdatedAt: now,
		Sequence:  s.Sequence,
	}
}

type FetchFunc func(ctx context.Context) (domain.Snapshot, error)

type Listener func(ctx context.Context, state State)

type Option func(*Handle)

// WithInterval sets the period between fetches. Zero or less fetches once.
func WithInterval(interval time.Duration) Option {
	return func(h *Handle) {
		h.interval = interval
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(h *Handle) {
		h.timeout = timeout
	}
}

func WithListener(l Listener) Option {
	return func(h *Handle) {
		h.listeners = append(h.listeners, l)
	}
}

type Handle struct {
	fetch     FetchFunc
	interval  time.Duration
	timeout   time.Duration
	listeners []Listener

	seq atomic.Uint64

	mu          sync.Mutex
	state       State
	lastSuccess uint64
	lastFailure uint64
	lastErr     error
	version     uint64

	notifyMu sync.Mutex
	notified uint64

	cancel   context.CancelFunc
	done     chan struct{}
	inflight sync.WaitGroup
	stopOnce sync.Once
}

// Start fetches immediately and then once per interval until Stop is called
// or ctx is cancelled.
func Start(ctx context.Context, fetch FetchFunc, opts ...Option) *Handle {
	h := &Handle{
		fetch:    fetch,
		interval: DefaultInterval,
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(h)
	}

	ctx, h.cancel = context.WithCancel(ctx)

	go h.run(ctx)

	return h
}

func (h *Handle) run(ctx context.Context) {
	defer close(h.done)

	h.poll(ctx)

	if h.interval <= 0 {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.poll(ctx)
		}
	}
}

// poll starts a fetch without waiting for it, so a slow response never
// delays the next tick. Overlapping responses are ordered by apply.
func (h *Handle) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	seq := h.seq.Inc()

	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()

		fetchCtx := ctx
		if h.timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, h.timeout)
			defer cancel()
		}

		snapshot, err := h.fetch(fetchCtx)
		h.apply(ctx, seq, snapshot, err)
	}()
}

func (h *Handle) apply(ctx context.Context, seq uint64, snapshot domain.Snapshot, err error) {
	if ctx.Err() != nil {
		return
	}

	logger := logging.GetFromContext(ctx).With().Uint64("seq", seq).Logger()

	h.mu.Lock()

	// a success is only superseded by a newer success, a failure by anything newer
	if seq < h.lastSuccess || (err != nil && seq < h.lastFailure) {
		lastSuccess, lastFailure := h.lastSuccess, h.lastFailure
		h.mu.Unlock()
		logger.Debug().Uint64("lastSuccess", lastSuccess).Uint64("lastFailure", lastFailure).Msg("discarding out of order response")
		return
	}

	h.state = h.state.Next(seq, snapshot, err, time.Now())

	if err != nil {
		h.lastFailure = seq
		h.lastErr = err
	} else {
		h.lastSuccess = seq
		if seq < h.lastFailure {
			// a newer poll has already failed
			h.state.Status = Stale
			h.state.Err = h.lastErr
		}
	}

	h.version++
	version, state := h.version, h.state
	h.mu.Unlock()

	if err != nil {
		logger.Error().Err(err).Str("status", state.Status.String()).Msg("failed to fetch bike data, keeping previous snapshot")
	} else {
		logger.Debug().Int("bikes", len(snapshot)).Msg("applied new snapshot")
	}

	h.notify(ctx, version, state)
}

// notify hands a state to the listeners in the order the states were applied.
// A state overtaken by a newer one before it got here is dropped.
func (h *Handle) notify(ctx context.Context, version uint64, state State) {
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	if version <= h.notified {
		return
	}
	h.notified = version

	for _, l := range h.listeners {
		l(ctx, state)
	}
}

func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.state
}

// Stop cancels the repetition and any fetch in flight, and returns once no
// further fetch can start or change the state.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		h.cancel()
		<-h.done
		h.inflight.Wait()
	})
}

package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/reel-feed-service/internal/domain"
	"github.com/orgball2608/reel-feed-service/internal/videocache"
	apperrors "github.com/orgball2608/reel-feed-service/pkg/errors"
	"github.com/orgball2608/reel-feed-service/pkg/logger"
)

const (
	// tick is the cadence of the buffer loop.
	tick = 500 * time.Millisecond
	// segmentDuration is how much media one successful segment read buys.
	segmentDuration = time.Second
	// healthyBuffer is the fill level at which a stalled session recovers.
	healthyBuffer = segmentDuration
)

// Deps are the collaborators a controller needs; the manager fills them in.
type Deps struct {
	Warm   *videocache.Cache
	Loader videocache.MetadataLoader
	Source SegmentSource
	Clock  clockwork.Clock
	Logger logger.Logger

	MaxBitrateBps int
	ForwardBuffer time.Duration
}

// Controller owns one playback session for one on-screen video. Metadata is
// warm-started from the video cache when possible; the buffer loop then pulls
// segments at a capped bitrate into a bounded forward buffer and toggles
// Ready/Stalled as the buffer drains and refills. Reaching end of media seeks
// back to the start and keeps playing.
type Controller struct {
	id        uuid.UUID
	deps      Deps
	logger    logger.Logger
	createdAt time.Time

	mu        sync.Mutex
	state     State
	url       string
	meta      domain.VideoMetadata
	lastErr   error
	observers []Observer
	cancel    context.CancelFunc
}

func NewController(deps Deps) *Controller {
	return &Controller{
		id:        uuid.New(),
		deps:      deps,
		logger:    deps.Logger.WithComponent("PlaybackController"),
		createdAt: deps.Clock.Now(),
		state:     StateIdle,
	}
}

func (c *Controller) ID() uuid.UUID { return c.id }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the failure cause when the session is in StateFailed.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// OnStateChange registers an observer. Observers are dropped on Release.
func (c *Controller) OnStateChange(fn Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateReleased {
		return
	}
	c.observers = append(c.observers, fn)
}

// Prepare starts the session for url. Allowed from Idle, and from Failed as
// an explicit caller-driven re-prepare; there is no automatic retry. A
// session that is already loading or playing is left alone.
func (c *Controller) Prepare(ctx context.Context, url string) error {
	c.mu.Lock()
	switch c.state {
	case StateReleased:
		c.mu.Unlock()
		return fmt.Errorf("prepare on released session %s", c.id)
	case StateLoading, StateReady, StateStalled:
		c.mu.Unlock()
		return nil
	}

	c.url = url
	c.lastErr = nil
	loopCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	c.transition(StateLoading)
	go c.run(loopCtx, url)
	return nil
}

// Release tears the session down: the buffer loop is cancelled and observers
// removed before it returns. Safe to call any number of times.
func (c *Controller) Release() {
	c.mu.Lock()
	if c.state == StateReleased {
		c.mu.Unlock()
		return
	}
	from := c.state
	c.state = StateReleased
	cancel := c.cancel
	c.cancel = nil
	observers := c.observers
	c.observers = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, fn := range observers {
		fn(from, StateReleased)
	}
}

func (c *Controller) run(ctx context.Context, url string) {
	meta, err := c.resolveMetadata(ctx, url)
	if err != nil {
		c.fail(err)
		return
	}
	if !meta.Playable {
		c.fail(fmt.Errorf("%w: %s reported not playable", apperrors.ErrDecode, url))
		return
	}

	c.mu.Lock()
	c.meta = meta
	c.mu.Unlock()

	// Autoplay: the current feed item always plays, no gesture required.
	c.transition(StateReady)
	c.bufferLoop(ctx, meta)
}

// resolveMetadata prefers the warm handle and falls back to a cold load.
func (c *Controller) resolveMetadata(ctx context.Context, url string) (domain.VideoMetadata, error) {
	if c.deps.Warm != nil {
		if asset := c.deps.Warm.Asset(url); asset != nil {
			return asset.Metadata(ctx)
		}
	}
	return c.deps.Loader.Load(ctx, url)
}

func (c *Controller) bufferLoop(ctx context.Context, meta domain.VideoMetadata) {
	ticker := c.deps.Clock.NewTicker(tick)
	defer ticker.Stop()

	// One segmentDuration of media at the bitrate ceiling.
	segmentBytes := int64(c.deps.MaxBitrateBps/8) * int64(segmentDuration/time.Second)

	var pos, buffered time.Duration
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}

		// Playback intent is never paused, so the buffer drains every tick
		// even while stalled.
		buffered -= tick
		if buffered < 0 {
			buffered = 0
		}
		pos += tick
		if meta.Duration > 0 && pos >= meta.Duration {
			pos = 0
		}

		if buffered < c.deps.ForwardBuffer {
			offset := int64(pos/segmentDuration) * segmentBytes
			if _, err := c.deps.Source.ReadSegment(ctx, c.url, offset, segmentBytes); err != nil {
				if ctx.Err() != nil {
					return
				}
				if buffered == 0 {
					c.transitionIf(StateReady, StateStalled)
				}
				continue
			}
			buffered += segmentDuration
		}

		if buffered >= healthyBuffer {
			c.transitionIf(StateStalled, StateReady)
		}
	}
}

func (c *Controller) fail(err error) {
	c.mu.Lock()
	if c.state == StateReleased {
		c.mu.Unlock()
		return
	}
	from := c.state
	c.state = StateFailed
	c.lastErr = err
	observers := make([]Observer, len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	c.logger.Warn("Playback session failed", "url", c.url, "error", err)
	for _, fn := range observers {
		fn(from, StateFailed)
	}
}

func (c *Controller) transition(to State) {
	c.mu.Lock()
	if c.state == StateReleased || c.state == to {
		c.mu.Unlock()
		return
	}
	from := c.state
	c.state = to
	observers := make([]Observer, len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(from, to)
	}
}

func (c *Controller) transitionIf(from, to State) {
	c.mu.Lock()
	if c.state != from {
		c.mu.Unlock()
		return
	}
	c.state = to
	observers := make([]Observer, len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(from, to)
	}
}

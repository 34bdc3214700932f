package playback

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/reel-feed-service/internal/videocache"
	"github.com/orgball2608/reel-feed-service/pkg/config"
	"github.com/orgball2608/reel-feed-service/pkg/logger"
)

// Manager holds the single live playback session. At most one controller per
// on-screen slot is in a non-Released state: activating a new item releases
// the previous controller before the new Prepare runs.
type Manager struct {
	deps   Deps
	logger logger.Logger

	// activateMu serializes the whole release+prepare sequence; without it two
	// racing Activate calls can both observe no previous session and leave two
	// live buffer loops behind.
	activateMu sync.Mutex

	mu     sync.Mutex
	active *Controller
}

func NewManager(cfg *config.Config, warm *videocache.Cache, loader videocache.MetadataLoader, source SegmentSource, log logger.Logger) *Manager {
	return &Manager{
		deps: Deps{
			Warm:          warm,
			Loader:        loader,
			Source:        source,
			Clock:         clockwork.NewRealClock(),
			Logger:        log,
			MaxBitrateBps: cfg.Playback.MaxBitrateBps,
			ForwardBuffer: cfg.Playback.ForwardBuffer,
		},
		logger: log.WithComponent("PlaybackManager"),
	}
}

// Activate releases the previous session and prepares a new one for the video
// at index.
func (m *Manager) Activate(ctx context.Context, index int, url string) (*Controller, error) {
	m.activateMu.Lock()
	defer m.activateMu.Unlock()

	m.mu.Lock()
	prev := m.active
	m.active = nil
	m.mu.Unlock()

	if prev != nil {
		prev.Release()
	}

	ctrl := NewController(m.deps)
	if err := ctrl.Prepare(ctx, url); err != nil {
		ctrl.Release()
		return nil, err
	}

	m.mu.Lock()
	m.active = ctrl
	m.mu.Unlock()

	m.logger.Debug("Activated playback", "index", index, "url", url, "session", ctrl.ID())
	return ctrl, nil
}

// ReleaseActive tears down the current session, if any.
func (m *Manager) ReleaseActive() {
	m.activateMu.Lock()
	defer m.activateMu.Unlock()

	m.mu.Lock()
	prev := m.active
	m.active = nil
	m.mu.Unlock()

	if prev != nil {
		prev.Release()
	}
}

// Active returns the live controller, or nil.
func (m *Manager) Active() *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

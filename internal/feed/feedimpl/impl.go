package feedimpl

import (
	"context"
	"fmt"
	"sync"

	"github.com/orgball2608/reel-feed-service/internal/domain"
	"github.com/orgball2608/reel-feed-service/internal/feed"
	"github.com/orgball2608/reel-feed-service/internal/mediacache"
	"github.com/orgball2608/reel-feed-service/internal/playback"
	"github.com/orgball2608/reel-feed-service/internal/postsource"
	"github.com/orgball2608/reel-feed-service/internal/ratelimit"
	"github.com/orgball2608/reel-feed-service/internal/videocache"
	"github.com/orgball2608/reel-feed-service/pkg/config"
	apperrors "github.com/orgball2608/reel-feed-service/pkg/errors"
	"github.com/orgball2608/reel-feed-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	"go.uber.org/fx"
)

var pageLoads = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "reelfeed_feed_page_loads_total",
	Help: "Feed page loads by outcome.",
}, []string{"outcome"})

type Opts struct {
	fx.In

	Source   postsource.Source
	Media    *mediacache.Cache
	Video    *videocache.Cache
	Playback *playback.Manager
	Limiter  ratelimit.Limiter
	Logger   logger.Logger
	Config   *config.Config
}

// Impl owns the aggregate post sequence. Every mutation of posts, cursor and
// like overlays happens under one mutex, standing in for the UI-affinity
// serial context of the presentation layer.
type Impl struct {
	source   postsource.Source
	media    *mediacache.Cache
	video    *videocache.Cache
	playback *playback.Manager
	limiter  ratelimit.Limiter
	logger   logger.Logger

	viewerID  string
	pageSize  int
	maxPosts  int
	trimBatch int
	radius    int

	mu          sync.Mutex
	posts       []domain.Post
	seen        map[string]struct{}
	cursor      *domain.Cursor
	hasMore     bool
	isLoading   bool
	activeIndex int
}

func New(opts Opts) *Impl {
	return &Impl{
		source:    opts.Source,
		media:     opts.Media,
		video:     opts.Video,
		playback:  opts.Playback,
		limiter:   opts.Limiter,
		logger:    opts.Logger.WithComponent("FeedPager"),
		viewerID:  opts.Config.Feed.ViewerID,
		pageSize:  opts.Config.Feed.PageSize,
		maxPosts:  opts.Config.Feed.MaxPosts,
		trimBatch: opts.Config.Feed.TrimBatch,
		radius:    opts.Config.MediaCache.WindowRadius,
		seen:      make(map[string]struct{}),
	}
}

var _ feed.Client = (*Impl)(nil)

func (f *Impl) LoadFirstPage(ctx context.Context) (domain.FeedPage, error) {
	if !f.beginLoad() {
		return domain.FeedPage{}, nil
	}
	defer f.endLoad()

	posts, next, hasMore, err := f.source.ListPosts(ctx, f.pageSize, nil)
	if err != nil {
		pageLoads.WithLabelValues("error").Inc()
		return domain.FeedPage{}, fmt.Errorf("%w: loading first page: %v", apperrors.ErrNetwork, err)
	}

	// Overlay like state before the page is published so the UI never sees a
	// liked post flash as unliked.
	posts = f.reconcileLikeStates(ctx, posts)

	f.mu.Lock()
	f.posts = nil
	f.seen = make(map[string]struct{})
	f.activeIndex = 0
	fresh := f.appendLocked(posts)
	f.cursor = next
	f.hasMore = hasMore
	f.trimLocked()
	f.mu.Unlock()

	pageLoads.WithLabelValues("ok").Inc()
	f.logger.Info("Loaded first page", "posts", len(fresh), "has_more", hasMore)
	return domain.FeedPage{Posts: fresh, Next: next, HasMore: hasMore}, nil
}

func (f *Impl) LoadNextPage(ctx context.Context) (domain.FeedPage, error) {
	f.mu.Lock()
	if f.isLoading || !f.hasMore || f.cursor == nil {
		f.mu.Unlock()
		return domain.FeedPage{}, nil
	}
	f.isLoading = true
	after := f.cursor
	f.mu.Unlock()
	defer f.endLoad()

	posts, next, hasMore, err := f.source.ListPosts(ctx, f.pageSize, after)
	if err != nil {
		pageLoads.WithLabelValues("error").Inc()
		return domain.FeedPage{}, fmt.Errorf("%w: loading page after %s: %v", apperrors.ErrNetwork, after.ID, err)
	}

	posts = f.reconcileLikeStates(ctx, posts)

	f.mu.Lock()
	fresh := f.appendLocked(posts)
	f.cursor = next
	f.hasMore = hasMore
	f.trimLocked()
	f.mu.Unlock()

	pageLoads.WithLabelValues("ok").Inc()
	f.logger.Info("Loaded next page", "posts", len(fresh), "has_more", hasMore)
	return domain.FeedPage{Posts: fresh, Next: next, HasMore: hasMore}, nil
}

// Posts returns a snapshot copy of the aggregate feed.
func (f *Impl) Posts() []domain.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := make([]domain.Post, len(f.posts))
	copy(snapshot, f.posts)
	return snapshot
}

func (f *Impl) ActiveIndex() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeIndex
}

// reconcileLikeStates overlays the viewer's like state onto a fetched batch
// with one round trip. Reconciliation is cosmetic, so failures default the
// whole batch to not-liked instead of propagating.
func (f *Impl) reconcileLikeStates(ctx context.Context, posts []domain.Post) []domain.Post {
	for i := range posts {
		posts[i].IsLiked = false
	}
	if len(posts) == 0 || f.viewerID == "" {
		return posts
	}

	ids := lo.Map(posts, func(p domain.Post, _ int) string { return p.ID })
	liked, err := f.source.LikedPostIDs(ctx, f.viewerID, ids)
	if err != nil {
		f.logger.Warn("Like reconciliation failed, defaulting batch to not liked", "error", err)
		return posts
	}

	for i := range posts {
		posts[i].IsLiked = liked[posts[i].ID]
	}
	return posts
}

// appendLocked filters out posts already in the aggregate and appends the
// rest, returning what was actually added.
func (f *Impl) appendLocked(incoming []domain.Post) []domain.Post {
	fresh := lo.Filter(incoming, func(p domain.Post, _ int) bool {
		_, dup := f.seen[p.ID]
		return !dup
	})
	for _, p := range fresh {
		f.seen[p.ID] = struct{}{}
	}
	f.posts = append(f.posts, fresh...)
	return fresh
}

// trimLocked bounds memory by dropping the oldest-loaded posts (the head,
// already scrolled past) once the aggregate grows beyond maxPosts. Dropped
// ids stay in the seen set so overlapping pages cannot re-introduce them.
func (f *Impl) trimLocked() int {
	if len(f.posts) <= f.maxPosts {
		return 0
	}
	n := f.trimBatch
	if n > len(f.posts) {
		n = len(f.posts)
	}
	f.posts = append([]domain.Post(nil), f.posts[n:]...)
	if f.activeIndex >= n {
		f.activeIndex -= n
	} else {
		f.activeIndex = 0
	}
	f.logger.Info("Trimmed feed", "dropped", n, "remaining", len(f.posts))
	return n
}

func (f *Impl) beginLoad() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isLoading {
		return false
	}
	f.isLoading = true
	return true
}

// endLoad clears the in-flight flag on every exit path so a failed load can
// never wedge pagination.
func (f *Impl) endLoad() {
	f.mu.Lock()
	f.isLoading = false
	f.mu.Unlock()
}

package feedimpl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/orgball2608/reel-feed-service/internal/domain"
	"github.com/orgball2608/reel-feed-service/internal/mediacache"
	"github.com/orgball2608/reel-feed-service/internal/playback"
	"github.com/orgball2608/reel-feed-service/internal/postsource"
	mock_postsource "github.com/orgball2608/reel-feed-service/internal/postsource/mocks"
	"github.com/orgball2608/reel-feed-service/internal/ratelimit"
	"github.com/orgball2608/reel-feed-service/internal/videocache"
	"github.com/orgball2608/reel-feed-service/pkg/config"
	apperrors "github.com/orgball2608/reel-feed-service/pkg/errors"
	"github.com/orgball2608/reel-feed-service/pkg/logger"
	gomock "go.uber.org/mock/gomock"
)

type stubFetcher struct {
	mu    sync.Mutex
	calls int
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return []byte("bytes:" + url), nil
}

func (s *stubFetcher) FetchRange(ctx context.Context, url string, offset, length int64) ([]byte, error) {
	return []byte("seg"), nil
}

type stubLoader struct{}

func (stubLoader) Load(ctx context.Context, url string) (domain.VideoMetadata, error) {
	return domain.VideoMetadata{Playable: true, Duration: 10 * time.Second}, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Feed.ViewerID = "viewer-1"
	cfg.Feed.PageSize = 10
	cfg.Feed.MaxPosts = 100
	cfg.Feed.TrimBatch = 50
	cfg.MediaCache.MaxEntries = 16
	cfg.MediaCache.MaxBytes = 1 << 20
	cfg.MediaCache.WindowRadius = 2
	cfg.VideoCache.Capacity = 6
	cfg.Playback.MaxBitrateBps = 2_000_000
	cfg.Playback.ForwardBuffer = 15 * time.Second
	return cfg
}

func newTestImpl(t *testing.T, cfg *config.Config, source postsource.Source) *Impl {
	t.Helper()
	log := logger.New(logger.Opts{})
	fetcher := &stubFetcher{}
	video := videocache.New(cfg, stubLoader{}, log)
	return New(Opts{
		Source:   source,
		Media:    mediacache.New(cfg, fetcher, log),
		Video:    video,
		Playback: playback.NewManager(cfg, video, stubLoader{}, &stubFetcherSource{}, log),
		Limiter:  ratelimit.NewInMemoryLimiter(100, time.Second, 100),
		Logger:   log,
		Config:   cfg,
	})
}

type stubFetcherSource struct{}

func (stubFetcherSource) ReadSegment(ctx context.Context, url string, offset, length int64) ([]byte, error) {
	return []byte("seg"), nil
}

func makePosts(from, to int) []domain.Post {
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	var posts []domain.Post
	for i := from; i <= to; i++ {
		posts = append(posts, domain.Post{
			ID:        fmt.Sprintf("p%d", i),
			AuthorID:  "author",
			Kind:      domain.PostKindAnswer,
			ImageURL:  fmt.Sprintf("https://cdn.example.com/img%d.jpg", i),
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
			LikesCount: 5,
		})
	}
	return posts
}

func cursorFor(p domain.Post) *domain.Cursor {
	return &domain.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
}

func TestLoadFirstPageReconcilesLikes(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock_postsource.NewMockSource(ctrl)

	posts := makePosts(1, 10)
	src.EXPECT().ListPosts(gomock.Any(), 10, gomock.Nil()).
		Return(posts, cursorFor(posts[9]), true, nil)
	src.EXPECT().LikedPostIDs(gomock.Any(), "viewer-1", gomock.Len(10)).
		Return(map[string]bool{"p3": true, "p7": true}, nil)

	f := newTestImpl(t, testConfig(), src)

	page, err := f.LoadFirstPage(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Posts) != 10 {
		t.Fatalf("want 10 posts, got %d", len(page.Posts))
	}
	for _, p := range page.Posts {
		wantLiked := p.ID == "p3" || p.ID == "p7"
		if p.IsLiked != wantLiked {
			t.Fatalf("post %s: IsLiked = %v, want %v", p.ID, p.IsLiked, wantLiked)
		}
	}
}

func TestLoadNextPageDeduplicates(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock_postsource.NewMockSource(ctrl)

	first := makePosts(1, 10)
	// Second page overlaps the first at p10.
	second := makePosts(10, 20)
	src.EXPECT().ListPosts(gomock.Any(), 10, gomock.Nil()).
		Return(first, cursorFor(first[9]), true, nil)
	src.EXPECT().ListPosts(gomock.Any(), 10, cursorFor(first[9])).
		Return(second, cursorFor(second[len(second)-1]), false, nil)
	src.EXPECT().LikedPostIDs(gomock.Any(), "viewer-1", gomock.Any()).
		Return(map[string]bool{}, nil).Times(2)

	f := newTestImpl(t, testConfig(), src)
	ctx := context.Background()

	if _, err := f.LoadFirstPage(ctx); err != nil {
		t.Fatalf("first page: %v", err)
	}
	if _, err := f.LoadNextPage(ctx); err != nil {
		t.Fatalf("next page: %v", err)
	}

	all := f.Posts()
	if len(all) != 20 {
		t.Fatalf("want 20 posts after dedup, got %d", len(all))
	}
	ids := make(map[string]struct{}, len(all))
	for _, p := range all {
		if _, dup := ids[p.ID]; dup {
			t.Fatalf("duplicate post id %s in aggregate", p.ID)
		}
		ids[p.ID] = struct{}{}
	}
}

func TestLoadNextPageNoopWithoutCursor(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock_postsource.NewMockSource(ctrl)

	f := newTestImpl(t, testConfig(), src)

	page, err := f.LoadNextPage(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Posts) != 0 {
		t.Fatalf("expected empty no-op page, got %d posts", len(page.Posts))
	}
}

func TestLoadNextPageExclusive(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock_postsource.NewMockSource(ctrl)

	first := makePosts(1, 10)
	src.EXPECT().ListPosts(gomock.Any(), 10, gomock.Nil()).
		Return(first, cursorFor(first[9]), true, nil)
	src.EXPECT().LikedPostIDs(gomock.Any(), "viewer-1", gomock.Any()).
		Return(map[string]bool{}, nil).AnyTimes()

	entered := make(chan struct{})
	release := make(chan struct{})
	second := makePosts(11, 20)
	src.EXPECT().ListPosts(gomock.Any(), 10, gomock.Not(gomock.Nil())).
		DoAndReturn(func(ctx context.Context, limit int, after *domain.Cursor) ([]domain.Post, *domain.Cursor, bool, error) {
			close(entered)
			<-release
			return second, cursorFor(second[len(second)-1]), false, nil
		}).Times(1)

	f := newTestImpl(t, testConfig(), src)
	ctx := context.Background()

	if _, err := f.LoadFirstPage(ctx); err != nil {
		t.Fatalf("first page: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := f.LoadNextPage(ctx); err != nil {
			t.Errorf("next page: %v", err)
		}
	}()

	<-entered
	// Second call while one is in flight: no-op, no extra network call.
	page, err := f.LoadNextPage(ctx)
	if err != nil {
		t.Fatalf("concurrent next page: %v", err)
	}
	if len(page.Posts) != 0 {
		t.Fatalf("concurrent next page should be a no-op, got %d posts", len(page.Posts))
	}

	close(release)
	<-done

	if got := len(f.Posts()); got != 20 {
		t.Fatalf("want 20 posts, got %d", got)
	}
}

func TestReconciliationFailureIsFailOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock_postsource.NewMockSource(ctrl)

	posts := makePosts(1, 10)
	src.EXPECT().ListPosts(gomock.Any(), 10, gomock.Nil()).
		Return(posts, cursorFor(posts[9]), true, nil)
	src.EXPECT().LikedPostIDs(gomock.Any(), "viewer-1", gomock.Any()).
		Return(nil, errors.New("backend down"))

	f := newTestImpl(t, testConfig(), src)

	page, err := f.LoadFirstPage(context.Background())
	if err != nil {
		t.Fatalf("reconciliation failure must not fail the page load: %v", err)
	}
	for _, p := range page.Posts {
		if p.IsLiked {
			t.Fatalf("post %s should default to not liked", p.ID)
		}
	}
}

func TestLoadErrorSurfacesAndClearsLoadingFlag(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock_postsource.NewMockSource(ctrl)

	posts := makePosts(1, 10)
	gomock.InOrder(
		src.EXPECT().ListPosts(gomock.Any(), 10, gomock.Nil()).
			Return(nil, nil, false, errors.New("connection reset")),
		src.EXPECT().ListPosts(gomock.Any(), 10, gomock.Nil()).
			Return(posts, cursorFor(posts[9]), true, nil),
	)
	src.EXPECT().LikedPostIDs(gomock.Any(), "viewer-1", gomock.Any()).
		Return(map[string]bool{}, nil)

	f := newTestImpl(t, testConfig(), src)
	ctx := context.Background()

	_, err := f.LoadFirstPage(ctx)
	if !apperrors.IsNetwork(err) {
		t.Fatalf("want network error, got %v", err)
	}

	// The in-flight flag must be cleared on the failure path.
	if _, err := f.LoadFirstPage(ctx); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if got := len(f.Posts()); got != 10 {
		t.Fatalf("want 10 posts after retry, got %d", got)
	}
}

func TestToggleLikeRollsBackOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock_postsource.NewMockSource(ctrl)

	posts := makePosts(1, 10)
	src.EXPECT().ListPosts(gomock.Any(), 10, gomock.Nil()).
		Return(posts, cursorFor(posts[9]), true, nil)
	src.EXPECT().LikedPostIDs(gomock.Any(), "viewer-1", gomock.Any()).
		Return(map[string]bool{}, nil)
	src.EXPECT().ToggleLike(gomock.Any(), "p1", "viewer-1", domain.LikeActionLike).
		Return(false, 0, errors.New("rpc failed"))

	f := newTestImpl(t, testConfig(), src)
	ctx := context.Background()

	if _, err := f.LoadFirstPage(ctx); err != nil {
		t.Fatalf("first page: %v", err)
	}

	if err := f.ToggleLike(ctx, "p1"); err != nil {
		t.Fatalf("toggle failures must not surface: %v", err)
	}

	p := f.Posts()[0]
	if p.IsLiked != false || p.LikesCount != 5 {
		t.Fatalf("rollback failed: IsLiked=%v LikesCount=%d, want false/5", p.IsLiked, p.LikesCount)
	}
}

func TestToggleLikeAppliesServerState(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock_postsource.NewMockSource(ctrl)

	posts := makePosts(1, 10)
	src.EXPECT().ListPosts(gomock.Any(), 10, gomock.Nil()).
		Return(posts, cursorFor(posts[9]), true, nil)
	src.EXPECT().LikedPostIDs(gomock.Any(), "viewer-1", gomock.Any()).
		Return(map[string]bool{}, nil)
	src.EXPECT().ToggleLike(gomock.Any(), "p2", "viewer-1", domain.LikeActionLike).
		Return(true, 42, nil)

	f := newTestImpl(t, testConfig(), src)
	ctx := context.Background()

	if _, err := f.LoadFirstPage(ctx); err != nil {
		t.Fatalf("first page: %v", err)
	}
	if err := f.ToggleLike(ctx, "p2"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	p := f.Posts()[1]
	if !p.IsLiked || p.LikesCount != 42 {
		t.Fatalf("server state not applied: IsLiked=%v LikesCount=%d", p.IsLiked, p.LikesCount)
	}
}

func TestToggleLikeUnknownPost(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock_postsource.NewMockSource(ctrl)

	f := newTestImpl(t, testConfig(), src)

	err := f.ToggleLike(context.Background(), "nope")
	if !apperrors.IsNotFound(err) {
		t.Fatalf("want not-found error, got %v", err)
	}
}

func TestTrimDropsOldestLoaded(t *testing.T) {
	cfg := testConfig()
	cfg.Feed.PageSize = 5
	cfg.Feed.MaxPosts = 6
	cfg.Feed.TrimBatch = 3

	ctrl := gomock.NewController(t)
	src := mock_postsource.NewMockSource(ctrl)

	first := makePosts(1, 5)
	second := makePosts(6, 10)
	src.EXPECT().ListPosts(gomock.Any(), 5, gomock.Nil()).
		Return(first, cursorFor(first[4]), true, nil)
	src.EXPECT().ListPosts(gomock.Any(), 5, gomock.Not(gomock.Nil())).
		Return(second, cursorFor(second[4]), false, nil)
	src.EXPECT().LikedPostIDs(gomock.Any(), "viewer-1", gomock.Any()).
		Return(map[string]bool{}, nil).Times(2)

	f := newTestImpl(t, cfg, src)
	ctx := context.Background()

	if _, err := f.LoadFirstPage(ctx); err != nil {
		t.Fatalf("first page: %v", err)
	}
	// Below the bound: no trim yet.
	if got := len(f.Posts()); got != 5 {
		t.Fatalf("want 5 posts, got %d", got)
	}

	if _, err := f.LoadNextPage(ctx); err != nil {
		t.Fatalf("next page: %v", err)
	}

	all := f.Posts()
	if len(all) != 7 {
		t.Fatalf("want 7 posts after trim, got %d", len(all))
	}
	if all[0].ID != "p4" {
		t.Fatalf("oldest-loaded posts should be dropped, head is %s", all[0].ID)
	}
}

func TestSetActiveIndexRewindowsCaches(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock_postsource.NewMockSource(ctrl)

	posts := makePosts(1, 10)
	src.EXPECT().ListPosts(gomock.Any(), 10, gomock.Nil()).
		Return(posts, cursorFor(posts[9]), true, nil)
	src.EXPECT().LikedPostIDs(gomock.Any(), "viewer-1", gomock.Any()).
		Return(map[string]bool{}, nil)

	f := newTestImpl(t, testConfig(), src)
	ctx := context.Background()

	if _, err := f.LoadFirstPage(ctx); err != nil {
		t.Fatalf("first page: %v", err)
	}

	f.SetActiveIndex(ctx, 5)

	if got := f.ActiveIndex(); got != 5 {
		t.Fatalf("active index = %d, want 5", got)
	}
	// Window is [3,7] (zero-based), i.e. posts p4..p8.
	for i, p := range f.Posts() {
		_, cached := f.media.Get(p.ImageURL)
		want := i >= 3 && i <= 7
		if cached != want {
			t.Fatalf("post %s cached=%v, want %v", p.ID, cached, want)
		}
	}
}

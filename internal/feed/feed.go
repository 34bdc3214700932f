package feed

import (
	"context"

	"github.com/orgball2608/reel-feed-service/internal/domain"
)

type Client interface {
	// LoadFirstPage fetches the newest page of posts and resets all
	// pagination state. No-op while another load is in flight.
	LoadFirstPage(ctx context.Context) (domain.FeedPage, error)

	// LoadNextPage fetches the page after the stored cursor. No-op (not an
	// error) while a load is in flight, when no more posts remain, or before
	// the first page has loaded.
	LoadNextPage(ctx context.Context) (domain.FeedPage, error)

	// Posts returns a snapshot copy of the aggregate feed.
	Posts() []domain.Post

	// ActiveIndex returns the index of the currently visible item.
	ActiveIndex() int

	// SetActiveIndex re-windows the media caches around the visible item and
	// swaps playback onto it. It blocks until the new window is warm, so
	// presentation layers should call it off their render loop.
	SetActiveIndex(ctx context.Context, index int)

	// ToggleLike applies an optimistic like edit and confirms it against the
	// server, rolling back on failure. Failures are logged, never surfaced.
	ToggleLike(ctx context.Context, postID string) error

	// Teardown releases playback and empties both media caches.
	Teardown()
}

package postsource

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/orgball2608/reel-feed-service/internal/domain"
)

var (
	ErrNotFound = errors.New("post not found")
	ErrBadQuery = errors.New("bad query")
)

var SqBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

//go:generate go run go.uber.org/mock/mockgen -source=postsource.go -destination=mocks/mock.go
type Source interface {
	// ListPosts returns up to limit posts ordered by creation time descending,
	// strictly after the cursor when one is given, plus the continuation
	// cursor and whether more posts remain.
	ListPosts(ctx context.Context, limit int, after *domain.Cursor) ([]domain.Post, *domain.Cursor, bool, error)

	// LikedPostIDs performs a single batched existence check for like records
	// keyed by (viewerID, postID) and returns the subset of postIDs the
	// viewer has liked.
	LikedPostIDs(ctx context.Context, viewerID string, postIDs []string) (map[string]bool, error)

	// ToggleLike applies a like or unlike for (postID, viewerID) and returns
	// the authoritative liked state and likes count. Replays of the same
	// action do not double-count.
	ToggleLike(ctx context.Context, postID, viewerID string, action domain.LikeAction) (bool, int, error)

	// CleanupOldPosts deletes posts older than the given duration.
	CleanupOldPosts(ctx context.Context, olderThan time.Duration) (int64, error)
}

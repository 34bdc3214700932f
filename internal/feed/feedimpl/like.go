package feedimpl

import (
	"context"
	"fmt"

	"github.com/orgball2608/reel-feed-service/internal/domain"
	apperrors "github.com/orgball2608/reel-feed-service/pkg/errors"
)

// ToggleLike runs the two-phase optimistic toggle: the local edit is applied
// immediately with its rollback snapshot captured as an explicit LikeEdit,
// then the server confirms or the edit is rolled back. RPC failures are
// logged, never surfaced; the toggle is best-effort.
func (f *Impl) ToggleLike(ctx context.Context, postID string) error {
	if f.limiter != nil && !f.limiter.Allow(f.viewerID) {
		f.logger.Warn("Like toggle rate limited", "post_id", postID)
		return nil
	}

	edit, action, err := f.applyOptimistic(postID)
	if err != nil {
		return err
	}

	liked, likesCount, err := f.source.ToggleLike(ctx, postID, f.viewerID, action)
	if err != nil {
		f.rollback(edit)
		f.logger.Error("Like toggle failed, rolled back", "post_id", postID, "action", action, "error", err)
		return nil
	}

	f.confirm(postID, liked, likesCount)
	return nil
}

// applyOptimistic flips the like state in place and returns the rollback
// token. The snapshot is taken from current state under the feed mutex, so a
// rapid double tap captures the first tap's outcome rather than clobbering it.
func (f *Impl) applyOptimistic(postID string) (domain.LikeEdit, domain.LikeAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.indexOfLocked(postID)
	if i < 0 {
		return domain.LikeEdit{}, "", fmt.Errorf("%w: post %s", apperrors.ErrNotFound, postID)
	}

	p := &f.posts[i]
	edit := domain.LikeEdit{
		PostID:             postID,
		PreviousIsLiked:    p.IsLiked,
		PreviousLikesCount: p.LikesCount,
	}

	var action domain.LikeAction
	if p.IsLiked {
		action = domain.LikeActionUnlike
		p.IsLiked = false
		if p.LikesCount > 0 {
			p.LikesCount--
		}
	} else {
		action = domain.LikeActionLike
		p.IsLiked = true
		p.LikesCount++
	}

	return edit, action, nil
}

// confirm overlays the server's authoritative values onto the post. A post
// trimmed while the RPC was in flight is silently skipped.
func (f *Impl) confirm(postID string, liked bool, likesCount int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.indexOfLocked(postID)
	if i < 0 {
		return
	}
	f.posts[i].IsLiked = liked
	if likesCount >= 0 {
		f.posts[i].LikesCount = likesCount
	}
}

// rollback restores the exact pre-edit state captured in the token.
func (f *Impl) rollback(edit domain.LikeEdit) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.indexOfLocked(edit.PostID)
	if i < 0 {
		return
	}
	f.posts[i].IsLiked = edit.PreviousIsLiked
	f.posts[i].LikesCount = edit.PreviousLikesCount
}

func (f *Impl) indexOfLocked(postID string) int {
	for i := range f.posts {
		if f.posts[i].ID == postID {
			return i
		}
	}
	return -1
}

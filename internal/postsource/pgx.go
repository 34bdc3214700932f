package postsource

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orgball2608/reel-feed-service/internal/domain"
	"github.com/orgball2608/reel-feed-service/pkg/logger"
)

type Pgx struct {
	pg     *pgxpool.Pool
	logger logger.Logger
}

func NewPgx(pg *pgxpool.Pool, logger logger.Logger) *Pgx {
	return &Pgx{
		pg:     pg,
		logger: logger.WithComponent("PostSourceRepo"),
	}
}

var _ Source = (*Pgx)(nil)

// ListPosts pages through posts with a (created_at, id) keyset so equal
// timestamps cannot skip or repeat rows.
func (p *Pgx) ListPosts(ctx context.Context, limit int, after *domain.Cursor) ([]domain.Post, *domain.Cursor, bool, error) {
	builder := SqBuilder.
		Select("id", "author_id", "body", "kind", "image_url", "video_url", "likes_count", "created_at").
		From("posts").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit + 1))

	if after != nil {
		builder = builder.Where(
			sq.Expr("(created_at, id) < (?, ?)", after.CreatedAt, after.ID),
		)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, nil, false, ErrBadQuery
	}

	rows, err := p.pg.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, false, err
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var post domain.Post
		var imageURL, videoURL *string
		if err := rows.Scan(&post.ID, &post.AuthorID, &post.Body, &post.Kind, &imageURL, &videoURL, &post.LikesCount, &post.CreatedAt); err != nil {
			return nil, nil, false, err
		}
		if imageURL != nil {
			post.ImageURL = *imageURL
		}
		if videoURL != nil {
			post.VideoURL = *videoURL
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, false, err
	}

	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}

	var next *domain.Cursor
	if len(posts) > 0 {
		last := posts[len(posts)-1]
		next = &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	return posts, next, hasMore, nil
}

// LikedPostIDs is one IN-query over the batch, never a query per post.
func (p *Pgx) LikedPostIDs(ctx context.Context, viewerID string, postIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool, len(postIDs))
	if len(postIDs) == 0 {
		return liked, nil
	}

	query, args, err := SqBuilder.
		Select("post_id").
		From("post_likes").
		Where(sq.Eq{"viewer_id": viewerID, "post_id": postIDs}).
		ToSql()
	if err != nil {
		return nil, ErrBadQuery
	}

	rows, err := p.pg.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var postID string
		if err := rows.Scan(&postID); err != nil {
			return nil, err
		}
		liked[postID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return liked, nil
}

// ToggleLike inserts or deletes the like record and moves the counter in the
// same transaction. ON CONFLICT DO NOTHING keeps replays from double-counting.
func (p *Pgx) ToggleLike(ctx context.Context, postID, viewerID string, action domain.LikeAction) (bool, int, error) {
	tx, err := p.pg.Begin(ctx)
	if err != nil {
		return false, 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var changed int64
	switch action {
	case domain.LikeActionLike:
		query, args, err := SqBuilder.
			Insert("post_likes").
			Columns("post_id", "viewer_id", "created_at").
			Values(postID, viewerID, time.Now()).
			Suffix("ON CONFLICT (post_id, viewer_id) DO NOTHING").
			ToSql()
		if err != nil {
			return false, 0, ErrBadQuery
		}
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return false, 0, err
		}
		changed = tag.RowsAffected()
		if changed > 0 {
			if _, err := tx.Exec(ctx, "UPDATE posts SET likes_count = likes_count + 1 WHERE id = $1", postID); err != nil {
				return false, 0, err
			}
		}
	case domain.LikeActionUnlike:
		query, args, err := SqBuilder.
			Delete("post_likes").
			Where(sq.Eq{"post_id": postID, "viewer_id": viewerID}).
			ToSql()
		if err != nil {
			return false, 0, ErrBadQuery
		}
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return false, 0, err
		}
		changed = tag.RowsAffected()
		if changed > 0 {
			if _, err := tx.Exec(ctx, "UPDATE posts SET likes_count = GREATEST(likes_count - 1, 0) WHERE id = $1", postID); err != nil {
				return false, 0, err
			}
		}
	}

	var likesCount int
	err = tx.QueryRow(ctx, "SELECT likes_count FROM posts WHERE id = $1", postID).Scan(&likesCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, 0, ErrNotFound
		}
		return false, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, err
	}

	return action == domain.LikeActionLike, likesCount, nil
}

// CleanupOldPosts deletes posts older than the retention window; likes go
// with them via the foreign key.
func (p *Pgx) CleanupOldPosts(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	query, args, err := SqBuilder.
		Delete("posts").
		Where(sq.Lt{"created_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, ErrBadQuery
	}

	result, err := p.pg.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}

package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upAddPostLikes, downAddPostLikes)
}

func upAddPostLikes(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE post_likes (
		post_id VARCHAR NOT NULL REFERENCES posts (id) ON DELETE CASCADE,
		viewer_id VARCHAR NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		PRIMARY KEY (post_id, viewer_id)
	);
	CREATE INDEX idx_post_likes_viewer ON post_likes (viewer_id);
	`)
	if err != nil {
		return err
	}
	return nil
}

func downAddPostLikes(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.Exec(`
	DROP TABLE post_likes;
	`)
	if err != nil {
		return err
	}
	return nil
}

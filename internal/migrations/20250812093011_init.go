package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upInit, downInit)
}

func upInit(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE posts (
		id VARCHAR PRIMARY KEY,
		author_id VARCHAR NOT NULL,
		body TEXT NOT NULL DEFAULT '',
		kind VARCHAR NOT NULL,
		image_url VARCHAR,
		video_url VARCHAR,
		likes_count INTEGER NOT NULL DEFAULT 0 CHECK (likes_count >= 0),
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);
	CREATE INDEX idx_posts_created_at_id ON posts (created_at DESC, id DESC);
	`)
	if err != nil {
		return err
	}
	return nil
}

func downInit(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.Exec(`
	DROP TABLE posts;
	`)
	if err != nil {
		return err
	}
	return nil
}

package domain

import "time"

type PostKind string

const (
	PostKindQuestion PostKind = "question"
	PostKindAnswer   PostKind = "answer"
)

// Post is one feed item. The content fields are immutable after fetch;
// IsLiked and LikesCount are view-local overlays owned by the feed and
// rewritten by reconciliation or optimistic like edits.
type Post struct {
	ID        string
	AuthorID  string
	Body      string
	Kind      PostKind
	ImageURL  string
	VideoURL  string
	CreatedAt time.Time

	IsLiked    bool
	LikesCount int
}

func (p *Post) HasImage() bool {
	return p.ImageURL != ""
}

func (p *Post) HasVideo() bool {
	return p.VideoURL != ""
}

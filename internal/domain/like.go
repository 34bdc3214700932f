package domain

type LikeAction string

const (
	LikeActionLike   LikeAction = "like"
	LikeActionUnlike LikeAction = "unlike"
)

// LikeEdit captures the pre-edit state of a post at the moment an optimistic
// like toggle is applied. A successful confirm discards it; a failed RPC
// rolls the post back to exactly these values.
type LikeEdit struct {
	PostID             string
	PreviousIsLiked    bool
	PreviousLikesCount int
}

package domain

import "time"

// Cursor marks the last item of a fetched page. Pagination is keyset-based:
// the next page contains posts strictly after (older than) the cursor.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// FeedPage is one fetched page of posts plus continuation state.
type FeedPage struct {
	Posts   []Post
	Next    *Cursor
	HasMore bool
}

package feedimpl

import (
	"context"

	"github.com/orgball2608/reel-feed-service/internal/domain"
)

// SetActiveIndex is the single coupling point between the presentation layer
// and the core: it re-windows the image cache, warms video metadata for the
// neighborhood, and swaps playback onto the newly visible item.
func (f *Impl) SetActiveIndex(ctx context.Context, index int) {
	f.mu.Lock()
	if len(f.posts) == 0 {
		f.mu.Unlock()
		return
	}
	if index < 0 {
		index = 0
	}
	if index > len(f.posts)-1 {
		index = len(f.posts) - 1
	}
	f.activeIndex = index

	snapshot := make([]domain.Post, len(f.posts))
	copy(snapshot, f.posts)
	f.mu.Unlock()

	f.media.PreloadWindow(ctx, snapshot, index)

	lo := index - f.radius
	if lo < 0 {
		lo = 0
	}
	hi := index + f.radius
	if hi > len(snapshot)-1 {
		hi = len(snapshot) - 1
	}
	var videoURLs []string
	for i := lo; i <= hi; i++ {
		if snapshot[i].HasVideo() {
			videoURLs = append(videoURLs, snapshot[i].VideoURL)
		}
	}
	f.video.Warm(videoURLs)

	active := snapshot[index]
	if active.HasVideo() {
		if _, err := f.playback.Activate(ctx, index, active.VideoURL); err != nil {
			f.logger.Error("Failed to activate playback", "index", index, "url", active.VideoURL, "error", err)
		}
	} else {
		f.playback.ReleaseActive()
	}
}

// Teardown releases the live playback session, cancels warm loads and empties
// both caches. Called when the feed screen unmounts.
func (f *Impl) Teardown() {
	f.playback.ReleaseActive()
	f.video.Clear()
	f.media.Clear()
	f.logger.Info("Feed torn down")
}

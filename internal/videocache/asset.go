package videocache

import (
	"context"

	"github.com/orgball2608/reel-feed-service/internal/domain"
)

// MetadataLoader resolves the lightweight metadata of a video asset.
type MetadataLoader interface {
	Load(ctx context.Context, url string) (domain.VideoMetadata, error)
}

// Asset is a warm handle to a remote video: metadata is prefetched in the
// background, frames are never decoded here.
type Asset struct {
	URL string

	done   chan struct{}
	cancel context.CancelFunc

	meta domain.VideoMetadata
	err  error
}

func newAsset(url string, cancel context.CancelFunc) *Asset {
	return &Asset{
		URL:    url,
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// load runs in its own goroutine, once per asset.
func (a *Asset) load(ctx context.Context, loader MetadataLoader) {
	defer close(a.done)
	a.meta, a.err = loader.Load(ctx, a.URL)
	if a.err == nil && ctx.Err() != nil {
		a.err = ctx.Err()
	}
}

// Done is closed once the metadata load has finished or been cancelled.
func (a *Asset) Done() <-chan struct{} {
	return a.done
}

// Metadata blocks until the background load finishes or ctx expires.
func (a *Asset) Metadata(ctx context.Context) (domain.VideoMetadata, error) {
	select {
	case <-a.done:
		return a.meta, a.err
	case <-ctx.Done():
		return domain.VideoMetadata{}, ctx.Err()
	}
}

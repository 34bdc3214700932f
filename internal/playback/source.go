package playback

import "context"

// SegmentSource feeds the buffer loop with media bytes.
type SegmentSource interface {
	ReadSegment(ctx context.Context, url string, offset, length int64) ([]byte, error)
}

// Fetcher is the slice of the network cache layer the default source needs.
type Fetcher interface {
	FetchRange(ctx context.Context, url string, offset, length int64) ([]byte, error)
}

// HTTPSegmentSource reads segments through the shared byte cache.
type HTTPSegmentSource struct {
	fetcher Fetcher
}

var _ SegmentSource = (*HTTPSegmentSource)(nil)

func NewHTTPSegmentSource(fetcher Fetcher) *HTTPSegmentSource {
	return &HTTPSegmentSource{fetcher: fetcher}
}

func (s *HTTPSegmentSource) ReadSegment(ctx context.Context, url string, offset, length int64) ([]byte, error) {
	return s.fetcher.FetchRange(ctx, url, offset, length)
}

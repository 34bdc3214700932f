package videocache

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/orgball2608/reel-feed-service/internal/domain"
	apperrors "github.com/orgball2608/reel-feed-service/pkg/errors"
	"github.com/orgball2608/reel-feed-service/pkg/logger"
)

// probeBytes is enough to cover the ftyp box and, for faststart files, the
// moov box with the mvhd duration.
const probeBytes = 64 * 1024

// Fetcher is the slice of the network cache layer the probe needs.
type Fetcher interface {
	FetchRange(ctx context.Context, url string, offset, length int64) ([]byte, error)
}

// HTTPProbe is the default MetadataLoader: it pulls the head of the asset
// through the shared byte cache and inspects it without decoding any frames.
type HTTPProbe struct {
	fetcher Fetcher
	logger  logger.Logger
}

var _ MetadataLoader = (*HTTPProbe)(nil)

func NewHTTPProbe(fetcher Fetcher, log logger.Logger) *HTTPProbe {
	return &HTTPProbe{
		fetcher: fetcher,
		logger:  log.WithComponent("VideoProbe"),
	}
}

func (p *HTTPProbe) Load(ctx context.Context, url string) (domain.VideoMetadata, error) {
	head, err := p.fetcher.FetchRange(ctx, url, 0, probeBytes)
	if err != nil {
		return domain.VideoMetadata{}, err
	}
	if len(head) == 0 {
		return domain.VideoMetadata{}, fmt.Errorf("%w: %s is empty", apperrors.ErrDecode, url)
	}

	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "video/") && !isMP4(head) {
		return domain.VideoMetadata{}, fmt.Errorf("%w: %s has content type %s", apperrors.ErrDecode, url, contentType)
	}

	meta := domain.VideoMetadata{
		Playable: true,
		Tracks:   []domain.VideoTrack{{Kind: "video", Codec: codecFromBrand(head)}},
	}

	if d, ok := mvhdDuration(head); ok {
		meta.Duration = d
	} else {
		p.logger.Debug("No mvhd box in probed head, duration unknown", "url", url)
	}

	return meta, nil
}

func isMP4(head []byte) bool {
	return len(head) >= 12 && bytes.Equal(head[4:8], []byte("ftyp"))
}

func codecFromBrand(head []byte) string {
	if !isMP4(head) {
		return ""
	}
	return string(bytes.TrimRight(head[8:12], "\x00 "))
}

// mvhdDuration scans the probed head for an mvhd box and derives the movie
// duration from its timescale. Works for faststart files where moov precedes
// mdat; anything else reports no duration.
func mvhdDuration(head []byte) (time.Duration, bool) {
	idx := bytes.Index(head, []byte("mvhd"))
	if idx < 0 || idx+4 >= len(head) {
		return 0, false
	}

	payload := head[idx+4:]
	if len(payload) < 1 {
		return 0, false
	}

	var timescale uint32
	var duration uint64
	switch payload[0] {
	case 0:
		// version(1) flags(3) ctime(4) mtime(4) timescale(4) duration(4)
		if len(payload) < 20 {
			return 0, false
		}
		timescale = binary.BigEndian.Uint32(payload[12:16])
		duration = uint64(binary.BigEndian.Uint32(payload[16:20]))
	case 1:
		// version(1) flags(3) ctime(8) mtime(8) timescale(4) duration(8)
		if len(payload) < 32 {
			return 0, false
		}
		timescale = binary.BigEndian.Uint32(payload[20:24])
		duration = binary.BigEndian.Uint64(payload[24:32])
	default:
		return 0, false
	}

	if timescale == 0 {
		return 0, false
	}
	// Split ticks into whole seconds and remainder so long version-1
	// durations cannot overflow the nanosecond multiply.
	secs := duration / uint64(timescale)
	rem := duration % uint64(timescale)
	return time.Duration(secs)*time.Second + time.Duration(rem)*time.Second/time.Duration(timescale), true
}

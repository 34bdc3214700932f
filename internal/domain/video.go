package domain

import "time"

// VideoTrack describes one track of a probed video asset.
type VideoTrack struct {
	Kind  string
	Codec string
}

// VideoMetadata is the lightweight, frames-not-decoded description of a video
// asset that the warm cache prefetches ahead of playback.
type VideoMetadata struct {
	Playable bool
	Duration time.Duration
	Tracks   []VideoTrack
}

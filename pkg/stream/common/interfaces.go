package common

import (
	"context"
	"time"
)

// StreamType represents the type of an audio stream
type StreamType string

const (
	StreamTypeICEcast     StreamType = "icecast"
	StreamTypeShoutcast   StreamType = "shoutcast"
	StreamTypeUnsupported StreamType = "unsupported"
)

// StreamMetadata contains metadata and info about the stream
type StreamMetadata struct {
	URL         string            `json:"url"`
	Type        StreamType        `json:"type"`
	Format      string            `json:"format,omitempty"`
	Bitrate     int               `json:"bitrate,omitempty"`
	SampleRate  int               `json:"sample_rate,omitempty"`
	Channels    int               `json:"channels,omitempty"`
	ContentType string            `json:"content_type,omitempty"`
	Title       string            `json:"title,omitempty"`
	Artist      string            `json:"artist,omitempty"`
	Station     string            `json:"station,omitempty"`
	Genre       string            `json:"genre,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Source is the media source backend consumed by the ingest engine.
// Implementations open a stream URL and yield already-decoded interleaved
// 16-bit samples. The engine treats every method as unreliable: Open and
// Read may fail at any time, and a Read error means the transport is gone.
type Source interface {
	// Open establishes the connection to the stream
	Open(ctx context.Context, url string) error

	// Read fills buf with interleaved 16-bit samples and returns the
	// number of samples read. Zero with a nil error means no data yet.
	Read(buf []int16) (int, error)

	// CurrentTitle returns the most recent in-band title, if any
	CurrentTitle() string

	// CurrentArtist returns the most recent in-band artist, if any
	CurrentArtist() string

	// BufferHealth reports source buffer fill as 0-100
	BufferHealth() int

	// Close releases the connection. Safe to call when not open.
	Close() error
}

// SourceFactory creates a fresh Source for a connection attempt
type SourceFactory func() Source

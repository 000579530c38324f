package icecast

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/language"

	"github.com/RyanBlaney/stream-ingest/pkg/stream/common"
)

var titleCaser = cases.Title(language.English)

// MetadataFromHeaders builds stream metadata from ICEcast response headers
func MetadataFromHeaders(streamURL string, header http.Header) *common.StreamMetadata {
	metadata := &common.StreamMetadata{
		URL:       streamURL,
		Type:      common.StreamTypeICEcast,
		Headers:   make(map[string]string),
		Timestamp: time.Now(),
	}

	if name := header.Get("icy-name"); name != "" {
		metadata.Station = titleCaser.String(common.CleanHeaderValue(name))
	}
	if genre := header.Get("icy-genre"); genre != "" {
		metadata.Genre = common.CleanHeaderValue(genre)
	}
	if bitrate := header.Get("icy-br"); bitrate != "" {
		metadata.Bitrate = common.ParseBitrateFromString(bitrate)
	}
	if sampleRate := header.Get("icy-sr"); sampleRate != "" {
		metadata.SampleRate = common.ParseSampleRateFromString(sampleRate)
	}
	if channels := header.Get("icy-channels"); channels != "" {
		metadata.Channels = common.ParseChannelsFromString(channels)
	}

	metadata.ContentType = common.ExtractContentType(header.Get("Content-Type"))

	relevantHeaders := []string{
		"content-type", "server", "icy-name", "icy-genre", "icy-description",
		"icy-url", "icy-br", "icy-sr", "icy-channels", "icy-pub", "icy-metaint",
		"icy-version",
	}
	for _, h := range relevantHeaders {
		if value := header.Get(h); value != "" {
			metadata.Headers[h] = value
		}
	}

	return metadata
}

// ParseStreamTitle extracts the StreamTitle value from an in-band ICY
// metadata block and splits it into artist and title. ICY metadata is
// Latin-1 on the wire; the block is decoded before parsing. The common
// convention is "StreamTitle='Artist - Title';".
func ParseStreamTitle(block []byte) (artist, title string, ok bool) {
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(block)
	if err != nil {
		decoded = block
	}

	metadataStr := strings.TrimRight(string(decoded), "\x00")

	start := strings.Index(metadataStr, "StreamTitle='")
	if start == -1 {
		return "", "", false
	}
	start += len("StreamTitle='")

	end := strings.Index(metadataStr[start:], "';")
	if end == -1 {
		// Tolerate a missing terminator on the last field
		end = strings.LastIndex(metadataStr[start:], "'")
		if end == -1 {
			return "", "", false
		}
	}

	streamTitle := metadataStr[start : start+end]
	if streamTitle == "" {
		return "", "", false
	}

	if artistPart, titlePart, found := strings.Cut(streamTitle, " - "); found {
		return strings.TrimSpace(artistPart), strings.TrimSpace(titlePart), true
	}

	return "", strings.TrimSpace(streamTitle), true
}

package icecast

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/stream-ingest/pkg/stream/common"
)

// Source reads interleaved 16-bit PCM from an ICEcast/Shoutcast mount,
// stripping in-band ICY metadata blocks and tracking the current
// title/artist. It implements common.Source.
//
// Read is driven by a single caller (the engine's sample path);
// title/artist accessors may run concurrently with it, so the metadata
// fields sit behind their own mutex.
type Source struct {
	client   *http.Client
	config   *Config
	response *http.Response
	reader   *bufio.Reader
	cancel   context.CancelFunc
	url      string

	icyMetaInt     int
	bytesUntilMeta int
	pending        byte
	hasPending     bool

	metaMu   sync.Mutex
	metadata *common.StreamMetadata
	title    string
	artist   string
}

// NewSource creates an ICEcast source with default configuration
func NewSource() *Source {
	return NewSourceWithConfig(nil)
}

// NewSourceWithConfig creates an ICEcast source with custom configuration
func NewSourceWithConfig(config *Config) *Source {
	if config == nil {
		config = DefaultConfig()
	}

	transport := &http.Transport{
		MaxIdleConns:    10,
		IdleConnTimeout: config.HTTP.ConnectionTimeout,
	}
	if !config.HTTP.VerifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Source{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= config.HTTP.MaxRedirects {
					return fmt.Errorf("stopped after %d redirects", config.HTTP.MaxRedirects)
				}
				return nil
			},
		},
		config: config,
	}
}

// Open establishes the stream connection and reads the ICY handshake
// headers. The passed context bounds connection setup only: the body
// is a live stream and must outlive ctx, so once the headers arrive
// the request is detached onto a context owned by the source and
// canceled in Close.
func (s *Source) Open(ctx context.Context, streamURL string) error {
	bodyCtx, bodyCancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, bodyCancel)

	req, err := http.NewRequestWithContext(bodyCtx, http.MethodGet, httpURL(streamURL), nil)
	if err != nil {
		stop()
		bodyCancel()
		return common.NewStreamError(
			common.StreamTypeICEcast, streamURL, common.ErrCodeConnection,
			"failed to create stream request", err,
		)
	}

	for key, value := range s.config.HTTP.GetHTTPHeaders() {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		stop()
		bodyCancel()
		return common.NewStreamError(
			common.StreamTypeICEcast, streamURL, common.ErrCodeConnection,
			"stream connection failed", err,
		)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		stop()
		bodyCancel()
		resp.Body.Close()
		return common.NewStreamError(
			common.StreamTypeICEcast, streamURL, common.ErrCodeConnection,
			fmt.Sprintf("stream returned status %d", resp.StatusCode), nil,
		)
	}

	// Headers are in; from here on ctx no longer governs the body.
	stop()

	s.url = streamURL
	s.cancel = bodyCancel
	s.response = resp
	s.reader = bufio.NewReaderSize(resp.Body, s.config.Audio.BufferSize)
	s.icyMetaInt = 0
	s.hasPending = false

	if metaInt := resp.Header.Get("icy-metaint"); metaInt != "" {
		if interval, err := strconv.Atoi(metaInt); err == nil && interval > 0 {
			s.icyMetaInt = interval
		}
	}
	s.bytesUntilMeta = s.icyMetaInt

	s.metaMu.Lock()
	s.metadata = MetadataFromHeaders(streamURL, resp.Header)
	s.title = ""
	s.artist = ""
	s.metaMu.Unlock()

	logging.Debug("ICEcast source connected", logging.Fields{
		"url":          streamURL,
		"status":       resp.StatusCode,
		"icy_metaint":  s.icyMetaInt,
		"content_type": resp.Header.Get("Content-Type"),
		"station":      resp.Header.Get("icy-name"),
	})

	return nil
}

// Read fills buf with interleaved 16-bit samples. It strips ICY
// metadata blocks as they appear in the byte stream and carries a
// pending odd byte across calls so sample alignment survives metadata
// boundaries.
func (s *Source) Read(buf []int16) (int, error) {
	if s.reader == nil {
		return 0, common.NewStreamError(
			common.StreamTypeICEcast, s.url, common.ErrCodeRead,
			"source is not open", nil,
		)
	}
	if len(buf) == 0 {
		return 0, nil
	}

	raw := make([]byte, len(buf)*2)
	filled := 0
	if s.hasPending {
		raw[0] = s.pending
		s.hasPending = false
		filled = 1
	}

	n, err := s.readAudioBytes(raw[filled:])
	filled += n

	samples := filled / 2
	for i := range samples {
		buf[i] = int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
	}
	if filled%2 == 1 {
		s.pending = raw[filled-1]
		s.hasPending = true
	}

	if err != nil && samples == 0 {
		if err == io.EOF {
			return 0, io.EOF
		}
		return 0, common.NewStreamError(
			common.StreamTypeICEcast, s.url, common.ErrCodeRead,
			"stream read failed", err,
		)
	}

	return samples, nil
}

// readAudioBytes reads payload bytes, consuming in-band metadata
// blocks whenever the ICY interval elapses.
func (s *Source) readAudioBytes(dst []byte) (int, error) {
	if s.icyMetaInt == 0 {
		return s.reader.Read(dst)
	}

	total := 0
	for total < len(dst) {
		if s.bytesUntilMeta == 0 {
			if err := s.readMetadataBlock(); err != nil {
				return total, err
			}
			s.bytesUntilMeta = s.icyMetaInt
		}

		chunk := min(len(dst)-total, s.bytesUntilMeta)
		n, err := s.reader.Read(dst[total : total+chunk])
		total += n
		s.bytesUntilMeta -= n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}

	return total, nil
}

// readMetadataBlock consumes one ICY metadata block: a length byte
// (units of 16 bytes) followed by the padded metadata string.
func (s *Source) readMetadataBlock() error {
	lengthByte, err := s.reader.ReadByte()
	if err != nil {
		return err
	}

	metadataLength := int(lengthByte) * 16
	if metadataLength == 0 {
		return nil
	}

	block := make([]byte, metadataLength)
	if _, err := io.ReadFull(s.reader, block); err != nil {
		return err
	}

	if artist, title, ok := ParseStreamTitle(block); ok {
		s.metaMu.Lock()
		changed := title != s.title || artist != s.artist
		s.title = title
		s.artist = artist
		if s.metadata != nil {
			s.metadata.Title = title
			s.metadata.Artist = artist
		}
		s.metaMu.Unlock()

		if changed {
			logging.Debug("ICY title changed", logging.Fields{
				"url":    s.url,
				"title":  title,
				"artist": artist,
			})
		}
	}

	return nil
}

// CurrentTitle returns the most recent in-band title
func (s *Source) CurrentTitle() string {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()
	return s.title
}

// CurrentArtist returns the most recent in-band artist
func (s *Source) CurrentArtist() string {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()
	return s.artist
}

// Metadata returns a snapshot of the stream metadata, or nil when the
// source has never connected
func (s *Source) Metadata() *common.StreamMetadata {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()
	if s.metadata == nil {
		return nil
	}
	snapshot := *s.metadata
	return &snapshot
}

// BufferHealth reports read buffer fill as 0-100
func (s *Source) BufferHealth() int {
	if s.reader == nil {
		return 0
	}
	return s.reader.Buffered() * 100 / s.reader.Size()
}

// Close releases the stream connection. Safe to call repeatedly.
func (s *Source) Close() error {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.response != nil {
		err := s.response.Body.Close()
		s.response = nil
		s.reader = nil
		return err
	}
	return nil
}

// httpURL maps icecast/shoutcast schemes onto http for the transport;
// those servers speak plain HTTP on the same port.
func httpURL(streamURL string) string {
	lower := strings.ToLower(streamURL)
	switch {
	case strings.HasPrefix(lower, "icecast://"):
		return "http://" + streamURL[len("icecast://"):]
	case strings.HasPrefix(lower, "shoutcast://"):
		return "http://" + streamURL[len("shoutcast://"):]
	default:
		return streamURL
	}
}

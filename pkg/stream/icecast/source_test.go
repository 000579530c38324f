package icecast

import (
	"context"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// icyBody builds a response body with the given PCM samples framed by
// ICY metadata blocks every metaInt bytes.
func icyBody(samples []int16, metaInt int, streamTitle string) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(s))
	}

	if metaInt == 0 {
		return pcm
	}

	meta := []byte{}
	if streamTitle != "" {
		payload := []byte("StreamTitle='" + streamTitle + "';")
		padded := (len(payload) + 15) / 16
		block := make([]byte, 1+padded*16)
		block[0] = byte(padded)
		copy(block[1:], payload)
		meta = block
	} else {
		meta = []byte{0}
	}

	var body []byte
	for len(pcm) > 0 {
		chunk := min(metaInt, len(pcm))
		body = append(body, pcm[:chunk]...)
		pcm = pcm[chunk:]
		if chunk == metaInt {
			body = append(body, meta...)
		}
	}
	return body
}

func serveICY(t *testing.T, body []byte, metaInt int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.Header.Get("Icy-MetaData"))
		w.Header().Set("Content-Type", "audio/l16")
		w.Header().Set("icy-name", "test station")
		w.Header().Set("icy-br", "128")
		if metaInt > 0 {
			w.Header().Set("icy-metaint", "16")
		}
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}))
}

func TestSourceReadPlainPCM(t *testing.T) {
	want := []int16{100, -200, 300, -400, 500, -600, 700, -800}
	server := serveICY(t, icyBody(want, 0, ""), 0)
	defer server.Close()

	source := NewSource()
	require.NoError(t, source.Open(context.Background(), server.URL))
	defer source.Close()

	buf := make([]int16, len(want))
	total := 0
	for total < len(want) {
		n, err := source.Read(buf[total:])
		require.NoError(t, err)
		require.Greater(t, n, 0)
		total += n
	}

	assert.Equal(t, want, buf)
}

func TestSourceStripsICYMetadata(t *testing.T) {
	want := []int16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	server := serveICY(t, icyBody(want, 16, "Some Artist - Some Song"), 16)
	defer server.Close()

	source := NewSource()
	require.NoError(t, source.Open(context.Background(), server.URL))
	defer source.Close()

	got := make([]int16, 0, len(want))
	buf := make([]int16, 4)
	for len(got) < len(want) {
		n, err := source.Read(buf)
		require.NoError(t, err)
		require.Greater(t, n, 0)
		got = append(got, buf[:n]...)
	}

	assert.Equal(t, want, got)
	assert.Equal(t, "Some Song", source.CurrentTitle())
	assert.Equal(t, "Some Artist", source.CurrentArtist())
}

// The open context bounds connection setup only. Once the headers are
// in, canceling it must not tear down the streaming body.
func TestSourceReadOutlivesOpenContext(t *testing.T) {
	want := []int16{11, -22, 33, -44, 55, -66, 77, -88}
	body := icyBody(want, 0, "")
	half := len(body) / 2
	proceed := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/l16")
		w.WriteHeader(http.StatusOK)
		w.Write(body[:half])
		w.(http.Flusher).Flush()
		<-proceed
		w.Write(body[half:])
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	source := NewSource()
	require.NoError(t, source.Open(ctx, server.URL))
	defer source.Close()

	cancel()
	close(proceed)

	buf := make([]int16, len(want))
	total := 0
	for total < len(want) {
		n, err := source.Read(buf[total:])
		require.NoError(t, err)
		require.Greater(t, n, 0)
		total += n
	}
	assert.Equal(t, want, buf)
}

func TestSourceMetadataFromHeaders(t *testing.T) {
	server := serveICY(t, icyBody([]int16{1, 2}, 0, ""), 0)
	defer server.Close()

	source := NewSource()
	require.NoError(t, source.Open(context.Background(), server.URL))
	defer source.Close()

	metadata := source.Metadata()
	require.NotNil(t, metadata)
	assert.Equal(t, "Test Station", metadata.Station)
	assert.Equal(t, 128, metadata.Bitrate)
	assert.Equal(t, "audio/l16", metadata.ContentType)
}

func TestSourceOpenRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	source := NewSource()
	err := source.Open(context.Background(), server.URL)
	assert.Error(t, err)
}

func TestSourceReadBeforeOpen(t *testing.T) {
	source := NewSource()
	buf := make([]int16, 16)

	_, err := source.Read(buf)
	assert.Error(t, err)
}

func TestSourceCloseIdempotent(t *testing.T) {
	server := serveICY(t, icyBody([]int16{1}, 0, ""), 0)
	defer server.Close()

	source := NewSource()
	require.NoError(t, source.Open(context.Background(), server.URL))
	assert.NoError(t, source.Close())
	assert.NoError(t, source.Close())
}

func TestParseStreamTitle(t *testing.T) {
	tests := []struct {
		name   string
		block  string
		artist string
		title  string
		ok     bool
	}{
		{"artist and title", "StreamTitle='Miles Davis - So What';", "Miles Davis", "So What", true},
		{"title only", "StreamTitle='Station Jingle';", "", "Station Jingle", true},
		{"with other fields", "StreamTitle='A - B';StreamUrl='http://x';", "A", "B", true},
		{"empty title", "StreamTitle='';", "", "", false},
		{"no stream title", "StreamUrl='http://x';", "", "", false},
		{"garbage", "not metadata at all", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block := make([]byte, ((len(tt.block)+15)/16)*16)
			copy(block, tt.block)

			artist, title, ok := ParseStreamTitle(block)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.artist, artist)
			assert.Equal(t, tt.title, title)
		})
	}
}

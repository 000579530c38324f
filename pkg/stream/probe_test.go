package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/stream-ingest/pkg/stream/common"
)

func TestProbeSuccess(t *testing.T) {
	var gotMethod, gotAgent, gotICY string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAgent = r.Header.Get("User-Agent")
		gotICY = r.Header.Get("Icy-MetaData")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := Probe(context.Background(), server.Client(), server.URL+"/stream", nil)
	require.NoError(t, err)

	assert.Equal(t, http.MethodHead, gotMethod)
	assert.Equal(t, "stream-ingest/1.0", gotAgent)
	assert.Equal(t, "1", gotICY)
}

func TestProbePartialContentAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPartialContent)
	}))
	defer server.Close()

	err := Probe(context.Background(), server.Client(), server.URL+"/stream", nil)
	assert.NoError(t, err)
}

func TestProbeErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	err := Probe(context.Background(), server.Client(), server.URL+"/stream", nil)
	require.Error(t, err)

	var streamErr *common.StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, common.ErrCodeProbe, streamErr.Code)
}

func TestProbeInvalidURL(t *testing.T) {
	err := Probe(context.Background(), http.DefaultClient, "ftp://example.com/stream", nil)
	require.Error(t, err)

	var streamErr *common.StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, common.ErrCodeInvalidURL, streamErr.Code)
}

func TestProbeCustomConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "custom-agent/2.0", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &ProbeConfig{Timeout: 5 * time.Second, UserAgent: "custom-agent/2.0"}
	err := Probe(context.Background(), server.Client(), server.URL, cfg)
	assert.NoError(t, err)
}

func TestProbeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &ProbeConfig{Timeout: 20 * time.Millisecond, UserAgent: "stream-ingest/1.0"}
	err := Probe(context.Background(), server.Client(), server.URL, cfg)

	var streamErr *common.StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, common.ErrCodeProbe, streamErr.Code)
}

func TestProbeURLSchemeMapping(t *testing.T) {
	assert.Equal(t, "http://radio.example.com:8000/live", probeURL("icecast://radio.example.com:8000/live"))
	assert.Equal(t, "http://radio.example.com:80/", probeURL("shoutcast://radio.example.com"))
	assert.Equal(t, "https://radio.example.com/live", probeURL("https://radio.example.com/live"))
}

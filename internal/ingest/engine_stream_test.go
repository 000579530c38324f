package ingest

import (
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveLivePCM answers the reachability probe and then streams
// interleaved 16-bit PCM in small flushed chunks until the client
// hangs up, the way a mount point behaves.
func serveLivePCM(t *testing.T, sample int16) *httptest.Server {
	t.Helper()
	chunk := make([]byte, 4096)
	for i := 0; i < len(chunk); i += 2 {
		binary.LittleEndian.PutUint16(chunk[i:], uint16(sample))
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "audio/l16")
		w.Header().Set("icy-name", "live test station")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for {
			if _, err := w.Write(chunk); err != nil {
				return
			}
			flusher.Flush()
			select {
			case <-r.Context().Done():
				return
			case <-time.After(time.Millisecond):
			}
		}
	}))
}

// End to end over the default ICEcast source: connect, then keep
// pulling samples well past the connect phase.
func TestEngineIngestsFromLiveServer(t *testing.T) {
	server := serveLivePCM(t, 8000)
	defer server.Close()

	cfg := DefaultConfig()
	cfg.PrimaryURL = server.URL + "/live"
	cfg.ProbeTimeout = 2 * time.Second
	cfg.EnableNormalization = false

	e := NewEngine(cfg, nil)
	require.NoError(t, e.Initialize())
	require.NoError(t, e.Start())
	defer e.Stop()

	buf := make([]int16, 2048)
	deadline := time.Now().Add(5 * time.Second)
	total := 0
	reads := 0
	for total < 8*1024 {
		require.True(t, time.Now().Before(deadline), "stream stalled after %d samples", total)
		n := e.ReadSamples(buf)
		require.True(t, e.IsConnected())
		total += n
		reads++
	}
	require.GreaterOrEqual(t, reads, 4)

	assert.Equal(t, cfg.PrimaryURL, e.CurrentURL())
	metrics := e.QualityMetrics()
	assert.False(t, metrics.Silence)
	assert.Greater(t, metrics.RMSLevel, 0.0)
	assert.Greater(t, e.Statistics().TotalSamplesProcessed, int64(0))
}

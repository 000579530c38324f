package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/stream-ingest/pkg/stream/common"
	"github.com/RyanBlaney/stream-ingest/pkg/stream/icecast"
)

func TestFactoryDefaultRegistrations(t *testing.T) {
	factory := NewFactory()

	types := factory.SupportedTypes()
	assert.Contains(t, types, common.StreamTypeICEcast)
	assert.Contains(t, types, common.StreamTypeShoutcast)
}

func TestFactoryCreateSource(t *testing.T) {
	factory := NewFactory()

	source, err := factory.CreateSource(common.StreamTypeICEcast)
	require.NoError(t, err)
	assert.IsType(t, &icecast.Source{}, source)
}

func TestFactoryUnsupportedType(t *testing.T) {
	factory := NewFactory()

	_, err := factory.CreateSource(common.StreamTypeUnsupported)
	require.Error(t, err)

	var streamErr *common.StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, common.ErrCodeUnsupported, streamErr.Code)
}

func TestFactorySourceForURL(t *testing.T) {
	factory := NewFactory()

	tests := []struct {
		name string
		url  string
	}{
		{"http", "http://stream.example.com:8000/live"},
		{"https", "https://stream.example.com/live"},
		{"icecast", "icecast://stream.example.com/live"},
		{"shoutcast", "shoutcast://stream.example.com:8100/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, err := factory.SourceForURL(tt.url)
			require.NoError(t, err)
			assert.NotNil(t, source)
		})
	}
}

func TestFactorySourceForInvalidURL(t *testing.T) {
	factory := NewFactory()

	_, err := factory.SourceForURL("rtsp://stream.example.com/live")
	require.Error(t, err)

	var streamErr *common.StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, common.ErrCodeInvalidURL, streamErr.Code)
}

func TestFactoryCustomRegistration(t *testing.T) {
	factory := NewFactory()

	called := false
	factory.RegisterSourceFactory(common.StreamTypeICEcast, func() common.Source {
		called = true
		return icecast.NewSource()
	})

	_, err := factory.CreateSource(common.StreamTypeICEcast)
	require.NoError(t, err)
	assert.True(t, called)
}

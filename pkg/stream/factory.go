package stream

import (
	"fmt"
	"sync"

	"github.com/RyanBlaney/stream-ingest/pkg/stream/common"
	"github.com/RyanBlaney/stream-ingest/pkg/stream/icecast"
	"github.com/RyanBlaney/stream-ingest/pkg/stream/urlparse"
)

// Factory creates media sources by stream type
type Factory struct {
	sources map[common.StreamType]common.SourceFactory
	mu      sync.RWMutex
}

// NewFactory creates a new source factory with default registrations
func NewFactory() *Factory {
	f := &Factory{
		sources: make(map[common.StreamType]common.SourceFactory),
	}

	// ICEcast and Shoutcast share the same transport
	f.RegisterSourceFactory(common.StreamTypeICEcast, func() common.Source {
		return icecast.NewSource()
	})
	f.RegisterSourceFactory(common.StreamTypeShoutcast, func() common.Source {
		return icecast.NewSource()
	})

	return f
}

// CreateSource creates a source for the given stream type
func (f *Factory) CreateSource(streamType common.StreamType) (common.Source, error) {
	f.mu.RLock()
	sourceFactory, exists := f.sources[streamType]
	f.mu.RUnlock()

	if !exists {
		return nil, common.NewStreamError(
			streamType, "", common.ErrCodeUnsupported,
			fmt.Sprintf("unsupported stream type: %s", streamType),
			nil,
		)
	}

	return sourceFactory(), nil
}

// SourceForURL maps a stream URL onto a source via its scheme
func (f *Factory) SourceForURL(streamURL string) (common.Source, error) {
	parsed := urlparse.Parse(streamURL)
	if !parsed.IsValid || !urlparse.IsSupportedProtocol(parsed.Protocol) {
		return nil, common.NewStreamError(
			common.StreamTypeUnsupported, streamURL, common.ErrCodeInvalidURL,
			"stream URL failed validation", nil,
		)
	}

	switch parsed.Protocol {
	case "shoutcast":
		return f.CreateSource(common.StreamTypeShoutcast)
	default:
		return f.CreateSource(common.StreamTypeICEcast)
	}
}

// RegisterSourceFactory registers a source factory function
func (f *Factory) RegisterSourceFactory(streamType common.StreamType, factory common.SourceFactory) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sources[streamType] = factory
}

// SupportedTypes returns the list of registered stream types
func (f *Factory) SupportedTypes() []common.StreamType {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]common.StreamType, 0, len(f.sources))
	for streamType := range f.sources {
		types = append(types, streamType)
	}
	return types
}

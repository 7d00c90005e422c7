package core

import (
	"fmt"
	"sort"
	"sync"

	"github.com/valter-silva-au/runboard/internal/tensor"
	"github.com/valter-silva-au/runboard/pkg/models"
)

// Artifact is what a handler receives for one produced artifact.
type Artifact struct {
	Name      string
	Filename  string
	Array     *tensor.Array
	Metadata  models.ArtifactMetadata
	Iteration int64

	// Load decodes auxiliary array files referenced from Metadata.
	Load ArrayDecoder
}

// HandlerFunc converts a decoded artifact into summary writer calls. A
// handler must validate its input before its first writer call.
type HandlerFunc func(w SummaryWriter, a Artifact) error

// ContentTypeRegistry maps content types to handlers. Handlers are registered
// during setup and only looked up afterwards; one registry may be shared by
// several Observers.
type ContentTypeRegistry struct {
	mu       sync.RWMutex
	handlers map[models.ContentType]HandlerFunc
}

// NewContentTypeRegistry creates an empty ContentTypeRegistry.
func NewContentTypeRegistry() *ContentTypeRegistry {
	return &ContentTypeRegistry{
		handlers: make(map[models.ContentType]HandlerFunc),
	}
}

// NewDefaultRegistry creates a registry holding the built-in image,
// histogram, audio and embedding handlers.
func NewDefaultRegistry() (*ContentTypeRegistry, error) {
	r := NewContentTypeRegistry()
	builtins := []struct {
		ct models.ContentType
		h  HandlerFunc
	}{
		{models.ContentTypeImage, HandleImage},
		{models.ContentTypeHistogram, HandleHistogram},
		{models.ContentTypeAudio, HandleAudio},
		{models.ContentTypeEmbedding, HandleEmbedding},
	}
	for _, b := range builtins {
		if err := r.Register(b.ct, b.h); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register binds h to contentType. Each content type may be registered once.
func (r *ContentTypeRegistry) Register(contentType models.ContentType, h HandlerFunc) error {
	if contentType == "" {
		return fmt.Errorf("registering handler: %w", ErrEmptyContentType)
	}
	if h == nil {
		return fmt.Errorf("registering handler for %q: %w", contentType, ErrNilHandler)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[contentType]; exists {
		return fmt.Errorf("registering handler: %w: %s", ErrDuplicateContentType, contentType)
	}
	r.handlers[contentType] = h
	return nil
}

// Lookup returns the handler bound to contentType.
func (r *ContentTypeRegistry) Lookup(contentType models.ContentType) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[contentType]
	return h, ok
}

// ContentTypes returns the registered content types in sorted order.
func (r *ContentTypeRegistry) ContentTypes() []models.ContentType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ContentType, 0, len(r.handlers))
	for ct := range r.handlers {
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

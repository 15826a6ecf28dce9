// Package ocr defines the annotation engines the pipeline can call: remote
// vision APIs, HTTP OCR services, or a local Tesseract install. Engines
// return their provider's response as JSON and never interpret it.
package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Source tells the pipeline what an engine needs to see.
type Source int

const (
	// SourceContent engines read the fetched image bytes.
	SourceContent Source = iota
	// SourceURL engines dereference a pre-signed read URL themselves, so the
	// pipeline skips the download.
	SourceURL
)

func (s Source) String() string {
	switch s {
	case SourceContent:
		return "content"
	case SourceURL:
		return "url"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// Image is one annotation request. Exactly one of Content or URL is used,
// depending on the engine's Source.
type Image struct {
	Name    string
	Content []byte
	URL     string
}

// Engine annotates a single image synchronously.
type Engine interface {
	Name() string
	Source() Source
	Annotate(ctx context.Context, img Image) (json.RawMessage, error)
	Close() error
}

// Config selects and configures an engine.
type Config struct {
	Engine string

	VisionCredentialsFile string
	VisionEndpoint        string

	APIURL       string
	DocumentType string
	DocumentCode string
	APITimeout   time.Duration

	Languages []string
}

// Factory builds an engine from cfg.
type Factory func(ctx context.Context, cfg Config) (Engine, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{
		"vision": func(ctx context.Context, cfg Config) (Engine, error) { return NewVisionEngine(ctx, cfg) },
		"http":   func(_ context.Context, cfg Config) (Engine, error) { return NewHTTPEngine(cfg) },
	}
)

// Register makes an engine available under name. Engines with native
// dependencies register themselves from init behind a build tag.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = f
}

// New builds the engine named by cfg.Engine.
func New(ctx context.Context, cfg Config) (Engine, error) {
	mu.RLock()
	f, ok := factories[cfg.Engine]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported annotation engine %q (available: %v)", cfg.Engine, Available())
	}
	return f(ctx, cfg)
}

// Available lists registered engine names.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Package bridge adapts a user transform to a model server's request loop.
// The transform is loaded and initialized on the first request.
package bridge

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"modelshim/internal/config"
)

var (
	// ErrNotInitialized is returned by transform before initialization.
	ErrNotInitialized = errors.New("bridge not initialized")
	// ErrEmptyBatch is returned for a non-nil batch without requests.
	ErrEmptyBatch = errors.New("empty request batch")
	// ErrInvalidUTF8 is returned for a request body that is not UTF-8 text.
	ErrInvalidUTF8 = errors.New("request body is not valid UTF-8")
)

// initError wraps any failure to bring the transformer up.
type initError struct{ err error }

func (e initError) Error() string { return "bridge initialization: " + e.err.Error() }

func (e initError) Unwrap() error { return e.err }

// IsInitError reports whether err happened while initializing the bridge
// rather than while transforming a request.
func IsInitError(err error) bool {
	var ie initError
	return errors.As(err, &ie)
}

// Request is one entry of a request batch.
type Request struct {
	Body []byte
}

// Response is the transform output for one request.
type Response struct {
	Body        []byte
	ContentType string
}

// RequestContext is supplied by the hosting runtime with each batch.
type RequestContext interface {
	// ResponseContentType returns the desired content type of the idx-th response.
	ResponseContentType(idx int) string
}

// StaticContext answers every index with the same content type.
type StaticContext string

func (c StaticContext) ResponseContentType(int) string { return string(c) }

// Transformer is a framework-wrapped user module.
type Transformer interface {
	// Initialize runs once, before the first Transform.
	Initialize() error
	// Model returns the value passed back to Transform.
	Model() any
	Transform(model any, body, contentType, accept string) (Response, error)
}

// Options configures a Bridge.
type Options struct {
	Env      config.ServingEnv
	Loader   ModuleLoader
	Registry *Registry
	Log      zerolog.Logger
}

// Bridge holds the lazily initialized transformer of one process.
type Bridge struct {
	opts        Options
	mu          sync.Mutex
	initialized atomic.Bool
	transformer Transformer
}

// New returns an uninitialized Bridge.
func New(opts Options) *Bridge {
	if opts.Loader == nil {
		opts.Loader = PluginLoader{}
	}
	if opts.Registry == nil {
		opts.Registry = DefaultRegistry()
	}
	return &Bridge{opts: opts}
}

// Initialized reports whether the transformer is ready.
func (b *Bridge) Initialized() bool { return b.initialized.Load() }

// Handle is the request entry point. It initializes the bridge on first use,
// returns nil for a nil batch and otherwise the single transformed response.
// Transform errors are returned unchanged.
func (b *Bridge) Handle(batch []Request, rc RequestContext) ([]Response, error) {
	if err := b.ensureInitialized(rc); err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, nil
	}
	resp, err := b.transform(batch, rc)
	if err != nil {
		return nil, err
	}
	return []Response{resp}, nil
}

func (b *Bridge) ensureInitialized(rc RequestContext) error {
	if b.initialized.Load() {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized.Load() {
		return nil
	}
	if err := b.initialize(rc); err != nil {
		return initError{err: err}
	}
	return nil
}

// initialize must be called with b.mu held. On failure the bridge stays
// uninitialized and the next request retries.
func (b *Bridge) initialize(RequestContext) error {
	env := b.opts.Env
	framework := env.FrameworkSupport()
	if framework == "" {
		framework = GenericFramework
	}
	adapter, err := b.opts.Registry.Resolve(framework)
	if err != nil {
		return err
	}
	mod, err := b.opts.Loader.Load(env.ModuleDir, env.ModuleName)
	if err != nil {
		return fmt.Errorf("load user module: %w", err)
	}
	t, err := adapter(mod, env.ModelDir)
	if err != nil {
		return fmt.Errorf("adapt user module: %w", err)
	}
	if err := t.Initialize(); err != nil {
		return fmt.Errorf("initialize transformer: %w", err)
	}
	b.transformer = t
	b.initialized.Store(true)
	b.opts.Log.Info().Str("framework", framework).Str("module", env.ModuleName).Msg("bridge initialized")
	return nil
}

func (b *Bridge) transform(batch []Request, rc RequestContext) (Response, error) {
	if !b.initialized.Load() {
		return Response{}, ErrNotInitialized
	}
	if len(batch) == 0 {
		return Response{}, ErrEmptyBatch
	}
	// transforms receive text
	if !utf8.Valid(batch[0].Body) {
		return Response{}, ErrInvalidUTF8
	}
	ct := ""
	if rc != nil {
		ct = rc.ResponseContentType(0)
	}
	t := b.transformer
	return t.Transform(t.Model(), string(batch[0].Body), ct, ct)
}

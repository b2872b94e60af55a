// Package httphost serves a bridge over HTTP: a ping probe, the invocation
// endpoint, Prometheus metrics and the API docs.
package httphost

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	"modelshim/internal/bridge"
	"modelshim/pkg/types"
)

// DefaultMaxBodyBytes caps invocation payloads when Options.MaxBodyBytes is unset.
const DefaultMaxBodyBytes int64 = 6 << 20

const defaultContentType = "application/json"

// Handler is the part of *bridge.Bridge the host needs.
type Handler interface {
	Handle(batch []bridge.Request, rc bridge.RequestContext) ([]bridge.Response, error)
	Initialized() bool
}

// Factory builds the Handler. It is called once, on the first invocation.
type Factory func() (Handler, error)

// BridgeFactory returns a Factory constructing a bridge from opts.
func BridgeFactory(opts bridge.Options) Factory {
	return func() (Handler, error) { return bridge.New(opts), nil }
}

// CORSOptions configures the optional CORS middleware.
type CORSOptions struct {
	Enabled        bool
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Options configures the mux.
type Options struct {
	MaxBodyBytes int64
	CORS         CORSOptions
	// Swagger mounts the API docs under /swagger/.
	Swagger bool
	Log     zerolog.Logger
}

type host struct {
	get     func() (Handler, error)
	maxBody int64
	log     zerolog.Logger
}

// NewMux returns the HTTP handler for a bridge built lazily by factory.
func NewMux(factory Factory, opts Options) http.Handler {
	h := &host{
		get:     sync.OnceValues(factory),
		maxBody: opts.MaxBodyBytes,
		log:     opts.Log,
	}
	if h.maxBody <= 0 {
		h.maxBody = DefaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observeRequests)
	if opts.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORS.AllowedOrigins,
			AllowedMethods: opts.CORS.AllowedMethods,
			AllowedHeaders: opts.CORS.AllowedHeaders,
		}))
	}

	r.Get("/ping", h.ping)
	r.Post("/invocations", h.invocations)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	if opts.Swagger {
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	}
	return r
}

func (h *host) ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *host) invocations(w http.ResponseWriter, r *http.Request) {
	inflight.Inc()
	defer inflight.Dec()
	start := time.Now()
	logger := h.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var mbe *http.MaxBytesError
		invocationsTotal.WithLabelValues(outcomeBadRequest).Inc()
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	b, err := h.get()
	if err != nil {
		invocationsTotal.WithLabelValues(outcomeInitError).Inc()
		logger.Error().Err(err).Msg("bridge unavailable")
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ct := responseContentType(r)
	out, err := b.Handle([]bridge.Request{{Body: body}}, bridge.StaticContext(ct))
	if errors.Is(err, bridge.ErrInvalidUTF8) {
		invocationsTotal.WithLabelValues(outcomeBadRequest).Inc()
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		outcome := outcomeTransformError
		if bridge.IsInitError(err) {
			outcome = outcomeInitError
		}
		invocationsTotal.WithLabelValues(outcome).Inc()
		logger.Error().Err(err).Str("outcome", outcome).Dur("dur", time.Since(start)).Msg("invoke failed")
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(out) == 0 {
		invocationsTotal.WithLabelValues(outcomeNoContent).Inc()
		w.WriteHeader(http.StatusNoContent)
		return
	}
	invocationsTotal.WithLabelValues(outcomeOK).Inc()
	resp := out[0]
	if resp.ContentType != "" {
		ct = resp.ContentType
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.Body)
	logger.Debug().Int("bytes", len(resp.Body)).Str("content_type", ct).Dur("dur", time.Since(start)).Msg("invoke end")
}

// responseContentType picks the content type the transform should produce:
// Accept, then Content-Type, then application/json. A bare wildcard Accept
// counts as absent.
func responseContentType(r *http.Request) string {
	if a := strings.TrimSpace(r.Header.Get("Accept")); a != "" && a != "*/*" {
		return a
	}
	if c := strings.TrimSpace(r.Header.Get("Content-Type")); c != "" {
		return c
	}
	return defaultContentType
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

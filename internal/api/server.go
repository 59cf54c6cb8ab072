// Package api exposes the chat service over HTTP: a streaming /chat endpoint
// speaking the SSE envelope protocol, plus JSON endpoints for models,
// uploads, conversations, and artifacts.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/quill-ai/quill/internal/agent"
	"github.com/quill-ai/quill/internal/artifact"
	"github.com/quill-ai/quill/internal/log"
	"github.com/quill-ai/quill/internal/session"
	"github.com/quill-ai/quill/internal/upload"
)

// ModelInfo is a catalog entry served by GET /models.
type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger       log.Logger
	Store        session.Store // required
	Factory      agent.Factory // required
	Extractor    upload.Extractor
	Artifacts    *artifact.Store // optional: nil disables artifact endpoints
	Models       []ModelInfo
	DefaultModel string
	TurnTimeout  time.Duration // 0 = default 5m
	RateBurst    int           // rate limiter burst size per IP (0 = default 60)
	TrustProxy   bool          // trust X-Real-IP/X-Forwarded-For headers
	CORSOrigins  []string
}

const defaultTurnTimeout = 5 * time.Minute

// Server is the JSON/SSE HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Factory == nil {
		return nil, errors.New("runtime factory is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	timeout := cfg.TurnTimeout
	if timeout <= 0 {
		timeout = defaultTurnTimeout
	}

	defaultModel := cfg.DefaultModel
	if defaultModel == "" && len(cfg.Models) > 0 {
		defaultModel = cfg.Models[0].ID
	}

	ch := &chatHandler{
		logger:       logger,
		store:        cfg.Store,
		factory:      cfg.Factory,
		defaultModel: defaultModel,
		turnTimeout:  timeout,
		locks:        newConversationLocks(),
	}

	cv := &conversationHandler{store: cfg.Store, logger: logger}

	extractor := cfg.Extractor
	if extractor == nil {
		extractor = &upload.PDFTextExtractor{}
	}
	up := &uploadHandler{extractor: extractor, logger: logger}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /chat", ch.send)
	mux.HandleFunc("GET /models", modelsHandler(cfg.Models, defaultModel, logger))
	mux.HandleFunc("POST /upload", up.upload)

	mux.HandleFunc("GET /conversations/{id}", cv.get)
	mux.HandleFunc("DELETE /conversations/{id}", cv.delete)
	mux.HandleFunc("GET /conversations/{id}/export", cv.export)

	if cfg.Artifacts != nil {
		ah := &artifactHandler{store: cfg.Artifacts, logger: logger}
		mux.HandleFunc("GET /artifacts", ah.list)
		mux.HandleFunc("GET /artifacts/{name}", ah.read)
	}

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack, outermost first:
	//   Recovery → Logging → CORS → RateLimit → Routes
	// CORS before RateLimit so preflight OPTIONS gets proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probe bypasses the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /healthz", health)
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Package api serves a read-only status API for a running benchmark
// session: health, version, the current status sample, buffered logs,
// server-sent events and Prometheus metrics.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/smazurov/picambench/internal/logging"
	"github.com/smazurov/picambench/internal/version"
)

// shutdownTimeout bounds how long Stop waits for in-flight requests.
const shutdownTimeout = 2 * time.Second

// Server is the Huma v2 status API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	logger     *slog.Logger
}

// basicAuthMiddleware rejects requests to secured operations that lack
// matching credentials. Health and version carry no security requirement
// and pass through.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if op := ctx.Operation(); op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		user, pass, err := requestCredentials(ctx)
		if err == nil && !credentialsMatch(user, pass, username, password) {
			err = errors.New("invalid credentials")
		}
		if err != nil {
			ctx.SetHeader("WWW-Authenticate", `Basic realm="picambench"`)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, err.Error())
			return
		}
		next(ctx)
	}
}

// requestCredentials reads basic auth from the Authorization header, or
// from a base64 "auth" query parameter for EventSource clients that
// cannot set headers.
func requestCredentials(ctx huma.Context) (string, string, error) {
	encoded := ctx.Query("auth")
	if header := ctx.Header("Authorization"); header != "" {
		var ok bool
		if encoded, ok = strings.CutPrefix(header, "Basic "); !ok {
			return "", "", errors.New("invalid authentication type")
		}
	}
	if encoded == "" {
		return "", "", errors.New("authentication required")
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", errors.New("invalid credentials format")
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", "", errors.New("invalid credentials format")
	}
	return user, pass, nil
}

func credentialsMatch(user, pass, wantUser, wantPass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(wantUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(wantPass)) == 1
	return userOK && passOK
}

// NewServer creates a new API server with Huma v2 using Go 1.22+ native routing.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	cors := readOnlyCORS()
	mux.HandleFunc("OPTIONS /", cors.preflight)

	config := huma.DefaultConfig("picambench API", version.Get().Version)
	config.Info.Description = "Read-only status of a running camera pipeline benchmark"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	server := &Server{
		api: api,
		mux: mux,
		httpServer: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		options: opts,
		logger:  logging.GetLogger("api"),
	}

	api.UseMiddleware(cors.middleware)
	api.UseMiddleware(server.logRequests)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	// Metrics are scraped without auth.
	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()
	return server
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Listen binds addr so that bind errors surface before the session starts.
// The returned listener is passed to Serve.
func (s *Server) Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Status API listening", "addr", ln.Addr().String())
	s.logger.Info("OpenAPI documentation available", "url", "http://"+ln.Addr().String()+"/docs")
	return ln, nil
}

// Serve serves on ln until Stop is called. It returns nil after a clean
// shutdown.
func (s *Server) Serve(ln net.Listener) error {
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down. Open SSE streams are closed once the
// shutdown timeout expires.
func (s *Server) Stop() error {
	s.logger.Info("Stopping status API")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return s.httpServer.Close()
	}
	return nil
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}

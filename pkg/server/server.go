package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/levenlabs/go-lflag"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pvcast/pvcast/pkg/forecast"
	"github.com/pvcast/pvcast/pkg/log"
)

// Server handles the HTTP API for the PVCast system. It owns the request
// boundary: all taxonomy errors are translated into transport responses here
// and nowhere else.
type Server struct {
	reconciler *forecast.Reconciler

	listenAddr     string
	allowedOrigins []string
	serverName     string
	httpServer     *http.Server
}

// Configured initializes the Server with the forecast engine.
// It uses lflag to register command-line flags for configuration.
func Configured(engine forecast.Engine) *Server {
	srv := &Server{
		reconciler: forecast.NewReconciler(engine),
		serverName: "pvcast",
	}

	// get the port from PORT when running in a container platform
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8000
		port = "8000"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	allowedOrigins := lflag.String("allowed-origins", "http://localhost:3000,http://localhost:8000,https://solar-pv-forecast.vercel.app", "comma-delimited list of CORS origins, or * for any")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		for _, o := range strings.Split(*allowedOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				srv.allowedOrigins = append(srv.allowedOrigins, strings.TrimSuffix(o, "/"))
			}
		}
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /forecast/", s.handleForecast)
	mux.HandleFunc("POST /forecast", s.handleForecast)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.serverNameMiddleware(gziphandler.GzipHandler(s.corsMiddleware(s.metricsMiddleware(mux))))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

// writeDetailError writes the client-facing error shape. msg ends up under
// "detail" prefixed with "Invalid request: ".
func writeDetailError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Detail string `json:"detail"`
	}{Detail: "Invalid request: " + msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (s *Server) serverNameMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}

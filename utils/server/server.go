package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/kris-hansen/pfmea/utils/config"
	"github.com/kris-hansen/pfmea/utils/history"
	"github.com/kris-hansen/pfmea/utils/models"
	"github.com/kris-hansen/pfmea/utils/spreadsheet"
	"github.com/kris-hansen/pfmea/utils/table"
)

type ctxKey int

const requestIDKey ctxKey = iota

// ProviderFactory returns a ready-to-use provider for a model
type ProviderFactory func(modelName string) (models.Provider, error)

// Server exposes PFMEA generation and table extraction over HTTP
type Server struct {
	config      *config.ServerConfig
	envConfig   *config.EnvConfig
	newProvider ProviderFactory
	history     *history.Store

	mu       sync.RWMutex
	examples *table.Table
}

// Options are the optional parts of a running server
type Options struct {
	Examples *table.Table
	// ExamplesPath is watched and reloaded into Examples when set
	ExamplesPath string
}

// New builds a server from the environment configuration. examples may be nil.
func New(envConfig *config.EnvConfig, examples *table.Table) *Server {
	s := &Server{
		config:    envConfig.GetServerConfig(),
		envConfig: envConfig,
		examples:  examples,
	}
	s.newProvider = func(modelName string) (models.Provider, error) {
		return models.ResolveProvider(s.envConfig, modelName, config.Verbose)
	}
	return s
}

// SetProviderFactory replaces how providers are built for each request
func (s *Server) SetProviderFactory(f ProviderFactory) {
	s.newProvider = f
}

// SetHistory records successful generations in store and serves them
// under /history. A nil store turns the history off.
func (s *Server) SetHistory(store *history.Store) {
	s.history = store
}

// SetExamples swaps the example rows used for new generations
func (s *Server) SetExamples(examples *table.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.examples = examples
}

func (s *Server) currentExamples() *table.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.examples
}

// Handler returns the routed, authenticated, CORS-aware handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/columns", s.handleColumns)
	mux.HandleFunc("/generate", s.handleGenerate)
	mux.HandleFunc("/extract", s.handleExtract)
	mux.HandleFunc("/history", s.handleHistoryList)
	mux.HandleFunc("/history/", s.handleHistoryEntry)
	return s.withRequestID(s.withCORS(s.withAuth(mux)))
}

// Run starts the server and blocks until SIGINT/SIGTERM
func Run(envConfig *config.EnvConfig, opts Options) error {
	s := New(envConfig, opts.Examples)

	historyPath, err := envConfig.HistoryPath()
	if err != nil {
		return fmt.Errorf("invalid history_file: %w", err)
	}
	if historyPath != "" {
		store, err := history.Open(historyPath)
		if err != nil {
			return err
		}
		defer store.Close()
		s.SetHistory(store)
		log.Printf("[INFO] Recording generations in %s\n", historyPath)
	}

	if opts.ExamplesPath != "" {
		watcher, err := spreadsheet.WatchExamples(opts.ExamplesPath, spreadsheet.DefaultWindow, spreadsheet.DefaultReloadDelay, s.SetExamples)
		if err != nil {
			log.Printf("[WARN] Example workbook will not be reloaded: %v\n", err)
		} else {
			defer watcher.Close()
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// generation waits on the model, which can take minutes
		WriteTimeout: 5 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] PFMEA server listening on %s\n", addr)
		if s.config.Enabled {
			log.Printf("[INFO] Bearer token authentication enabled\n")
		}
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-sigCh:
		log.Printf("[INFO] Received %s, shutting down\n", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		config.DebugLog("[Server] %s %s request_id=%s", r.Method, r.URL.Path, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.config.Enabled || r.URL.Path == "/health" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.config.BearerToken {
			writeJSON(w, http.StatusUnauthorized, TableResponse{
				RequestID: requestID(r),
				Error:     "Unauthorized",
				ErrorKind: KindInvalidRequest,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cors := s.config.CORS
		if !cors.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		origin := r.Header.Get("Origin")
		if allowed := allowedOrigin(cors.AllowedOrigins, origin); allowed != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", strings.Join(cors.AllowedMethods, ", "))
			w.Header().Set("Access-Control-Allow-Headers", strings.Join(cors.AllowedHeaders, ", "))
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
			if cors.MaxAge > 0 {
				w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cors.MaxAge))
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func allowedOrigin(allowed []string, origin string) string {
	for _, o := range allowed {
		if o == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		config.DebugLog("[Server] Failed to encode response: %v", err)
	}
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	limit := s.config.MaxBodyBytes
	if limit <= 0 {
		limit = config.DefaultServerConfig().MaxBodyBytes
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

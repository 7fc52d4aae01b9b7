package register

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/zombor/caixa/internal/scanning"
)

// Server exposes the register over a JSON HTTP API
type Server struct {
	store     *Store
	closeOut  *CloseOut
	scanner   scanning.Scanner
	basicAuth BasicAuth
	validate  *validator.Validate
	mux       *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux. scanner may be nil, in
// which case check scanning answers 503.
func NewServer(store *Store, closeOut *CloseOut, scanner scanning.Scanner, basicAuth BasicAuth) *Server {
	return NewServerWithMux(store, closeOut, scanner, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(store *Store, closeOut *CloseOut, scanner scanning.Scanner, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		store:     store,
		closeOut:  closeOut,
		scanner:   scanner,
		basicAuth: basicAuth,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return false
	}

	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.basicAuth.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.basicAuth.Password)) == 1
	return userOK && passOK
}

// corsMiddleware adds CORS headers and answers preflight requests
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Caixa"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	// Session
	s.mux.HandleFunc("GET /api/session", s.requireAuth(s.handleGetSession))
	s.mux.HandleFunc("PATCH /api/session/entries", s.requireAuth(s.handleUpdateEntries))
	s.mux.HandleFunc("PATCH /api/session/exits", s.requireAuth(s.handleUpdateExits))
	s.mux.HandleFunc("POST /api/session/checks/scan", s.requireAuth(s.handleScanCheck))
	s.mux.HandleFunc("POST /api/session/checks", s.requireAuth(s.handleAddChecks))
	s.mux.HandleFunc("POST /api/session/lists/{list}", s.requireAuth(s.handleAddListItem))
	s.mux.HandleFunc("DELETE /api/session/lists/{list}/{index}", s.requireAuth(s.handleRemoveListItem))
	s.mux.HandleFunc("POST /api/session/save", s.requireAuth(s.handleSaveSession))

	// Cancellation log
	s.mux.HandleFunc("GET /api/cancellations", s.requireAuth(s.handleListCancellations))
	s.mux.HandleFunc("POST /api/cancellations", s.requireAuth(s.handleAddCancellation))

	// Close-out
	s.mux.HandleFunc("GET /api/closeout", s.requireAuth(s.handleGetCloseOut))
	s.mux.HandleFunc("POST /api/closeout", s.requireAuth(s.handleGenerateCloseOut))
	s.mux.HandleFunc("POST /api/closeout/print", s.requireAuth(s.handlePrintCloseOut))
	s.mux.HandleFunc("POST /api/closeout/confirm", s.requireAuth(s.handleConfirmCloseOut))
	s.mux.HandleFunc("POST /api/closeout/decline", s.requireAuth(s.handleDeclineCloseOut))
	s.mux.HandleFunc("GET /api/closeout/report", s.requireAuth(s.handleGetCloseOutReport))
	s.mux.HandleFunc("GET /api/closeouts/{id}", s.requireAuth(s.handleGetArchivedCloseOut))
	s.mux.HandleFunc("GET /api/closeouts/{id}/pdf", s.requireAuth(s.handleGetArchivedCloseOutPDF))
	s.mux.HandleFunc("GET /api/closeouts", s.requireAuth(s.handleListCloseOuts))
}

// Handler returns the mux wrapped with the CORS middleware
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.mux)
}

// Start serves the API on addr until ctx is done
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Error shutting down server", "error", err)
		}
	}()

	slog.Info("Starting server", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

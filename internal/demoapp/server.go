// Package demoapp is a small stand-in for the CSV Manager web application:
// username/password accounts, a product table, CSV export and CSV import.
// It serves the same element ids and texts the round trip looks for, so the
// pipeline can be exercised end to end without the hosted site.
package demoapp

import (
	"crypto/rand"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

// Options configures a Server.
type Options struct {
	Store  *Store      // nil creates an empty store
	Secret []byte      // HMAC key for session tokens; random if empty
	Logger *log.Logger // request log; nil disables it
}

// Server is the demo application's HTTP handler.
type Server struct {
	router    *chi.Mux
	store     *Store
	secret    []byte
	templates *template.Template
	log       *log.Logger
}

// New builds the application router.
func New(opts Options) (*Server, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	secret := opts.Secret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generating session secret: %w", err)
		}
	}

	store := opts.Store
	if store == nil {
		store = NewStore()
	}

	s := &Server{
		router:    chi.NewRouter(),
		store:     store,
		secret:    secret,
		templates: templates,
		log:       opts.Logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// Store returns the backing store.
func (s *Server) Store() *Store {
	return s.store
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures HTTP middleware
func (s *Server) setupMiddleware() {
	if s.log != nil {
		s.router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: s.log, NoColor: true}))
	}
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.sessionMiddleware)
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleHome)
	s.router.Get("/login", s.handleLoginPage)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/auth/me", s.handleMe)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/csv", s.handleCSVData)
			r.Get("/csv/download", s.handleCSVDownload)
			r.Post("/csv/upload", s.handleCSVUpload)
		})
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("[demoapp] rendering %s: %v", name, err)
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, "home.html", map[string]interface{}{"User": currentUser(r)})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "login.html", nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

type authResponse struct {
	Success bool  `json:"success"`
	User    *User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := s.store.CreateUser(req.Username, req.Password, req.Name, req.Email)
	switch {
	case errors.Is(err, ErrUsernameTaken):
		writeError(w, http.StatusConflict, "このユーザー名は既に使用されています")
		return
	case errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.setSession(w, u); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Success: true, User: u})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := s.store.VerifyPassword(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "ユーザー名またはパスワードが正しくありません")
		return
	}

	if err := s.setSession(w, u); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Success: true, User: u})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearSession(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCSVData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Rows())
}

func (s *Server) handleCSVDownload(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"csv":      ExportCSV(s.store.Rows()),
		"filename": ExportFilename,
	})
}

func (s *Server) handleCSVUpload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CSVContent string `json:"csvContent"`
	}
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := ParseImport(req.CSVContent)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.store.Replace(rows)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"rowsImported": len(rows),
	})
}

func decodeJSON(body io.Reader, v interface{}) error {
	if err := json.NewDecoder(io.LimitReader(body, 10<<20)).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

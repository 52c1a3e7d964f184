package server

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

//go:embed static
var staticFiles embed.FS

// loggingMiddleware logs request details and latency.
func loggingMiddleware(log *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		})
	}
}

// NewRouter creates and configures the HTTP router.
func NewRouter(handler *Handler, log *slog.Logger) *mux.Router {
	if log == nil {
		log = slog.Default()
	}
	r := mux.NewRouter()
	r.Use(loggingMiddleware(log))

	r.HandleFunc("/api/sessions", handler.HandleCreateSession).Methods("POST")
	r.HandleFunc("/api/sessions/{id}", handler.HandleGetSession).Methods("GET")
	r.HandleFunc("/api/sessions/{id}", handler.HandleDeleteSession).Methods("DELETE")
	r.HandleFunc("/api/sessions/{id}/documents", handler.HandleUpload).Methods("POST")
	r.HandleFunc("/api/sessions/{id}/chat", handler.HandleChat).Methods("POST")
	r.HandleFunc("/api/sessions/{id}/reset", handler.HandleReset).Methods("POST")
	r.HandleFunc("/healthz", handler.HandleHealth).Methods("GET")

	static, _ := fs.Sub(staticFiles, "static")
	r.PathPrefix("/").Handler(http.FileServer(http.FS(static)))

	return r
}

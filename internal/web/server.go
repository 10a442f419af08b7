package web

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hyesung/opsbundle/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates and configures the HTTP server for the web UI. Every
// page lives under /d/{dataset}/ so the dataset is always explicit in the
// URL.
func NewServer(db *sql.DB, cfg *config.Config, datasets config.Datasets, baseDir, version, bind string, port int) *http.Server {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		log.Fatalf("failed to create template sub-FS: %v", err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Fatalf("failed to create static sub-FS: %v", err)
	}

	renderer := NewRenderer(templateSub, version)

	h := &Handlers{
		db:       db,
		cfg:      cfg,
		datasets: datasets,
		baseDir:  baseDir,
		renderer: renderer,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/d/"+datasets[0].ID+"/bundles", http.StatusFound)
	})
	mux.HandleFunc("GET /d/{dataset}/bundles", h.HandleList)
	mux.HandleFunc("GET /d/{dataset}/bundles/new", h.HandleNew)
	mux.HandleFunc("POST /d/{dataset}/bundles", h.HandleCreate)
	mux.HandleFunc("GET /d/{dataset}/bundles/{id}", h.HandleDetail)
	mux.HandleFunc("POST /d/{dataset}/bundles/{id}", h.HandleUpdate)
	mux.HandleFunc("POST /d/{dataset}/bundles/{id}/memos", h.HandleMemos)
	mux.HandleFunc("POST /d/{dataset}/bundles/{id}/delete", h.HandleDelete)
	mux.HandleFunc("GET /d/{dataset}/links", h.HandleLinks)
	mux.HandleFunc("POST /d/{dataset}/links", h.HandleLinkCreate)
	mux.HandleFunc("POST /d/{dataset}/links/{id}/delete", h.HandleLinkDelete)
	mux.HandleFunc("GET /d/{dataset}/export/{kind}", h.HandleExport)
	mux.HandleFunc("POST /d/{dataset}/import/{kind}", h.HandleImport)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	handler := securityHeaders(mux)

	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", bind, port),
		Handler: handler,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("opsbundle UI running at http://%s", srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Printf("WARNING: Server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

package server

import (
	"crypto/tls"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/negroni"
	"golang.org/x/crypto/acme/autocert"

	"github.com/hrdesk/docsum/archive"
	"github.com/hrdesk/docsum/handlers"
	"github.com/hrdesk/docsum/jobstore"
	"github.com/hrdesk/docsum/pipeline"
)

type Config struct {
	Domains      []string
	CertCacheDir string
	HTTPPort     string
	HTTPSPort    string
	IdleTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func SetupRoutes(orch *pipeline.Orchestrator, store *jobstore.Store, arc *archive.Store, logger *slog.Logger, maxDocumentBytes int64) *mux.Router {
	r := mux.NewRouter()

	documentHandler := handlers.NewDocumentHandler(orch, store, arc, logger, maxDocumentBytes)
	r.HandleFunc("/documents/summarize", documentHandler.Submit).Methods("POST")
	r.HandleFunc("/documents/summarize/sync", documentHandler.SummarizeSync).Methods("POST")
	r.HandleFunc("/documents/jobs/{id}/status", documentHandler.GetStatus).Methods("GET")
	r.HandleFunc("/documents/jobs/{id}/result", documentHandler.GetResult).Methods("GET")
	r.HandleFunc("/documents/jobs/{id}", documentHandler.Cleanup).Methods("DELETE")
	r.HandleFunc("/documents/archive", documentHandler.ListArchive).Methods("GET")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods("GET")

	return r
}

// ServeProduction build the server when we operate in a production environment.
func ServeProduction(n *negroni.Negroni, cfg Config) {
	// Configure autocert settings
	autocertManager := autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(cfg.Domains...),
		Cache:      autocert.DirCache(cfg.CertCacheDir),
	}

	// Listen for HTTP requests on port 80 in a new goroutine. Use
	// autocertManager.HTTPHandler(nil) as the handler. This will send ACME
	// "http-01" challenge responses as necessary, and 302 redirect all other
	// requests to HTTPS.
	go func() {
		srv := &http.Server{
			Addr:         ":" + cfg.HTTPPort,
			Handler:      autocertManager.HTTPHandler(nil),
			IdleTimeout:  time.Minute,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}

		err := srv.ListenAndServe()
		log.Fatal(err)
	}()

	// Configure the TLS config to use the autocertManager.GetCertificate function.
	tlsConfig := &tls.Config{
		GetCertificate:           autocertManager.GetCertificate,
		PreferServerCipherSuites: true,
		CurvePreferences:         []tls.CurveID{tls.X25519, tls.CurveP256},
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPSPort,
		Handler:      n,
		TLSConfig:    tlsConfig,
		IdleTimeout:  time.Minute,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	err := srv.ListenAndServeTLS("", "") // Key and cert provided automatically by autocert.
	log.Fatal(err)
}

// ServeDevelopment start the server when we operate in a dev environment.
func ServeDevelopment(s *http.Server) {
	log.Fatal(s.ListenAndServe())
}

// Package api exposes the crawler over HTTP. It serves single-page
// assembly, selector discovery, profile lookup, asynchronous crawl jobs
// with WebSocket progress streaming, and the operational endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/Burrhanburak/scrape-site/internal/crawler"
	"github.com/Burrhanburak/scrape-site/internal/monitoring"
	"github.com/Burrhanburak/scrape-site/internal/security"
	"github.com/Burrhanburak/scrape-site/internal/store"
	"github.com/Burrhanburak/scrape-site/internal/utils"
	"github.com/Burrhanburak/scrape-site/pkg/types"
)

// Processor runs the full fetch pipeline for one page.
type Processor interface {
	Process(ctx context.Context, pageURL string) *types.PageRecord
}

// Assembler builds a record from HTML the caller already has.
type Assembler interface {
	Assemble(html, pageURL string, profile *types.SiteSelectorProfile) *types.PageRecord
}

// Discoverer learns a selector profile for a site.
type Discoverer interface {
	Discover(ctx context.Context, siteURL string) (*types.SiteSelectorProfile, error)
}

// SiteCrawler runs a full-site crawl under a caller-chosen job id.
type SiteCrawler interface {
	CrawlSiteWithJob(ctx context.Context, jobID, siteURL string, onProgress func(crawler.Progress)) ([]*types.PageRecord, error)
}

// Config holds the server listener settings.
type Config struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// Deps are the components the server exposes. Metrics and Health may be
// nil, in which case their endpoints are not registered.
type Deps struct {
	Processor  Processor
	Assembler  Assembler
	Discoverer Discoverer
	Crawler    SiteCrawler
	Profiles   store.Store
	Validator  *security.Validator
	Metrics    *monitoring.Metrics
	Health     *monitoring.Health
	Logger     utils.Logger
}

// Server is the HTTP API. It satisfies http.Handler.
type Server struct {
	config   Config
	deps     Deps
	jobs     *jobRegistry
	router   *mux.Router
	upgrader websocket.Upgrader
	logger   utils.Logger
}

// NewServer wires the routes and middleware.
func NewServer(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = utils.NewNopLogger()
	}
	if deps.Validator == nil {
		deps.Validator = security.NewValidator(security.DefaultConfig())
	}

	s := &Server{
		config: cfg,
		deps:   deps,
		jobs:   newJobRegistry(),
		logger: deps.Logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.originAllowed,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware, s.corsMiddleware)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/assemble", s.handleAssemble).Methods(http.MethodPost, http.MethodOptions)
	v1.HandleFunc("/discover", s.handleDiscover).Methods(http.MethodPost, http.MethodOptions)
	v1.HandleFunc("/profiles/{hostname}", s.handleGetProfile).Methods(http.MethodGet)
	v1.HandleFunc("/crawl", s.handleCrawl).Methods(http.MethodPost, http.MethodOptions)
	v1.HandleFunc("/jobs/{id}", s.handleGetJob).Methods(http.MethodGet)
	v1.HandleFunc("/jobs/{id}/records", s.handleJobRecords).Methods(http.MethodGet)
	v1.HandleFunc("/jobs/{id}/ws", s.handleJobSocket).Methods(http.MethodGet)

	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler()).Methods(http.MethodGet)
	}
	if s.deps.Health != nil {
		r.Handle("/healthz", s.deps.Health.LivenessHandler()).Methods(http.MethodGet)
		r.Handle("/readyz", s.deps.Health.ReadinessHandler()).Methods(http.MethodGet)
	}
	return r
}

// ServeHTTP dispatches to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

type assembleRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html,omitempty"`
}

func (s *Server) handleAssemble(w http.ResponseWriter, r *http.Request) {
	var req assembleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := s.deps.Validator.ValidateTargetURL(req.URL); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var record *types.PageRecord
	if req.HTML != "" {
		record = s.deps.Assembler.Assemble(req.HTML, req.URL, s.lookupProfile(req.URL))
	} else {
		record = s.deps.Processor.Process(r.Context(), req.URL)
	}

	s.writeJSON(w, http.StatusOK, record)
}

type discoverRequest struct {
	SiteURL string `json:"site_url"`
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := s.deps.Validator.ValidateTargetURL(req.SiteURL); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	profile, err := s.deps.Discoverer.Discover(r.Context(), req.SiteURL)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	hostname := mux.Vars(r)["hostname"]

	profile, err := s.deps.Profiles.Get(r.Context(), hostname)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Errorf("no profile for %q", hostname))
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, profile)
}

type crawlRequest struct {
	SiteURL string `json:"site_url"`
}

type crawlResponse struct {
	JobID string `json:"jobId"`
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := s.deps.Validator.ValidateTargetURL(req.SiteURL); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	jobID := crawler.NewJobID()
	j := s.jobs.create(jobID, req.SiteURL)

	// The job outlives the request; it runs on the server's own context.
	go func() {
		records, err := s.deps.Crawler.CrawlSiteWithJob(context.Background(), jobID, req.SiteURL, j.publish)
		j.finish(records, err)
		if err != nil {
			s.logger.WithFields(map[string]interface{}{"jobId": jobID, "site": req.SiteURL}).Warnf("crawl failed: %v", err)
		}
	}()

	s.writeJSON(w, http.StatusAccepted, crawlResponse{JobID: jobID})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	j, ok := s.jobs.get(mux.Vars(r)["id"])
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("unknown job"))
		return
	}
	s.writeJSON(w, http.StatusOK, j.snapshot())
}

func (s *Server) handleJobRecords(w http.ResponseWriter, r *http.Request) {
	j, ok := s.jobs.get(mux.Vars(r)["id"])
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("unknown job"))
		return
	}

	records, status := j.results()
	if status == JobRunning {
		s.writeError(w, http.StatusConflict, fmt.Errorf("job is still running"))
		return
	}
	if records == nil {
		records = []*types.PageRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

// handleJobSocket streams progress events over a WebSocket. The current
// snapshot is sent first, then one message per finished page until the job
// completes, when the connection is closed.
func (s *Server) handleJobSocket(w http.ResponseWriter, r *http.Request) {
	j, ok := s.jobs.get(mux.Vars(r)["id"])
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("unknown job"))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(j.snapshot()); err != nil {
		return
	}

	events, cancel := j.subscribe()
	defer cancel()

	// Reads only detect disconnects; clients are not expected to send.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for event := range events {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}

	conn.WriteJSON(j.snapshot())
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"),
		time.Now().Add(time.Second))
}

// lookupProfile fetches a stored profile for the URL's hostname, tolerating
// absence and lookup failures.
func (s *Server) lookupProfile(pageURL string) *types.SiteSelectorProfile {
	hostname, err := utils.Hostname(pageURL)
	if err != nil {
		return nil
	}
	profile, err := s.deps.Profiles.Get(context.Background(), hostname)
	if err != nil {
		return nil
	}
	return profile
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warnf("failed to encode response: %v", err)
	}
}

func (s *Server) originAllowed(r *http.Request) bool {
	if len(s.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// WebSocket upgrades need the raw ResponseWriter for hijacking.
		if r.Header.Get("Upgrade") == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("request handled")
	})
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"projector/internal/priority"
	"projector/internal/reconciler"
	"projector/pkg/logging"
)

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Running    bool                    `json:"running"`
	Kinds      []reconciler.KindStatus `json:"kinds"`
	LastReport *reconciler.Report      `json:"lastReport,omitempty"`
}

// SyncResponse is the body of an accepted POST /sync.
type SyncResponse struct {
	Accepted bool              `json:"accepted"`
	Kinds    []reconciler.Kind `json:"kinds,omitempty"`
}

// PrioritiesResponse is the body of GET /priorities.
type PrioritiesResponse struct {
	Pattern string            `json:"pattern"`
	Records []priority.Record `json:"records"`
}

// ErrorResponse is returned with every non 2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Running: s.sweeper.IsRunning(),
		Kinds:   s.sweeper.Statuses(),
	}
	if report, ok := s.sweeper.LastReport(); ok {
		resp.LastReport = &report
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var kinds []reconciler.Kind
	for _, name := range r.URL.Query()["kind"] {
		kind, ok := reconciler.ParseKind(name)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown kind "+name)
			return
		}
		kinds = append(kinds, kind)
	}

	if s.sweeper.IsRunning() {
		writeError(w, http.StatusConflict, reconciler.ErrSweepInProgress.Error())
		return
	}

	s.sweeps.Add(1)
	go func() {
		defer s.sweeps.Done()
		_, err := s.sweeper.SyncAll(s.sweepCtx, kinds...)
		switch {
		case errors.Is(err, reconciler.ErrSweepInProgress):
			logging.Warn("Server", "Requested sweep skipped: %v", err)
		case err != nil:
			logging.Error("Server", err, "Requested sweep failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, SyncResponse{Accepted: true, Kinds: kinds})
}

func (s *Server) handlePriorities(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		writeError(w, http.StatusBadRequest, "pattern query parameter is required")
		return
	}

	repos, err := s.repositories.ListRepositories(r.Context())
	if err != nil {
		logging.Error("Server", err, "Failed to list repositories")
		writeError(w, http.StatusInternalServerError, "failed to list repositories")
		return
	}

	patterns := make([]string, 0, len(repos))
	for _, repo := range repos {
		patterns = append(patterns, repo.Pattern)
	}

	records := priority.Resolve(pattern, patterns)
	priority.SortByPriority(records)
	writeJSON(w, http.StatusOK, PrioritiesResponse{Pattern: pattern, Records: records})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error("Server", err, "Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/tripcrew/chatmodel"
	"github.com/effective-security/tripcrew/orchestrator"
	"github.com/effective-security/tripcrew/store"
	"github.com/effective-security/tripcrew/travel"
	"github.com/effective-security/xlog"
	"github.com/go-chi/chi/v5"
)

// ErrorResponse is the body of failed requests
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	req := new(travel.ItineraryRequest)
	if err := decodeJSON(w, r, req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := withRun(w, r)
	res, err := s.svc.GenerateItinerary(ctx, req)
	if err != nil {
		writeServiceError(w, r, "failed to generate itinerary", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) research(w http.ResponseWriter, r *http.Request) {
	req := new(travel.ResearchRequest)
	if err := decodeJSON(w, r, req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := withRun(w, r)
	res, err := s.svc.ResearchMarket(ctx, req)
	if err != nil {
		writeServiceError(w, r, "failed to research market", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.svc.Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "failed to get run", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit: "+v)
			return
		}
		limit = n
	}

	runs, err := s.svc.Runs(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, "failed to list runs", err)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// withRun returns the request context with a new RunContext,
// the run ID is returned in the X-Run-ID header.
func withRun(w http.ResponseWriter, r *http.Request) context.Context {
	runCtx := chatmodel.NewRunContext("", r.Header.Get(HeaderRequestID))
	w.Header().Set(HeaderRunID, runCtx.GetRunID())
	return chatmodel.WithRunContext(r.Context(), runCtx)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, "invalid request")
	}
	return nil
}

// writeServiceError logs the full error chain,
// the detail has the operation and the root cause only.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := http.StatusInternalServerError
	var detail string
	switch {
	case errors.Is(err, travel.ErrInvalidRequest):
		status = http.StatusBadRequest
		detail = err.Error()
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
		detail = store.ErrNotFound.Error()
	default:
		detail = orchestrator.Describe(op, err)
	}

	logger.ContextKV(r.Context(), xlog.DEBUG,
		"path", r.URL.Path,
		"status", status,
		"kind", chatmodel.KindOf(err),
		"err", err.Error(),
	)
	writeError(w, status, detail)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.KV(xlog.ERROR, "reason", "write_response", "err", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

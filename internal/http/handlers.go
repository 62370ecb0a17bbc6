package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"extrato/internal/core"
	"extrato/internal/log"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	owner := firstNonEmpty(r.Header.Get(ownerHeader), r.URL.Query().Get("owner"), s.deps.DefaultOwner)
	writeJSON(w, http.StatusOK, s.deps.Status.Status(r.Context(), owner))
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	req, err := s.parseSyncRequest(r)
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, errMissingToken) {
			code = http.StatusUnauthorized
			w.Header().Set("WWW-Authenticate", `Bearer realm="extrato"`)
		}
		writeJSON(w, code, failedResult(err))
		return
	}

	if req.Async {
		s.enqueueSync(w, r, req)
		return
	}

	if s.deps.SyncTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.SyncTimeout)
		defer cancel()
	}
	res, err := s.deps.Syncer.Run(ctx, req.OwnerID, req.Token, req.SpreadsheetID)
	if err != nil {
		logger.WarnContext(ctx, "Sync request failed",
			log.FieldOwner, req.OwnerID,
			log.FieldSpreadsheetID, req.SpreadsheetID,
			log.FieldError, err)
		// The cause stays in the log; callers only see the fetch category.
		res.Errors = []string{core.FetchErrorMessage(err)}
	}
	writeJSON(w, statusForSyncError(err), res)
}

func (s *Server) enqueueSync(w http.ResponseWriter, r *http.Request, req syncRequest) {
	ctx := r.Context()
	if s.deps.Publisher == nil {
		writeJSON(w, http.StatusServiceUnavailable, failedResult(errors.New("asynchronous sync is not configured")))
		return
	}
	if err := s.deps.Publisher.PublishSyncRequest(ctx, req.OwnerID, req.SpreadsheetID); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to queue sync request",
			log.FieldOwner, req.OwnerID,
			log.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, failedResult(errors.New("could not queue sync request")))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"queued":        true,
		"owner":         req.OwnerID,
		"spreadsheetId": req.SpreadsheetID,
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Sync rate limit exceeded",
		log.FieldClientIP, s.clientIP.Extract(r))
	writeJSON(w, http.StatusTooManyRequests, failedResult(errors.New("too many sync requests, try again later")))
}

// statusForSyncError maps a fetch-phase failure to an HTTP status. Completed
// runs are 200 even when some rows failed.
func statusForSyncError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, core.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrEmptySheet), errors.Is(err, core.ErrInsufficientData), errors.Is(err, core.ErrRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func failedResult(err error) core.SyncResult {
	return core.SyncResult{
		Success:      false,
		Errors:       []string{err.Error()},
		LastSyncDate: time.Now(),
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extrato/internal/core"
	"extrato/internal/log"
	"extrato/internal/middleware/ratelimit"
)

type fakeSyncer struct {
	res   core.SyncResult
	err   error
	calls []string
}

func (f *fakeSyncer) Run(_ context.Context, owner, token, id string) (core.SyncResult, error) {
	f.calls = append(f.calls, owner+"|"+token+"|"+id)
	return f.res, f.err
}

type fakeStatus struct{ owners []string }

func (f *fakeStatus) Status(_ context.Context, owner string) core.IntegrationStatus {
	f.owners = append(f.owners, owner)
	return core.IntegrationStatus{Connected: true, TotalTransactions: 3}
}

type fakePublisher struct {
	err       error
	published []string
}

func (f *fakePublisher) PublishSyncRequest(_ context.Context, owner, id string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, owner+"|"+id)
	return nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func newTestServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	if deps.Syncer == nil {
		deps.Syncer = &fakeSyncer{res: core.SyncResult{Success: true}}
	}
	if deps.Status == nil {
		deps.Status = &fakeStatus{}
	}
	if deps.DefaultOwner == "" {
		deps.DefaultOwner = "default"
	}
	deps.Logger = log.New(log.Config{Output: &bytes.Buffer{}})
	srv, err := NewServer(":0", deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func do(srv *Server, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeResult(t *testing.T, rr *httptest.ResponseRecorder) core.SyncResult {
	t.Helper()
	var res core.SyncResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	return res
}

var bearer = map[string]string{"Authorization": "Bearer tok-1"}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, Deps{Store: fakePinger{}})
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/readyz", nil).Code)

	down := newTestServer(t, Deps{Store: fakePinger{err: errors.New("db gone")}})
	assert.Equal(t, http.StatusServiceUnavailable, do(down, http.MethodGet, "/readyz", nil).Code)
}

func TestStatus(t *testing.T) {
	st := &fakeStatus{}
	srv := newTestServer(t, Deps{Status: st})

	rr := do(srv, http.MethodGet, "/api/status", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"connected":true,"lastSync":null,"totalTransactions":3,"lastTransaction":null}`, rr.Body.String())
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rr.Header().Get(log.RequestIDHeader))

	do(srv, http.MethodGet, "/api/status?owner=acme", nil)
	do(srv, http.MethodGet, "/api/status", map[string]string{ownerHeader: "globex"})
	assert.Equal(t, []string{"default", "acme", "globex"}, st.owners)
}

func TestSync_Success(t *testing.T) {
	syncer := &fakeSyncer{res: core.SyncResult{Success: true, NewTransactions: 2, TotalProcessed: 2, Errors: []string{}}}
	srv := newTestServer(t, Deps{Syncer: syncer, DefaultSpreadsheetID: "configured"})

	rr := do(srv, http.MethodPost, "/api/sync", bearer)
	require.Equal(t, http.StatusOK, rr.Code)
	res := decodeResult(t, rr)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.NewTransactions)

	do(srv, http.MethodPost, "/api/sync?spreadsheetId=abc&owner=acme", bearer)
	assert.Equal(t, []string{"default|tok-1|configured", "acme|tok-1|abc"}, syncer.calls)
}

func TestSync_FormSpreadsheetID(t *testing.T) {
	syncer := &fakeSyncer{res: core.SyncResult{Success: true}}
	srv := newTestServer(t, Deps{Syncer: syncer})

	req := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader("spreadsheetId=from-form"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "bearer tok-2")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"default|tok-2|from-form"}, syncer.calls)
}

func TestSync_PartialFailureIsOK(t *testing.T) {
	syncer := &fakeSyncer{res: core.SyncResult{Success: false, NewTransactions: 1, TotalProcessed: 1, Errors: []string{"Row 3: invalid amount"}}}
	srv := newTestServer(t, Deps{Syncer: syncer})

	rr := do(srv, http.MethodPost, "/api/sync", bearer)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"Row 3: invalid amount"}, decodeResult(t, rr).Errors)
}

func TestSync_MissingToken(t *testing.T) {
	syncer := &fakeSyncer{}
	srv := newTestServer(t, Deps{Syncer: syncer})

	for _, h := range []map[string]string{nil, {"Authorization": "Basic abc"}, {"Authorization": "Bearer  "}} {
		rr := do(srv, http.MethodPost, "/api/sync", h)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Bearer")
		res := decodeResult(t, rr)
		assert.False(t, res.Success)
		assert.Equal(t, []string{"missing bearer token"}, res.Errors)
	}
	assert.Empty(t, syncer.calls)
}

func TestSync_FetchErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrAuth, http.StatusUnauthorized},
		{core.ErrNotFound, http.StatusNotFound},
		{core.ErrEmptySheet, http.StatusUnprocessableEntity},
		{core.ErrInsufficientData, http.StatusUnprocessableEntity},
		{core.ErrRejected, http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("sheets: 500 backend error"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("fetch statement: %w", tt.err)
			res := core.SyncResult{Success: false, Errors: []string{wrapped.Error()}}
			srv := newTestServer(t, Deps{Syncer: &fakeSyncer{res: res, err: wrapped}})

			rr := do(srv, http.MethodPost, "/api/sync", bearer)
			assert.Equal(t, tt.want, rr.Code)
			assert.Equal(t, []string{core.FetchErrorMessage(wrapped)}, decodeResult(t, rr).Errors)
		})
	}
}

func TestSync_FetchErrorHidesBackendText(t *testing.T) {
	raw := fmt.Errorf("%w: read Extrato: googleapi: Error 400: Unable to parse range, details: project acme-prod-1234", core.ErrRejected)
	res := core.SyncResult{Errors: []string{raw.Error()}}
	srv := newTestServer(t, Deps{Syncer: &fakeSyncer{res: res, err: raw}})

	rr := do(srv, http.MethodPost, "/api/sync", bearer)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.NotContains(t, rr.Body.String(), "googleapi")
	assert.NotContains(t, rr.Body.String(), "acme-prod")
	assert.Equal(t, []string{core.ErrRejected.Error()}, decodeResult(t, rr).Errors)
}

func TestSync_Async(t *testing.T) {
	pub := &fakePublisher{}
	syncer := &fakeSyncer{}
	srv := newTestServer(t, Deps{Syncer: syncer, Publisher: pub})

	rr := do(srv, http.MethodPost, "/api/sync?async=true&spreadsheetId=abc", nil)
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.JSONEq(t, `{"queued":true,"owner":"default","spreadsheetId":"abc"}`, rr.Body.String())
	assert.Equal(t, []string{"default|abc"}, pub.published)
	assert.Empty(t, syncer.calls)
}

func TestSync_AsyncUnavailable(t *testing.T) {
	srv := newTestServer(t, Deps{})
	assert.Equal(t, http.StatusServiceUnavailable, do(srv, http.MethodPost, "/api/sync?async=1", nil).Code)

	failing := newTestServer(t, Deps{Publisher: &fakePublisher{err: errors.New("circuit breaker open")}})
	rr := do(failing, http.MethodPost, "/api/sync?async=true", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.NotContains(t, rr.Body.String(), "circuit")
}

func TestSync_BadAsyncFlag(t *testing.T) {
	srv := newTestServer(t, Deps{})
	assert.Equal(t, http.StatusBadRequest, do(srv, http.MethodPost, "/api/sync?async=maybe", bearer).Code)
}

func TestSync_RateLimited(t *testing.T) {
	srv := newTestServer(t, Deps{SyncLimit: ratelimit.Config{Requests: 2, Window: time.Hour}})

	assert.Equal(t, http.StatusOK, do(srv, http.MethodPost, "/api/sync", bearer).Code)
	assert.Equal(t, http.StatusOK, do(srv, http.MethodPost, "/api/sync", bearer).Code)
	rr := do(srv, http.MethodPost, "/api/sync", bearer)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.False(t, decodeResult(t, rr).Success)

	// status is never limited
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/api/status", nil).Code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, Deps{})
	assert.Equal(t, http.StatusMethodNotAllowed, do(srv, http.MethodGet, "/api/sync", nil).Code)
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":    "abc",
		"bearer  abc ":  "abc",
		"Token abc":     "",
		"Bearer":        "",
		"":              "",
	}
	for header, want := range tests {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", header)
		assert.Equal(t, want, bearerToken(req), header)
	}
}

package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

var errMissingToken = errors.New("missing bearer token")

// syncRequest is what POST /api/sync carries.
type syncRequest struct {
	OwnerID       string
	SpreadsheetID string
	Token         string
	Async         bool
}

const ownerHeader = "X-Owner-ID"

// parseSyncRequest reads the bearer token, the owner (header, then query,
// then the configured default) and the spreadsheet id (query or form, then
// the configured default). A token is only required for synchronous runs.
func (s *Server) parseSyncRequest(r *http.Request) (syncRequest, error) {
	req := syncRequest{
		OwnerID:       firstNonEmpty(r.Header.Get(ownerHeader), r.URL.Query().Get("owner"), s.deps.DefaultOwner),
		SpreadsheetID: firstNonEmpty(r.FormValue("spreadsheetId"), s.deps.DefaultSpreadsheetID),
		Token:         bearerToken(r),
	}
	if v := r.URL.Query().Get("async"); v != "" {
		async, err := strconv.ParseBool(v)
		if err != nil {
			return req, errors.New("async must be a boolean")
		}
		req.Async = async
	}
	if !req.Async && req.Token == "" {
		return req, errMissingToken
	}
	return req, nil
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

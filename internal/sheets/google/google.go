package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"extrato/internal/core"
	ports "extrato/internal/sheets"
)

const (
	// DefaultTitle is the well-known name of the statement spreadsheet.
	DefaultTitle = "Extrato Bancário"

	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

	// Bounds of the quoted fallback range: 1000 rows by 26 columns.
	fallbackRangeCells = "A1:Z1000"
)

type Client struct {
	title          string
	httpClient     *http.Client
	sheetsEndpoint string
	driveEndpoint  string
}

// Ensure interface conformance
var _ ports.MatrixFetcher = (*Client)(nil)

// Config configures the Google fetcher. Endpoints are only overridden in tests.
type Config struct {
	Title          string
	HTTPClient     *http.Client
	SheetsEndpoint string
	DriveEndpoint  string
}

func New(cfg Config) *Client {
	title := strings.TrimSpace(cfg.Title)
	if title == "" {
		title = DefaultTitle
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = newHTTPClientWithPooling()
	}
	return &Client{
		title:          title,
		httpClient:     hc,
		sheetsEndpoint: cfg.SheetsEndpoint,
		driveEndpoint:  cfg.DriveEndpoint,
	}
}

// newHTTPClientWithPooling creates an HTTP client for the Google APIs
// with connection pooling, proper timeouts, and keep-alive settings
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// Fetch implements ports.MatrixFetcher. It never caches: every call reads the
// spreadsheet again.
func (c *Client) Fetch(ctx context.Context, token, spreadsheetID string) (core.RawMatrix, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: missing bearer token", core.ErrAuth)
	}
	opts := c.clientOptions(ctx, token)

	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		id, err := c.resolveByTitle(ctx, opts)
		if err != nil {
			return nil, err
		}
		spreadsheetID = id
	}

	svc, err := gsheet.NewService(ctx, append(opts, c.endpoint(c.sheetsEndpoint)...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	tab, err := firstTab(ctx, svc, spreadsheetID)
	if err != nil {
		return nil, err
	}

	values, err := readValues(ctx, svc, spreadsheetID, tab)
	if err != nil {
		return nil, err
	}
	matrix := toMatrix(values)

	slog.InfoContext(ctx, "Fetched statement spreadsheet",
		"spreadsheet_id", spreadsheetID,
		"tab", tab,
		"rows", len(matrix))

	if err := ports.CheckShape(matrix); err != nil {
		return nil, err
	}
	return matrix, nil
}

func (c *Client) clientOptions(ctx context.Context, token string) []goption.ClientOption {
	base := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	hc := oauth2.NewClient(base, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	return []goption.ClientOption{goption.WithHTTPClient(hc)}
}

func (c *Client) endpoint(url string) []goption.ClientOption {
	if url == "" {
		return nil
	}
	return []goption.ClientOption{goption.WithEndpoint(url)}
}

// resolveByTitle looks the spreadsheet up by exact title. With several matches
// the oldest one wins so repeated runs keep picking the same file.
func (c *Client) resolveByTitle(ctx context.Context, opts []goption.ClientOption) (string, error) {
	svc, err := gdrive.NewService(ctx, append(opts, c.endpoint(c.driveEndpoint)...)...)
	if err != nil {
		return "", fmt.Errorf("create drive service: %w", err)
	}

	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(c.title), spreadsheetMimeType)
	resp, err := svc.Files.List().
		Q(q).
		Fields("files(id, name)").
		OrderBy("createdTime").
		PageSize(10).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", classify(err, "list spreadsheets")
	}
	if len(resp.Files) == 0 {
		return "", fmt.Errorf("%w: no spreadsheet titled %q", core.ErrNotFound, c.title)
	}
	if len(resp.Files) > 1 {
		slog.WarnContext(ctx, "Several spreadsheets share the statement title, using the first",
			"title", c.title,
			"matches", len(resp.Files),
			"spreadsheet_id", resp.Files[0].Id)
	}
	return resp.Files[0].Id, nil
}

func firstTab(ctx context.Context, svc *gsheet.Service, spreadsheetID string) (string, error) {
	ss, err := svc.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties(title,index)").
		Context(ctx).
		Do()
	if err != nil {
		return "", classify(err, "read spreadsheet metadata")
	}
	if len(ss.Sheets) == 0 {
		return "", core.ErrEmptySheet
	}
	first := ss.Sheets[0]
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Index == 0 {
			first = s
			break
		}
	}
	if first.Properties == nil || first.Properties.Title == "" {
		return "", fmt.Errorf("spreadsheet %s: first tab has no title", spreadsheetID)
	}
	return first.Properties.Title, nil
}

// readValues requests the tab by its bare name and retries once with a quoted,
// bounded range, since some titles only resolve when escaped.
func readValues(ctx context.Context, svc *gsheet.Service, spreadsheetID, tab string) ([][]interface{}, error) {
	resp, err := svc.Spreadsheets.Values.Get(spreadsheetID, tab).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err == nil {
		return resp.Values, nil
	}
	if isAuthFailure(err) {
		return nil, classify(err, "read "+tab)
	}

	quoted := quoteRange(tab)
	slog.WarnContext(ctx, "Unquoted range failed, retrying quoted",
		"tab", tab,
		"range", quoted,
		"error", err)

	resp, err = svc.Spreadsheets.Values.Get(spreadsheetID, quoted).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err, "read "+quoted)
	}
	return resp.Values, nil
}

func isAuthFailure(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden
	}
	return false
}

// classify maps Google API status codes onto the fetch error taxonomy.
func classify(err error, what string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s: %w", core.ErrAuth, what, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s: %w", core.ErrNotFound, what, err)
		case http.StatusRequestTimeout, http.StatusTooManyRequests:
		default:
			// Other client errors fail the same way on every retry.
			if gerr.Code >= 400 && gerr.Code < 500 {
				return fmt.Errorf("%w: %s: %w", core.ErrRejected, what, err)
			}
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

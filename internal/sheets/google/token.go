package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gdrive "google.golang.org/api/drive/v3"
	gsheet "google.golang.org/api/sheets/v4"
)

// Scopes needed to find and read the statement spreadsheet.
var Scopes = []string{gdrive.DriveMetadataReadonlyScope, gsheet.SpreadsheetsReadonlyScope}

// Credentials holds OAuth client and token material, inline or by file path.
type Credentials struct {
	ClientJSON string
	ClientFile string
	TokenJSON  string
	TokenFile  string
}

// TokenSource builds a refreshing token source from stored OAuth credentials.
// Acquiring the initial token is cmd/oauth-init's job.
func TokenSource(ctx context.Context, creds Credentials) (oauth2.TokenSource, error) {
	clientJSON, err := readInlineOrFile(creds.ClientJSON, creds.ClientFile)
	if err != nil {
		return nil, fmt.Errorf("oauth client: %w", err)
	}
	tokenJSON, err := readInlineOrFile(creds.TokenJSON, creds.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}

	cfg, err := googleoauth.ConfigFromJSON(clientJSON, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}
	return cfg.TokenSource(ctx, &tok), nil
}

func readInlineOrFile(inline, path string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return []byte(inline), nil
	case strings.TrimSpace(path) != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return b, nil
	default:
		return nil, errors.New("neither inline JSON nor file provided")
	}
}

// Package sheets is a kv.Store on a Google Sheets tab.
//
// Each key occupies one row: column A holds the key and columns B onwards
// hold the value split into chunks, since a single cell is capped at
// 50,000 characters.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cashbook/internal/kv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

var _ kv.Store = (*Client)(nil)

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID string
	SheetName     string
	// Service account credentials: inline JSON wins over a file path.
	CredentialsJSON string
	CredentialsFile string
	// Installed-app OAuth client and the token saved by cmd/oauth-init.
	// Used only when no service account is set.
	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string
}

func (c Config) hasServiceAccount() bool {
	return strings.TrimSpace(c.CredentialsJSON) != "" || strings.TrimSpace(c.CredentialsFile) != ""
}

func (c Config) hasOAuth() bool {
	hasClient := strings.TrimSpace(c.OAuthClientJSON) != "" || strings.TrimSpace(c.OAuthClientFile) != ""
	hasToken := strings.TrimSpace(c.OAuthTokenJSON) != "" || strings.TrimSpace(c.OAuthTokenFile) != ""
	return hasClient && hasToken
}

// HasCredentials reports whether cfg names a service account or a
// complete OAuth client/token pair.
func (c Config) HasCredentials() bool {
	return c.hasServiceAccount() || c.hasOAuth()
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Cashbook"
	}

	var (
		svc *gsheet.Service
		err error
	)
	if !cfg.hasServiceAccount() && cfg.hasOAuth() {
		svc, err = newOAuthSheetsService(ctx, cfg)
	} else {
		svc, err = newSheetsService(ctx, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}, nil
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	path := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	credentialsJSON, err := readInlineOrFile(inline, path, "service account")
	if err != nil {
		return nil, err
	}
	if credentialsJSON == nil {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// newOAuthSheetsService builds a service from an installed-app client and
// a saved token. The token source refreshes the access token on expiry.
func newOAuthSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	oauthCfg, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}

	tokenJSON, err := readInlineOrFile(cfg.OAuthTokenJSON, cfg.OAuthTokenFile, "oauth token")
	if err != nil {
		return nil, err
	}
	if tokenJSON == nil {
		return nil, errors.New("missing oauth token (run oauth-init, then set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
	}
	tok, err := ParseToken(tokenJSON)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Using OAuth user credentials", "token_expiry", tok.Expiry)
	service, err := gsheet.NewService(ctx, goption.WithTokenSource(oauthCfg.TokenSource(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// OAuthConfig loads the installed-app client named by cfg, scoped to
// read and write spreadsheets.
func OAuthConfig(cfg Config) (*oauth2.Config, error) {
	clientJSON, err := readInlineOrFile(cfg.OAuthClientJSON, cfg.OAuthClientFile, "oauth client")
	if err != nil {
		return nil, err
	}
	if clientJSON == nil {
		return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}
	oauthCfg, err := google.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client: %w", err)
	}
	return oauthCfg, nil
}

// ParseToken decodes a token saved by oauth-init. A token with neither an
// access nor a refresh token cannot authorize anything and is rejected.
func ParseToken(b []byte) (*oauth2.Token, error) {
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("oauth token has neither access nor refresh token")
	}
	return &tok, nil
}

// readInlineOrFile returns inline when set, else the contents of path.
// Both empty yields nil without error.
func readInlineOrFile(inline, path, what string) ([]byte, error) {
	inline = strings.TrimSpace(inline)
	path = strings.TrimSpace(path)
	switch {
	case inline != "":
		return []byte(inline), nil
	case path != "":
		slog.Info("Reading credentials from file", "kind", what, "path", path)
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s file: %w", what, err)
		}
		return b, nil
	default:
		return nil, nil
	}
}

func (c *Client) Get(ctx context.Context, key string) (*kv.Record, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rows, err := c.readRows(ctx)
	if err != nil {
		return nil, err
	}
	idx := findRow(rows, key)
	if idx < 0 {
		return nil, nil
	}
	return &kv.Record{Value: joinChunks(rows[idx])}, nil
}

func (c *Client) Set(ctx context.Context, key, value string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	chunks := splitChunks(value, chunkSize)
	if len(chunks) > maxChunks {
		return fmt.Errorf("value for %s too large: %d bytes exceeds %d", key, len(value), chunkSize*maxChunks)
	}

	rows, err := c.readRows(ctx)
	if err != nil {
		return err
	}

	row := make([]any, 0, len(chunks)+1)
	row = append(row, key)
	for _, ch := range chunks {
		row = append(row, ch)
	}
	vr := &gsheet.ValueRange{Values: [][]any{row}}

	idx := findRow(rows, key)
	if idx < 0 {
		rng := fmt.Sprintf("%s!A:A", c.sheet)
		_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("append %s to sheet %s: %w", key, c.sheet, err)
		}
		return nil
	}

	// Sheet rows are 1-based; clear stale chunks before rewriting the row.
	n := idx + 1
	clearRng := fmt.Sprintf("%s!B%d:%s%d", c.sheet, n, lastColumn, n)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", clearRng, err)
	}
	rng := fmt.Sprintf("%s!A%d", c.sheet, n)
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s in sheet %s: %w", key, c.sheet, err)
	}
	return nil
}

func (c *Client) readRows(ctx context.Context) ([][]string, error) {
	rng := fmt.Sprintf("%s!A:%s", c.sheet, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	rows := make([][]string, len(resp.Values))
	for i, r := range resp.Values {
		rows[i] = toStrings(r)
	}
	return rows, nil
}

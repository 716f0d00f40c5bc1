package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	ports "flujo/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Ensure interface conformance
var (
	_ ports.RowReader    = (*Client)(nil)
	_ ports.MirrorWriter = (*Client)(nil)
)

// New creates a Sheets client for one spreadsheet. Without options the
// credentials are read from the environment: an OAuth user token when an
// OAuth client is configured, a service account otherwise.
func New(ctx context.Context, spreadsheetID string, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if len(opts) == 0 && OAuthConfigured() {
		var err error
		if opts, err = oauthOptions(ctx); err != nil {
			return nil, err
		}
	}
	if len(opts) == 0 {
		creds, err := credentialsFromEnv(ctx)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// credentialsFromEnv loads service account credentials from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func credentialsFromEnv(ctx context.Context) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline JSON credentials")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// ReadRange returns the cells of rng as text, e.g. "Movimientos!A:I".
func (c *Client) ReadRange(ctx context.Context, rng string) ([][]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = toStrings(row)
	}
	return out, nil
}

// ReplaceSheet clears sheet, creating it when missing, and writes values
// from A1.
func (c *Client) ReplaceSheet(ctx context.Context, sheet string, values [][]string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := c.ensureSheet(ctx, sheet); err != nil {
		return err
	}
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, sheet, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %s: %w", sheet, err)
	}
	if len(values) == 0 {
		return nil
	}
	rows := make([][]any, len(values))
	for i, row := range values {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		rows[i] = cells
	}
	rng := fmt.Sprintf("%s!A1", sheet)
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write sheet %s: %w", sheet, err)
	}
	return nil
}

func (c *Client) ensureSheet(ctx context.Context, sheet string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == sheet {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: sheet}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", sheet, err)
	}
	slog.InfoContext(ctx, "Created mirror sheet", "sheet", sheet)
	return nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case nil:
			out[i] = ""
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(x))
		}
	}
	return out
}

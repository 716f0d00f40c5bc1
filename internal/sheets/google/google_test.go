package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"golang.org/x/oauth2"
	goption "google.golang.org/api/option"
)

// fakeSheets is a minimal Sheets v4 REST endpoint.
type fakeSheets struct {
	mu       sync.Mutex
	titles   []string
	values   [][]any
	requests []string
	written  string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path
	f.requests = append(f.requests, r.Method+" "+path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		json.NewEncoder(w).Encode(map[string]any{"range": "Movimientos!A1:C3", "values": f.values})
	case r.Method == http.MethodGet:
		var sheets []map[string]any
		for _, t := range f.titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case strings.HasSuffix(path, ":batchUpdate"):
		f.titles = append(f.titles, "added")
		io.WriteString(w, `{}`)
	case strings.HasSuffix(path, ":clear"):
		io.WriteString(w, `{}`)
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.written = string(body)
		io.WriteString(w, `{"updatedRows": 2}`)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSheets) seen(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if strings.HasPrefix(r, prefix) {
			return true
		}
	}
	return false
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), "sheet-id",
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ")
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func clearOAuthEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{envOAuthClientJSON, envOAuthClientFile, envOAuthTokenJSON, envOAuthTokenFile} {
		t.Setenv(k, "")
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	clearOAuthEnv(t)
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), "sheet-id")
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReadRange(t *testing.T) {
	fake := &fakeSheets{values: [][]any{
		{"Tipo de movimiento", "Mes", "Valor"},
		{"01_Ingreso", "03-25", 1500000.0},
		{"02_Egreso", nil},
	}}
	c := newTestClient(t, fake)

	rows, err := c.ReadRange(context.Background(), "Movimientos!A:C")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 3 || rows[1][2] != "1500000" || rows[2][1] != "" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if !fake.seen("GET /v4/spreadsheets/sheet-id/values/") {
		t.Fatalf("unexpected requests %v", fake.requests)
	}
}

func TestReplaceSheet(t *testing.T) {
	fake := &fakeSheets{titles: []string{"Mirror"}}
	c := newTestClient(t, fake)

	err := c.ReplaceSheet(context.Background(), "Mirror", [][]string{{"Mes", "Valor"}, {"03-25", "10"}})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if fake.seen("POST /v4/spreadsheets/sheet-id:batchUpdate") {
		t.Fatal("existing sheet must not be added again")
	}
	if !fake.seen("POST /v4/spreadsheets/sheet-id/values/Mirror:clear") {
		t.Fatalf("expected a clear, got %v", fake.requests)
	}
	if !strings.Contains(fake.written, `"03-25"`) {
		t.Fatalf("unexpected body %s", fake.written)
	}
}

func TestReplaceSheetCreatesMissingSheet(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)
	if err := c.ReplaceSheet(context.Background(), "Mirror", nil); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if !fake.seen("POST /v4/spreadsheets/sheet-id:batchUpdate") {
		t.Fatalf("expected the sheet to be added, got %v", fake.requests)
	}
	if fake.seen("PUT ") {
		t.Fatal("empty values write nothing")
	}
}

func TestNilService(t *testing.T) {
	c := &Client{spreadsheetID: "x"}
	if _, err := c.ReadRange(context.Background(), "A:A"); err == nil {
		t.Fatal("expected an error without a service")
	}
	if err := c.ReplaceSheet(context.Background(), "A", nil); err == nil {
		t.Fatal("expected an error without a service")
	}
}

const testOAuthClient = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

func TestNew_OAuthErrors(t *testing.T) {
	tests := []struct {
		name   string
		client string
		token  string
		want   string
	}{
		{"invalid client", "invalid-json", `{"access_token":"test"}`, "oauth config"},
		{"missing token", testOAuthClient, "", "missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)"},
		{"invalid token", testOAuthClient, "invalid-json", "oauth token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearOAuthEnv(t)
			t.Setenv(envOAuthClientJSON, tt.client)
			t.Setenv(envOAuthTokenJSON, tt.token)
			_, err := New(context.Background(), "sheet-id")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q, got %v", tt.want, err)
			}
		})
	}
}

func TestNew_OAuthToken(t *testing.T) {
	clearOAuthEnv(t)
	t.Setenv(envOAuthClientJSON, testOAuthClient)
	t.Setenv(envOAuthTokenJSON, `{"access_token":"test","token_type":"Bearer"}`)
	c, err := New(context.Background(), "sheet-id")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if c.svc == nil {
		t.Fatal("expected a sheets service")
	}
}

func TestSaveTokenRoundTrip(t *testing.T) {
	clearOAuthEnv(t)
	path := filepath.Join(t.TempDir(), "token.json")
	if err := SaveToken(path, &oauth2.Token{AccessToken: "test", TokenType: "Bearer"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}
	if TokenFile() != DefaultTokenFile {
		t.Fatalf("expected default token file, got %s", TokenFile())
	}

	t.Setenv(envOAuthTokenFile, path)
	tok, err := TokenFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tok.AccessToken != "test" || TokenFile() != path {
		t.Fatalf("unexpected token %+v from %s", tok, TokenFile())
	}
}

package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// OAuth user credentials are used instead of a service account when an
// OAuth client is configured.
const (
	envOAuthClientJSON = "GOOGLE_OAUTH_CLIENT_JSON"
	envOAuthClientFile = "GOOGLE_OAUTH_CLIENT_FILE"
	envOAuthTokenJSON  = "GOOGLE_OAUTH_TOKEN_JSON"
	envOAuthTokenFile  = "GOOGLE_OAUTH_TOKEN_FILE"

	// DefaultTokenFile is where SaveToken writes when no file is configured.
	DefaultTokenFile = "token.json"
)

// OAuthConfigured reports whether an OAuth client is set in the environment.
func OAuthConfigured() bool {
	return strings.TrimSpace(os.Getenv(envOAuthClientJSON)) != "" ||
		strings.TrimSpace(os.Getenv(envOAuthClientFile)) != ""
}

// OAuthConfigFromEnv builds the OAuth client config for the Sheets scope.
func OAuthConfigFromEnv() (*oauth2.Config, error) {
	data, err := fromEnv(envOAuthClientJSON, envOAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	if data == nil {
		return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}
	cfg, err := goauth.ConfigFromJSON(data, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// TokenFromEnv loads the stored user token.
func TokenFromEnv() (*oauth2.Token, error) {
	data, err := fromEnv(envOAuthTokenJSON, envOAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	if data == nil {
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}
	return &tok, nil
}

// TokenFile is the configured token path or DefaultTokenFile.
func TokenFile() string {
	if p := strings.TrimSpace(os.Getenv(envOAuthTokenFile)); p != "" {
		return p
	}
	return DefaultTokenFile
}

// SaveToken writes tok as JSON readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// oauthOptions returns client options authenticating as the stored user.
// The token source refreshes expired access tokens.
func oauthOptions(ctx context.Context) ([]goption.ClientOption, error) {
	cfg, err := OAuthConfigFromEnv()
	if err != nil {
		return nil, err
	}
	tok, err := TokenFromEnv()
	if err != nil {
		return nil, err
	}
	return []goption.ClientOption{goption.WithTokenSource(cfg.TokenSource(ctx, tok))}, nil
}

// fromEnv returns inline JSON, else the contents of the named file, else nil.
func fromEnv(inlineKey, fileKey string) ([]byte, error) {
	if v := strings.TrimSpace(os.Getenv(inlineKey)); v != "" {
		return []byte(v), nil
	}
	if p := strings.TrimSpace(os.Getenv(fileKey)); p != "" {
		return os.ReadFile(p)
	}
	return nil, nil
}

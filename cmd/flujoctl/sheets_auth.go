package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/subcommands"
	"golang.org/x/oauth2"

	gsheet "flujo/internal/sheets/google"
)

// sheetsAuthCmd runs the OAuth consent flow and stores the user token the
// Sheets client reads from GOOGLE_OAUTH_TOKEN_FILE.
type sheetsAuthCmd struct {
	out     io.Writer
	port    string
	output  string
	timeout time.Duration
}

func (*sheetsAuthCmd) Name() string     { return "sheets-auth" }
func (*sheetsAuthCmd) Synopsis() string { return "authorize Google Sheets access and save the token" }
func (*sheetsAuthCmd) Usage() string {
	return `flujoctl sheets-auth [-port 8085] [-o token.json]

  Needs GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE. The OAuth
  client must allow http://localhost:<port>/callback as redirect URI.
`
}

func (c *sheetsAuthCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.port, "port", "8085", "local port for the OAuth redirect")
	f.StringVar(&c.output, "o", gsheet.TokenFile(), "token file to write")
	f.DurationVar(&c.timeout, "timeout", 5*time.Minute, "how long to wait for the authorization")
}

func (c *sheetsAuthCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := gsheet.OAuthConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	cfg.RedirectURL = "http://localhost:" + c.port + "/callback"

	ln, err := net.Listen("tcp", "localhost:"+c.port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	fmt.Fprintf(c.out, "Open this URL to authorize:\n%s\n", cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline))
	code, err := waitForCode(ctx, ln)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: token exchange: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := gsheet.SaveToken(c.output, tok); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(c.out, "Saved token to %s\n", c.output)
	return subcommands.ExitSuccess
}

// waitForCode serves the OAuth redirect on ln until a code arrives or ctx
// ends.
func waitForCode(ctx context.Context, ln net.Listener) (string, error) {
	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		if e := r.URL.Query().Get("error"); e != "" {
			http.Error(w, "OAuth error: "+e, http.StatusBadRequest)
			select {
			case results <- result{err: fmt.Errorf("authorization denied: %s", e)}:
			default:
			}
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case results <- result{code: code}:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case res := <-results:
		return res.code, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", errors.New("authorization timed out")
		}
		return "", errors.New("interrupted")
	}
}

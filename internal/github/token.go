package github

import (
	"context"
	"errors"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"
)

type TokenSource string

const (
	TokenSourceInput     TokenSource = "input"
	TokenSourceGitHubCLI TokenSource = "gh"
	// TokenSourceContents marks an admin token borrowed from the contents token.
	TokenSourceContents TokenSource = "contents-token"
)

// Tokens holds the two credentials a run uses: Contents reads files, branches
// and metadata; Admin reads vulnerability alert and webhook settings.
type Tokens struct {
	Contents       string
	ContentsSource TokenSource
	Admin          string
	AdminSource    TokenSource
}

// ResolveTokens fills in missing credentials.
//
// Precedence for the contents token:
//  1. contents (if non-empty)
//  2. GitHub CLI: `gh auth token -h <host>`
//
// The admin token falls back to the contents token. Neither token is ever
// printed. An empty Contents with a nil error means no token was found.
func ResolveTokens(ctx context.Context, contents, admin, host string) (Tokens, error) {
	var out Tokens
	if tok := strings.TrimSpace(contents); tok != "" {
		out.Contents, out.ContentsSource = tok, TokenSourceInput
	} else {
		tok, ok, err := tokenFromGitHubCLI(ctx, host)
		if err != nil {
			return Tokens{}, err
		}
		if ok {
			out.Contents, out.ContentsSource = tok, TokenSourceGitHubCLI
		}
	}

	if tok := strings.TrimSpace(admin); tok != "" {
		out.Admin, out.AdminSource = tok, TokenSourceInput
	} else if out.Contents != "" {
		out.Admin, out.AdminSource = out.Contents, TokenSourceContents
	}
	return out, nil
}

// HostFromAPIURL returns the host `gh` knows an API endpoint by. It defaults
// to github.com.
func HostFromAPIURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "github.com"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "github.com"
	}
	if u.Host == "api.github.com" {
		return "github.com"
	}
	return u.Host
}

func tokenFromGitHubCLI(ctx context.Context, host string) (token string, ok bool, err error) {
	if _, lookErr := exec.LookPath("gh"); lookErr != nil {
		return "", false, nil
	}
	if host == "" {
		host = "github.com"
	}

	// Bounded so a broken gh config or credential helper cannot hang a run.
	cmdCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(cmdCtx, "gh", "auth", "token", "-h", host)
	env := make([]string, 0, len(os.Environ())+1)
	for _, entry := range os.Environ() {
		if strings.HasPrefix(entry, "GH_PAGER=") {
			continue
		}
		env = append(env, entry)
	}
	cmd.Env = append(env, "GH_PAGER=cat")

	out, runErr := cmd.Output()
	if runErr != nil {
		if cmdCtx.Err() != nil {
			return "", false, cmdCtx.Err()
		}
		// gh present but logged out counts as no token. Its output is not
		// surfaced in case it carries credentials.
		return "", false, nil
	}

	tok := strings.TrimSpace(string(out))
	if tok == "" {
		return "", false, nil
	}
	if strings.ContainsAny(tok, " \t\n\r") {
		return "", false, errors.New("invalid token returned by gh: contains whitespace")
	}
	return tok, true, nil
}

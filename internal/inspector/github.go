package inspector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v81/github"
)

// GitHub is an Inspector backed by the GitHub REST API.
//
// Contents, branches and metadata are read with the contents client. The
// vulnerability-alert setting and webhooks need repository admin rights and
// are read with the admin client, which defaults to the contents client.
type GitHub struct {
	contents *github.Client
	admin    *github.Client
	repo     Repository
	budget   *RequestBudget
	timeout  time.Duration
	cache    lookupCache
}

type Option func(*GitHub)

// WithAdminClient sets the client used for admin-scoped endpoints.
func WithAdminClient(c *github.Client) Option {
	return func(g *GitHub) {
		if c != nil {
			g.admin = c
		}
	}
}

// WithBudget shares a request budget. Without it each inspector tracks its own.
func WithBudget(b *RequestBudget) Option {
	return func(g *GitHub) {
		if b != nil {
			g.budget = b
		}
	}
}

// WithCallTimeout bounds every Inspector method call. Zero disables the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(g *GitHub) {
		g.timeout = d
	}
}

func NewGitHub(client *github.Client, repo Repository, opts ...Option) (*GitHub, error) {
	if client == nil {
		return nil, errors.New("github inspector: client is nil")
	}
	if repo.Owner == "" || repo.Name == "" {
		return nil, errors.New("github inspector: repository owner and name are required")
	}
	g := &GitHub{
		contents: client,
		admin:    client,
		repo:     repo,
	}
	for _, apply := range opts {
		if apply != nil {
			apply(g)
		}
	}
	if g.budget == nil {
		g.budget = NewRequestBudget()
	}
	return g, nil
}

func (g *GitHub) Repository() Repository { return g.repo }

func (g *GitHub) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout > 0 {
		return context.WithTimeout(ctx, g.timeout)
	}
	return context.WithCancel(ctx)
}

func (g *GitHub) observe(resp *github.Response) {
	if resp != nil {
		g.budget.Observe(resp.Response)
	}
}

// apiError wraps a go-github failure, classifying it by HTTP status. A
// missing status means the request never completed.
func apiError(op string, resp *github.Response, err error) error {
	code := 0
	if resp != nil && resp.Response != nil {
		code = resp.StatusCode
	}
	var er *github.ErrorResponse
	if code == 0 && errors.As(err, &er) && er.Response != nil {
		code = er.Response.StatusCode
	}
	kind := kindForStatus(code)
	if kind == nil && code >= 200 && code < 300 {
		// The request succeeded but the body could not be decoded.
		kind = ErrMalformed
	}
	return &APIError{Op: op, StatusCode: code, Kind: kind, Err: err}
}

const rawMediaType = "application/vnd.github.raw+json"

func (g *GitHub) metadata(ctx context.Context) (*github.Repository, error) {
	v, err := g.cache.do("repo:"+g.repo.FullName(), func() (any, error) {
		ctx, cancel := g.bound(ctx)
		defer cancel()

		if err := g.budget.Wait(ctx); err != nil {
			return nil, &APIError{Op: "get repository", Err: err}
		}
		r, resp, err := g.contents.Repositories.Get(ctx, g.repo.Owner, g.repo.Name)
		g.observe(resp)
		if err != nil {
			return nil, apiError("get repository", resp, err)
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*github.Repository), nil
}

func (g *GitHub) DefaultBranch(ctx context.Context) (string, error) {
	r, err := g.metadata(ctx)
	if err != nil {
		return "", err
	}
	branch := r.GetDefaultBranch()
	if branch == "" {
		return "", &APIError{Op: "get repository", Kind: ErrMalformed, Err: errors.New("default branch is empty")}
	}
	return branch, nil
}

func (g *GitHub) IsPrivate(ctx context.Context) (bool, error) {
	r, err := g.metadata(ctx)
	if err != nil {
		return false, err
	}
	return r.GetPrivate(), nil
}

func (g *GitHub) ProtectedBranches(ctx context.Context) (map[string]struct{}, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	const op = "list protected branches"
	opts := &github.BranchListOptions{
		Protected:   github.Ptr(true),
		ListOptions: github.ListOptions{PerPage: 100},
	}
	names := make(map[string]struct{})
	for {
		if err := g.budget.Wait(ctx); err != nil {
			return nil, &APIError{Op: op, Err: err}
		}
		branches, resp, err := g.contents.Repositories.ListBranches(ctx, g.repo.Owner, g.repo.Name, opts)
		g.observe(resp)
		if err != nil {
			return nil, apiError(op, resp, err)
		}
		for _, b := range branches {
			names[b.GetName()] = struct{}{}
		}
		if resp == nil || resp.NextPage == 0 {
			return names, nil
		}
		opts.Page = resp.NextPage
	}
}

func (g *GitHub) contentOptions() *github.RepositoryContentGetOptions {
	if g.repo.Ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: g.repo.Ref}
}

// File returns the body of path. Files too large for the contents API to
// inline (encoding "none", over 1 MB) are fetched again as raw media.
func (g *GitHub) File(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	op := "get file " + path
	if err := g.budget.Wait(ctx); err != nil {
		return nil, &APIError{Op: op, Err: err}
	}
	file, _, resp, err := g.contents.Repositories.GetContents(ctx, g.repo.Owner, g.repo.Name, path, g.contentOptions())
	g.observe(resp)
	if err != nil {
		return nil, apiError(op, resp, err)
	}
	if file == nil {
		return nil, &APIError{Op: op, Kind: ErrMalformed, Err: errors.New("path is a directory")}
	}
	if file.GetEncoding() == "none" {
		return g.rawFile(ctx, op, path)
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, &APIError{Op: op, Kind: ErrMalformed, Err: err}
	}
	return []byte(content), nil
}

func (g *GitHub) rawFile(ctx context.Context, op, path string) ([]byte, error) {
	if err := g.budget.Wait(ctx); err != nil {
		return nil, &APIError{Op: op, Err: err}
	}
	u := fmt.Sprintf("repos/%s/%s/contents/%s", g.repo.Owner, g.repo.Name,
		(&url.URL{Path: strings.TrimSuffix(path, "/")}).String())
	if g.repo.Ref != "" {
		u += "?ref=" + url.QueryEscape(g.repo.Ref)
	}
	req, err := g.contents.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, &APIError{Op: op, Err: err}
	}
	req.Header.Set("Accept", rawMediaType)

	var body bytes.Buffer
	resp, err := g.contents.Do(ctx, req, &body)
	g.observe(resp)
	if err != nil {
		return nil, apiError(op, resp, err)
	}
	return body.Bytes(), nil
}

// FileExists reports whether path exists at the inspected revision. Only the
// response status is looked at, so the size or encoding of the file does not
// matter. A missing file is (false, nil).
func (g *GitHub) FileExists(ctx context.Context, path string) (bool, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	op := "get file " + path
	if err := g.budget.Wait(ctx); err != nil {
		return false, &APIError{Op: op, Err: err}
	}
	_, _, resp, err := g.contents.Repositories.GetContents(ctx, g.repo.Owner, g.repo.Name, path, g.contentOptions())
	g.observe(resp)
	if err != nil {
		err = apiError(op, resp, err)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (g *GitHub) VulnerabilityAlertsEnabled(ctx context.Context) (bool, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	const op = "get vulnerability alerts"
	if err := g.budget.Wait(ctx); err != nil {
		return false, &APIError{Op: op, Err: err}
	}
	// go-github reports a 404 as (false, nil): alerts are disabled.
	enabled, resp, err := g.admin.Repositories.GetVulnerabilityAlerts(ctx, g.repo.Owner, g.repo.Name)
	g.observe(resp)
	if err != nil {
		return false, apiError(op, resp, err)
	}
	return enabled, nil
}

func (g *GitHub) Webhooks(ctx context.Context) ([]Webhook, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	const op = "list webhooks"
	opts := &github.ListOptions{PerPage: 100}
	var hooks []Webhook
	for {
		if err := g.budget.Wait(ctx); err != nil {
			return nil, &APIError{Op: op, Err: err}
		}
		page, resp, err := g.admin.Repositories.ListHooks(ctx, g.repo.Owner, g.repo.Name, opts)
		g.observe(resp)
		if err != nil {
			return nil, apiError(op, resp, err)
		}
		for _, h := range page {
			hooks = append(hooks, Webhook{
				URL:         h.GetConfig().GetURL(),
				ContentType: h.GetConfig().GetContentType(),
				Active:      h.GetActive(),
				Events:      append([]string(nil), h.Events...),
			})
		}
		if resp == nil || resp.NextPage == 0 {
			return hooks, nil
		}
		opts.Page = resp.NextPage
	}
}

var _ Inspector = (*GitHub)(nil)

func (g *GitHub) String() string {
	if g.repo.Ref == "" {
		return fmt.Sprintf("github:%s", g.repo.FullName())
	}
	return fmt.Sprintf("github:%s@%s", g.repo.FullName(), g.repo.Ref)
}

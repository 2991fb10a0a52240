package scm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// ErrUpstreamCallFailed wraps every failure talking to the GitHub API.
var ErrUpstreamCallFailed = errors.New("github api call failed")

// MaxPerPage is the largest page GitHub serves.
const MaxPerPage = 100

// Branch is a branch of the configured repository.
type Branch struct {
	Name   string
	Commit Commit
}

// Commit is the head commit of a Branch.
type Commit struct {
	SHA string
	URL string
}

// Options configures a GitHub client.
type Options struct {
	Token        string
	Organization string
	Repo         string
	BaseURL      string // empty means https://api.github.com
	PerPage      int
	Timeout      time.Duration
}

// Client lists branches of a single repository.
type Client struct {
	gh      *github.Client
	owner   string
	repo    string
	perPage int
	timeout time.Duration
}

// NewClient creates a GitHub client authenticated with a static bearer token.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("github token is required")
	}
	if opts.Organization == "" || opts.Repo == "" {
		return nil, errors.New("github organization and repo are required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
	gh := github.NewClient(oauth2.NewClient(context.Background(), ts))

	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		u, err := url.Parse(base + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid github base url %q: %w", opts.BaseURL, err)
		}
		gh.BaseURL = u
	}

	perPage := opts.PerPage
	if perPage <= 0 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	return &Client{
		gh:      gh,
		owner:   opts.Organization,
		repo:    opts.Repo,
		perPage: perPage,
		timeout: opts.Timeout,
	}, nil
}

// ListBranches returns the first page of branches in upstream order.
func (c *Client) ListBranches(ctx context.Context) ([]Branch, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	opts := &github.BranchListOptions{
		ListOptions: github.ListOptions{PerPage: c.perPage},
	}
	branches, _, err := c.gh.Repositories.ListBranches(ctx, c.owner, c.repo, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: list branches of %s/%s: %v", ErrUpstreamCallFailed, c.owner, c.repo, err)
	}

	out := make([]Branch, 0, len(branches))
	for _, b := range branches {
		if b == nil || b.GetName() == "" {
			continue
		}
		out = append(out, Branch{
			Name: b.GetName(),
			Commit: Commit{
				SHA: b.GetCommit().GetSHA(),
				URL: b.GetCommit().GetURL(),
			},
		})
	}
	return out, nil
}

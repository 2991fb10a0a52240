package circleci

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUpstreamCallFailed wraps every failure talking to CircleCI.
var ErrUpstreamCallFailed = errors.New("circleci api call failed")

const (
	defaultBaseURL   = "https://circleci.com"
	maxResponseBytes = 1 << 20
)

// BuildRequest identifies what to build and who asked for it.
type BuildRequest struct {
	Branch   string
	UserID   string
	UserName string
}

// BuildParameters is the build_parameters object sent to the v1.1 API.
type BuildParameters struct {
	CircleJob     string `json:"CIRCLE_JOB"`
	DeployEnv     string `json:"DEPLOY_ENV"`
	SlackUserID   string `json:"SLACK_USER_ID"`
	SlackUsername string `json:"SLACK_USERNAME"`
	TriggeredBy   string `json:"TRIGGERED_BY"`
}

type triggerBody struct {
	BuildParameters BuildParameters `json:"build_parameters"`
}

// BuildSummary is what we log from CircleCI's answer. It is diagnostic only.
type BuildSummary struct {
	BuildNum  int    `json:"build_num"`
	BuildURL  string `json:"build_url"`
	Status    string `json:"status"`
	Branch    string `json:"branch"`
	VCSRev    string `json:"vcs_revision"`
	Lifecycle string `json:"lifecycle"`
}

// Options configures a Client.
type Options struct {
	Token        string
	BaseURL      string
	Organization string
	Repo         string
	Job          string
	Environment  string
	TriggeredBy  string
	Timeout      time.Duration
}

// Client triggers CircleCI v1.1 builds for one GitHub project.
type Client struct {
	opts   Options
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a Client. A nil httpClient means http.DefaultClient and
// a nil logger means slog.Default().
func NewClient(opts Options, httpClient *http.Client, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{opts: opts, http: httpClient, logger: logger}
}

// buildURL returns the trigger endpoint. The token travels as the
// circle-token query parameter, so the result must never be logged.
func (c *Client) buildURL(branch string) string {
	segments := strings.Split(branch, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	path := fmt.Sprintf("/api/v1.1/project/github/%s/%s/tree/%s",
		url.PathEscape(c.opts.Organization),
		url.PathEscape(c.opts.Repo),
		strings.Join(segments, "/"),
	)
	return c.opts.BaseURL + path + "?" + url.Values{"circle-token": {c.opts.Token}}.Encode()
}

// TriggerBuild issues a single POST. There is no retry.
//
// A response body that does not parse is logged and ignored: the build is
// already queued server-side, so (nil, nil) is returned.
func (c *Client) TriggerBuild(ctx context.Context, req BuildRequest) (*BuildSummary, error) {
	if req.Branch == "" {
		return nil, fmt.Errorf("%w: branch is empty", ErrUpstreamCallFailed)
	}
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(triggerBody{BuildParameters: BuildParameters{
		CircleJob:     c.opts.Job,
		DeployEnv:     c.opts.Environment,
		SlackUserID:   req.UserID,
		SlackUsername: req.UserName,
		TriggeredBy:   c.opts.TriggeredBy,
	}})
	if err != nil {
		return nil, fmt.Errorf("%w: encode build parameters: %v", ErrUpstreamCallFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(req.Branch), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request", ErrUpstreamCallFailed)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// url.Error embeds the URL, and with it the token.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamCallFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUpstreamCallFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("circleci rejected build trigger",
			"branch", req.Branch,
			"status", resp.StatusCode,
			"message", errorMessage(raw),
		)
		return nil, fmt.Errorf("%w: trigger status %d", ErrUpstreamCallFailed, resp.StatusCode)
	}

	var summary BuildSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		c.logger.Warn("could not parse circleci response", "branch", req.Branch, "error", err)
		return nil, nil
	}
	return &summary, nil
}

// maxLoggedBody caps how much of an unparseable error body is logged.
const maxLoggedBody = 512

// errorMessage extracts CircleCI's {"message": ...} from an error response,
// or returns the body truncated to maxLoggedBody.
func errorMessage(raw []byte) string {
	var apiErr struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	if len(raw) > maxLoggedBody {
		return string(raw[:maxLoggedBody]) + "..."
	}
	return string(raw)
}

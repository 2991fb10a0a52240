package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUpstreamCallFailed wraps every failure talking to the Slack Web API.
var ErrUpstreamCallFailed = errors.New("slack api call failed")

const (
	defaultBaseURL = "https://slack.com"
	// maxResponseBytes bounds how much of a Slack response we decode.
	maxResponseBytes = 1 << 20
)

// Client is a minimal Slack Web API client.
type Client struct {
	Token   string
	BaseURL string // default https://slack.com
	Timeout time.Duration
	HTTP    *http.Client
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return defaultBaseURL
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// ConversationInfo fetches channel metadata.
// GET /api/conversations.info?channel=<id>
//
// Anything other than an explicit ok:true with a channel object is an error
// wrapping ErrUpstreamCallFailed.
func (c *Client) ConversationInfo(ctx context.Context, channelID string) (*Channel, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	ep := c.base() + "/api/conversations.info?" + url.Values{"channel": {channelID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstreamCallFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamCallFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: conversations.info status %d", ErrUpstreamCallFailed, resp.StatusCode)
	}

	var out ConversationInfoResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode conversations.info: %v", ErrUpstreamCallFailed, err)
	}
	if !out.OK {
		if out.Error == "" {
			out.Error = "unknown_error"
		}
		return nil, fmt.Errorf("%w: conversations.info: %s", ErrUpstreamCallFailed, out.Error)
	}
	if out.Channel == nil {
		return nil, fmt.Errorf("%w: conversations.info returned no channel", ErrUpstreamCallFailed)
	}
	return out.Channel, nil
}

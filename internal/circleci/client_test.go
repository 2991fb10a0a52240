package circleci

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method string
	path   string
	token  string
	ctype  string
	body   triggerBody
}

func newTestClient(t *testing.T, status int, respBody string) (*Client, *capturedRequest, *bytes.Buffer) {
	t.Helper()
	got := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.EscapedPath()
		got.token = r.URL.Query().Get("circle-token")
		got.ctype = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &got.body)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := NewClient(Options{
		Token:        "circle-secret",
		BaseURL:      srv.URL,
		Organization: "acme",
		Repo:         "widgets",
		Job:          "build",
		Environment:  "qa",
		TriggeredBy:  "leeroy",
		Timeout:      time.Second,
	}, nil, logger)
	return c, got, &logBuf
}

func TestTriggerBuild(t *testing.T) {
	c, got, _ := newTestClient(t, http.StatusCreated, `{"build_num":42,"build_url":"https://circleci.com/gh/acme/widgets/42","status":"not_running","branch":"feature-x"}`)

	summary, err := c.TriggerBuild(context.Background(), BuildRequest{Branch: "feature-x", UserID: "U1", UserName: "alice"})
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 42, summary.BuildNum)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/v1.1/project/github/acme/widgets/tree/feature-x", got.path)
	assert.Equal(t, "circle-secret", got.token)
	assert.Equal(t, "application/json", got.ctype)
	assert.Equal(t, BuildParameters{
		CircleJob:     "build",
		DeployEnv:     "qa",
		SlackUserID:   "U1",
		SlackUsername: "alice",
		TriggeredBy:   "leeroy",
	}, got.body.BuildParameters)
}

func TestTriggerBuildBranchWithSlash(t *testing.T) {
	c, got, _ := newTestClient(t, http.StatusOK, `{}`)

	_, err := c.TriggerBuild(context.Background(), BuildRequest{Branch: "feature/new thing", UserID: "U1", UserName: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "/api/v1.1/project/github/acme/widgets/tree/feature/new%20thing", got.path)
}

func TestTriggerBuildUnparseableResponseIsIgnored(t *testing.T) {
	c, _, logBuf := newTestClient(t, http.StatusOK, `<html>accepted</html>`)

	summary, err := c.TriggerBuild(context.Background(), BuildRequest{Branch: "main"})
	assert.NoError(t, err)
	assert.Nil(t, summary)
	assert.Contains(t, logBuf.String(), "could not parse circleci response")
}

func TestTriggerBuildFailures(t *testing.T) {
	c, _, _ := newTestClient(t, http.StatusNotFound, `{"message":"Project not found"}`)

	_, err := c.TriggerBuild(context.Background(), BuildRequest{Branch: "main"})
	assert.True(t, errors.Is(err, ErrUpstreamCallFailed))

	_, err = c.TriggerBuild(context.Background(), BuildRequest{})
	assert.True(t, errors.Is(err, ErrUpstreamCallFailed))
}

func TestTriggerBuildLogsRejection(t *testing.T) {
	c, _, logBuf := newTestClient(t, http.StatusNotFound, `{"message":"Project not found"}`)

	_, err := c.TriggerBuild(context.Background(), BuildRequest{Branch: "main"})
	require.Error(t, err)
	out := logBuf.String()
	assert.Contains(t, out, "circleci rejected build trigger")
	assert.Contains(t, out, `"status":404`)
	assert.Contains(t, out, `"message":"Project not found"`)
	assert.NotContains(t, out, "circle-secret")
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "Project not found", errorMessage([]byte(`{"message":"Project not found"}`)))
	assert.Equal(t, "<html>bad gateway</html>", errorMessage([]byte("<html>bad gateway</html>")))

	long := strings.Repeat("x", maxLoggedBody+100)
	got := errorMessage([]byte(long))
	assert.Len(t, got, maxLoggedBody+len("..."))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestTriggerBuildNetworkErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := NewClient(Options{Token: "circle-secret", BaseURL: base, Organization: "acme", Repo: "widgets", Job: "build", TriggeredBy: "leeroy"}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := c.TriggerBuild(context.Background(), BuildRequest{Branch: "main"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamCallFailed))
	assert.False(t, strings.Contains(err.Error(), "circle-secret"), "error leaks token: %v", err)
}

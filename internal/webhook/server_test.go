package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/leeroy/internal/auth"
	"github.com/mattjoyce/leeroy/internal/circleci"
	"github.com/mattjoyce/leeroy/internal/dispatch"
	"github.com/mattjoyce/leeroy/internal/scm"
	"github.com/mattjoyce/leeroy/internal/slack"
)

// upstreams stubs Slack, GitHub and CircleCI and counts calls to each.
type upstreams struct {
	channelName string
	branches    string

	slackCalls  atomic.Int32
	githubCalls atomic.Int32
	circleCalls atomic.Int32

	mu          sync.Mutex
	circlePath  string
	circleToken string
	circleBody  map[string]map[string]string
}

func (u *upstreams) serveSlack(w http.ResponseWriter, r *http.Request) {
	u.slackCalls.Add(1)
	w.Header().Set("Content-Type", "application/json")
	if r.Header.Get("Authorization") != "Bearer xoxb-test" {
		_, _ = io.WriteString(w, `{"ok":false,"error":"invalid_auth"}`)
		return
	}
	resp := slack.ConversationInfoResponse{
		OK: true,
		Channel: &slack.Channel{
			ID:             r.URL.Query().Get("channel"),
			Name:           u.channelName,
			NameNormalized: u.channelName,
		},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (u *upstreams) serveGitHub(w http.ResponseWriter, r *http.Request) {
	u.githubCalls.Add(1)
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, u.branches)
}

func (u *upstreams) serveCircle(w http.ResponseWriter, r *http.Request) {
	u.circleCalls.Add(1)
	var body map[string]map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)

	u.mu.Lock()
	u.circlePath = r.URL.Path
	u.circleToken = r.URL.Query().Get("circle-token")
	u.circleBody = body
	u.mu.Unlock()

	w.WriteHeader(http.StatusCreated)
	_, _ = io.WriteString(w, `{"build_num":1,"status":"not_running"}`)
}

type testEnv struct {
	server     *Server
	handler    http.Handler
	up         *upstreams
	dispatcher *dispatch.Dispatcher
}

func newTestEnv(t *testing.T, opts ...func(*upstreams)) *testEnv {
	t.Helper()
	up := &upstreams{
		channelName: "deploys",
		branches:    `[{"name":"main","commit":{"sha":"a"}},{"name":"dev","commit":{"sha":"b"}}]`,
	}
	for _, opt := range opts {
		opt(up)
	}

	slackSrv := httptest.NewServer(http.HandlerFunc(up.serveSlack))
	githubSrv := httptest.NewServer(http.HandlerFunc(up.serveGitHub))
	circleSrv := httptest.NewServer(http.HandlerFunc(up.serveCircle))
	t.Cleanup(slackSrv.Close)
	t.Cleanup(githubSrv.Close)
	t.Cleanup(circleSrv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	slackClient := &slack.Client{Token: "xoxb-test", BaseURL: slackSrv.URL, Timeout: time.Second}
	gate := auth.NewChannelGate(slackClient, "deploys", logger)

	gh, err := scm.NewClient(scm.Options{
		Token:        "ghp_test",
		Organization: "acme",
		Repo:         "widgets",
		BaseURL:      githubSrv.URL,
		PerPage:      100,
		Timeout:      time.Second,
	})
	require.NoError(t, err)

	ci := circleci.NewClient(circleci.Options{
		Token:        "circle-test",
		BaseURL:      circleSrv.URL,
		Organization: "acme",
		Repo:         "widgets",
		Job:          "build",
		Environment:  "qa",
		TriggeredBy:  "leeroy",
		Timeout:      time.Second,
	}, nil, logger)

	disp := dispatch.New(gh, ci, dispatch.Options{Repo: "acme/widgets", TriggerTimeout: time.Second}, logger)

	s := New(Config{Listen: "127.0.0.1:0"}, NewVerifier(testSecret, logger), gate, disp, logger)
	s.now = func() time.Time { return testNow }

	return &testEnv{server: s, handler: s.Handler(), up: up, dispatcher: disp}
}

func (e *testEnv) do(method, path, body string, ts time.Time) *httptest.ResponseRecorder {
	stamp := strconv.FormatInt(ts.Unix(), 10)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(HeaderTimestamp, stamp)
	req.Header.Set(HeaderSignature, ComputeSignature([]byte(testSecret), "v0", stamp, []byte(body)))
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func deployBody(t *testing.T, payload map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return url.Values{"payload": {string(raw)}}.Encode()
}

func validDeployPayload() map[string]any {
	return map[string]any{
		"type":        "interactive_message",
		"callback_id": "branch_selection",
		"actions": []map[string]any{{
			"name":             "branch",
			"type":             "select",
			"selected_options": []map[string]string{{"value": "feature-x"}},
		}},
		"channel": map[string]string{"id": "C123", "name": "deploys"},
		"user":    map[string]string{"id": "U1", "name": "alice"},
	}
}

func TestListBranchMenu(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/", "channel_id=C123", testNow)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var msg slack.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "branch_selection", msg.Attachments[0].CallbackID)
	require.Len(t, msg.Attachments[0].Actions, 1)
	assert.Equal(t, []slack.Option{
		{Text: "main", Value: "main"},
		{Text: "dev", Value: "dev"},
	}, msg.Attachments[0].Actions[0].Options)

	assert.EqualValues(t, 1, e.up.slackCalls.Load())
	assert.EqualValues(t, 1, e.up.githubCalls.Load())
}

func TestListNoBranches(t *testing.T) {
	e := newTestEnv(t, func(u *upstreams) { u.branches = `[]` })

	rec := e.do(http.MethodPost, "/", "channel_id=C123", testNow)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Could not find any branches for acme/widgets. Are you sure your branch is pushed up to GitHub?", rec.Body.String())
}

func TestReplayRejected(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/", "channel_id=C123", testNow.Add(-301*time.Second))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MsgReplay, rec.Body.String())

	rec = e.do(http.MethodPost, "/deploy", deployBody(t, validDeployPayload()), testNow.Add(-300*time.Second))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MsgReplay, rec.Body.String())

	assert.Zero(t, e.up.slackCalls.Load())
	assert.Zero(t, e.up.githubCalls.Load())
	assert.Zero(t, e.up.circleCalls.Load())
}

func TestBadSignatureRejected(t *testing.T) {
	e := newTestEnv(t)
	stamp := strconv.FormatInt(testNow.Unix(), 10)

	for _, path := range []string{"/", "/deploy"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("channel_id=C123"))
		req.Header.Set(HeaderTimestamp, stamp)
		req.Header.Set(HeaderSignature, ComputeSignature([]byte("wrong"), "v0", stamp, []byte("channel_id=C123")))
		rec := httptest.NewRecorder()
		e.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, MsgBadSignature, rec.Body.String(), path)
		assert.NotContains(t, rec.Body.String(), "v0=", path)
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("channel_id=C123"))
	req.Header.Set(HeaderTimestamp, stamp)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MsgBadSignature, rec.Body.String())

	assert.Zero(t, e.up.slackCalls.Load())
	assert.Zero(t, e.up.githubCalls.Load())
}

func TestUnauthorizedChannel(t *testing.T) {
	e := newTestEnv(t, func(u *upstreams) { u.channelName = "random-room" })

	rec := e.do(http.MethodPost, "/", "channel_id=C999", testNow)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MsgUnauthorized, rec.Body.String())

	rec = e.do(http.MethodPost, "/deploy", deployBody(t, validDeployPayload()), testNow)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MsgUnauthorized, rec.Body.String())

	require.NoError(t, e.dispatcher.Wait(context.Background()))
	assert.EqualValues(t, 2, e.up.slackCalls.Load())
	assert.Zero(t, e.up.githubCalls.Load())
	assert.Zero(t, e.up.circleCalls.Load())
}

func TestMissingChannelIDUnauthorized(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/", "text=hello", testNow)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MsgUnauthorized, rec.Body.String())
	assert.Zero(t, e.up.slackCalls.Load())
}

func TestDeployTriggersOnce(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/deploy", deployBody(t, validDeployPayload()), testNow)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ":rocket: Deploying branch feature-x of acme/widgets", rec.Body.String())

	require.NoError(t, e.dispatcher.Wait(context.Background()))
	assert.EqualValues(t, 1, e.up.circleCalls.Load())

	e.up.mu.Lock()
	defer e.up.mu.Unlock()
	assert.Equal(t, "/api/v1.1/project/github/acme/widgets/tree/feature-x", e.up.circlePath)
	assert.Equal(t, "circle-test", e.up.circleToken)
	assert.Equal(t, map[string]string{
		"CIRCLE_JOB":     "build",
		"DEPLOY_ENV":     "qa",
		"SLACK_USER_ID":  "U1",
		"SLACK_USERNAME": "alice",
		"TRIGGERED_BY":   "leeroy",
	}, e.up.circleBody["build_parameters"])
}

func TestDeployMalformedPayload(t *testing.T) {
	noOptions := validDeployPayload()
	noOptions["actions"] = []map[string]any{{"name": "branch"}}

	noUser := validDeployPayload()
	delete(noUser, "user")

	otherCallback := validDeployPayload()
	otherCallback["callback_id"] = "something_else"

	tests := map[string]string{
		"no payload field": "foo=bar",
		"payload not json": url.Values{"payload": {"{not json"}}.Encode(),
		"no actions":       deployBody(t, map[string]any{"user": map[string]string{"id": "U1"}}),
		"no selection":     deployBody(t, noOptions),
		"no user":          deployBody(t, noUser),
		"other callback":   deployBody(t, otherCallback),
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			e := newTestEnv(t)
			rec := e.do(http.MethodPost, "/deploy", body, testNow)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, MsgBadRequest, rec.Body.String())

			require.NoError(t, e.dispatcher.Wait(context.Background()))
			assert.Zero(t, e.up.slackCalls.Load())
			assert.Zero(t, e.up.circleCalls.Load())
		})
	}
}

func TestRouting(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "get root", method: http.MethodGet, path: "/", want: http.StatusMethodNotAllowed},
		{name: "put deploy", method: http.MethodPut, path: "/deploy", want: http.StatusMethodNotAllowed},
		{name: "get unknown", method: http.MethodGet, path: "/nope", want: http.StatusMethodNotAllowed},
		{name: "post unknown", method: http.MethodPost, path: "/nope", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(tt.method, tt.path, "channel_id=C123", testNow)
			assert.Equal(t, tt.want, rec.Code)
			assert.Empty(t, rec.Body.String())
		})
	}
	assert.Zero(t, e.up.slackCalls.Load())
}

func TestBodyTooLarge(t *testing.T) {
	e := newTestEnv(t)
	e.server.config.MaxBodySize = 16
	e.handler = e.server.Handler()

	rec := e.do(http.MethodPost, "/", "channel_id=C123&text="+strings.Repeat("x", 64), testNow)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, e.up.slackCalls.Load())
}

func TestStartAndShutdown(t *testing.T) {
	e := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.server.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

package webhook

import (
	"context"
	"time"

	"github.com/mattjoyce/leeroy/internal/dispatch"
)

// Authorizer decides whether a conversation may issue commands.
type Authorizer interface {
	Authorize(ctx context.Context, conversationID string) error
}

// CommandDispatcher runs authorized commands.
type CommandDispatcher interface {
	ListBranches(ctx context.Context) dispatch.Reply
	Deploy(cmd dispatch.DeployCommand) dispatch.Reply
	Wait(ctx context.Context) error
}

// Config holds HTTP server settings.
type Config struct {
	Listen string

	// MaxBodySize is the largest accepted request body in bytes (default: 1MB)
	MaxBodySize int64

	// ShutdownTimeout bounds the graceful shutdown, including the drain of
	// in-flight build triggers.
	ShutdownTimeout time.Duration
}

// Slack request headers.
const (
	HeaderTimestamp = "X-Slack-Request-Timestamp"
	HeaderSignature = "X-Slack-Signature"
)

// Plain-text replies. They never include computed signatures or secrets.
const (
	MsgReplay       = "Not today, Time Lord!"
	MsgBadSignature = "Could not verify request signature."
	MsgUnauthorized = "You are not authorized to perform that action in this conversation. The attempt has been logged."
	MsgBadRequest   = "Could not parse request."
)

// Default values
const (
	DefaultMaxBodySize     = 1048576 // 1 MB
	DefaultShutdownTimeout = 10 * time.Second
)

package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/leeroy/internal/circleci"
	"github.com/mattjoyce/leeroy/internal/log"
	"github.com/mattjoyce/leeroy/internal/scm"
	"github.com/mattjoyce/leeroy/internal/slack"
)

const (
	// BranchSelectionCallback is the callback_id carried by the branch menu
	// and echoed back by Slack on selection.
	BranchSelectionCallback = "branch_selection"

	branchPrompt   = "Which branch would you like to deploy?"
	branchMenuText = "Pick a branch..."
	confirmTitle   = "Are you sure?"
	attachColor    = "#00B3E6"

	defaultTriggerTimeout = 10 * time.Second
)

//go:generate mockgen -destination=mocks/mock_dispatch.go -package=mocks github.com/mattjoyce/leeroy/internal/dispatch BranchLister,BuildTrigger

// BranchLister fetches the branches of the configured repository.
type BranchLister interface {
	ListBranches(ctx context.Context) ([]scm.Branch, error)
}

// BuildTrigger starts a remote build.
type BuildTrigger interface {
	TriggerBuild(ctx context.Context, req circleci.BuildRequest) (*circleci.BuildSummary, error)
}

// DeployCommand is a verified request to build one branch.
type DeployCommand struct {
	Branch   string
	UserID   string
	UserName string
}

// Reply is what goes back to Slack: plain text, or a structured message
// when Message is set.
type Reply struct {
	Text    string
	Message *slack.Message
}

// Options configures a Dispatcher.
type Options struct {
	// Repo is "org/repo", used in replies.
	Repo string
	// TriggerTimeout bounds each detached build trigger.
	TriggerTimeout time.Duration
}

// Dispatcher runs the list and deploy flows.
type Dispatcher struct {
	branches BranchLister
	builds   BuildTrigger
	opts     Options
	logger   *slog.Logger

	inflight sync.WaitGroup
}

// New creates a Dispatcher. A nil logger means the global "dispatch" logger.
func New(branches BranchLister, builds BuildTrigger, opts Options, logger *slog.Logger) *Dispatcher {
	if opts.TriggerTimeout <= 0 {
		opts.TriggerTimeout = defaultTriggerTimeout
	}
	if logger == nil {
		logger = log.WithComponent("dispatch")
	}
	return &Dispatcher{
		branches: branches,
		builds:   builds,
		opts:     opts,
		logger:   logger,
	}
}

// ListBranches builds the branch selection reply.
func (d *Dispatcher) ListBranches(ctx context.Context) Reply {
	branches, err := d.branches.ListBranches(ctx)
	if err != nil {
		d.logger.Error("failed to list branches", "repo", d.opts.Repo, "error", err)
		branches = nil
	}

	if len(branches) == 0 {
		return Reply{Text: fmt.Sprintf(
			"Could not find any branches for %s. Are you sure your branch is pushed up to GitHub?",
			d.opts.Repo,
		)}
	}

	d.logger.Debug("offering branches", "repo", d.opts.Repo, "count", len(branches))
	return Reply{Message: BranchMenu(d.opts.Repo, branches)}
}

// BranchMenu renders branches, in order, as an ephemeral select menu.
func BranchMenu(repo string, branches []scm.Branch) *slack.Message {
	options := make([]slack.Option, 0, len(branches))
	for _, b := range branches {
		options = append(options, slack.Option{Text: b.Name, Value: b.Name})
	}

	return &slack.Message{
		Text:            branchPrompt,
		ResponseType:    slack.ResponseEphemeral,
		ReplaceOriginal: true,
		Attachments: []slack.Attachment{{
			Fallback:       fmt.Sprintf("Unable to pick a branch of %s", repo),
			Color:          attachColor,
			AttachmentType: "default",
			CallbackID:     BranchSelectionCallback,
			Actions: []slack.Action{{
				Name:    "branch",
				Text:    branchMenuText,
				Type:    "select",
				Confirm: &slack.Confirm{Title: confirmTitle},
				Options: options,
			}},
		}},
	}
}

// Deploy starts the build in the background and returns the acknowledgement
// without waiting for it.
func (d *Dispatcher) Deploy(cmd DeployCommand) Reply {
	triggerID := uuid.New().String()
	logger := log.WithTrigger(d.logger, triggerID).With("branch", cmd.Branch, "user_id", cmd.UserID)

	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		d.trigger(logger, cmd)
	}()

	logger.Info("deploy requested", "repo", d.opts.Repo, "user_name", cmd.UserName)
	return Reply{Text: fmt.Sprintf(":rocket: Deploying branch %s of %s", cmd.Branch, d.opts.Repo)}
}

func (d *Dispatcher) trigger(logger *slog.Logger, cmd DeployCommand) {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.TriggerTimeout)
	defer cancel()

	start := time.Now()
	summary, err := d.builds.TriggerBuild(ctx, circleci.BuildRequest{
		Branch:   cmd.Branch,
		UserID:   cmd.UserID,
		UserName: cmd.UserName,
	})
	if err != nil {
		logger.Error("build trigger failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	if summary == nil {
		logger.Info("build triggered", "duration_ms", time.Since(start).Milliseconds())
		return
	}
	logger.Info("build triggered",
		"build_num", summary.BuildNum,
		"build_url", summary.BuildURL,
		"status", summary.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Wait blocks until every detached trigger has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for build triggers: %w", ctx.Err())
	}
}

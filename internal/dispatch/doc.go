// Package dispatch turns verified, authorized Slack commands into work.
//
// Two flows exist:
//   - List: fetch the repository's branches and answer with an interactive
//     select menu. An upstream failure degrades to the "no branches" reply.
//   - Deploy: start a CircleCI build for the chosen branch in a detached
//     goroutine and answer immediately with an acknowledgement.
//
// The detached trigger runs under its own context and deadline. Dropping the
// inbound connection does not cancel it; Wait drains in-flight triggers on
// shutdown. Trigger failures are only logged.
//
// Callers must have verified the request signature and authorized the
// conversation before calling into this package.
package dispatch

// Package webhook is the HTTP surface that Slack talks to.
//
// Every request is authenticated with Slack's v0 signing scheme before its
// body is interpreted, and every command is authorized against the sanctioned
// deployment channel before anything privileged happens.
//
// # Routes
//
// Only POST is served; any other method gets 405 before routing.
//
//   - POST /        slash command, form body with channel_id. Replies with an
//     interactive branch menu.
//   - POST /deploy  interactive message callback, form body with a JSON
//     payload field. Starts the build and acknowledges immediately.
//
// # Request Flow
//
//  1. Body read, capped at MaxBodySize (413 beyond it)
//  2. Timestamp checked against the replay window (400 "Not today, Time Lord!")
//  3. v0 signature computed over the raw body and compared in constant time
//     (400 "Could not verify request signature.")
//  4. Body parsed (400 "Could not parse request." when malformed)
//  5. Conversation authorized (200 with a refusal text when denied)
//  6. Command dispatched and its reply written
//
// # Example Usage
//
//	verifier := webhook.NewVerifier(cfg.Slack.SigningSecret, logger)
//	server := webhook.New(webhook.Config{Listen: ":8000"}, verifier, gate, dispatcher, logger)
//	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
//		log.Fatal(err)
//	}
package webhook

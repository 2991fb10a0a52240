package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"
	"time"
)

// ReplayWindow is how far a request timestamp may drift from local time.
// The bound is exclusive: a request exactly ReplayWindow old is rejected.
const ReplayWindow = 300 * time.Second

var (
	// ErrReplaySuspected is returned for timestamps outside the replay window,
	// and for timestamps that are missing or not a base-10 integer.
	ErrReplaySuspected = errors.New("request timestamp outside replay window")

	// ErrInvalidSignature is returned when the signature does not match.
	ErrInvalidSignature = errors.New("request signature mismatch")
)

// InboundRequest is the raw material needed to authenticate a Slack request.
// Body must be the exact bytes received.
type InboundRequest struct {
	Body      []byte
	Timestamp string
	Signature string
}

// Verifier checks Slack v0 request signatures.
type Verifier struct {
	secret []byte
	logger *slog.Logger
}

// NewVerifier creates a Verifier for the given signing secret.
func NewVerifier(signingSecret string, logger *slog.Logger) *Verifier {
	return &Verifier{secret: []byte(signingSecret), logger: logger}
}

// Verify authenticates req as of now. The replay window is checked first;
// a stale request is never hashed.
func (v *Verifier) Verify(req InboundRequest, now time.Time) error {
	ts, err := strconv.ParseInt(req.Timestamp, 10, 64)
	if err != nil {
		v.logger.Warn("request rejected", "reason", "unparseable timestamp", "timestamp", req.Timestamp)
		return ErrReplaySuspected
	}

	window := int64(ReplayWindow / time.Second)
	current := now.Unix()
	if ts <= current-window || ts >= current+window {
		v.logger.Warn("request rejected",
			"reason", "timestamp outside replay window",
			"timestamp", ts,
			"now", current,
		)
		return ErrReplaySuspected
	}

	expected := ComputeSignature(v.secret, signatureVersion(req.Signature), req.Timestamp, req.Body)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(req.Signature)) != 1 {
		v.logger.Warn("request rejected",
			"reason", "signature mismatch",
			"computed", expected,
			"received", req.Signature,
		)
		return ErrInvalidSignature
	}
	return nil
}

// signatureVersion is the version prefix of a signature header ("v0").
// A header shorter than that is used whole; the comparison then fails.
func signatureVersion(signature string) string {
	if len(signature) < 2 {
		return signature
	}
	return signature[:2]
}

// ComputeSignature returns "v0=" followed by the hex HMAC-SHA256 of
// "{version}:{timestamp}:{body}".
func ComputeSignature(secret []byte, version, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(version))
	mac.Write([]byte(":"))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(":"))
	mac.Write(body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

// Package webhook implements the HTTP ingress that normalizes per-provider
// PR and feedback events into Corvid's canonical types and enqueues review
// jobs. Routing is a chi.Mux, one handler per provider endpoint:
// /webhooks/{github,gitlab,bitbucket} for review events and matching
// /feedback/* endpoints for emoji/comment feedback.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/corvid-review/corvid/internal/pr"
)

// verifySignature checks body against the signature header using the
// provider's scheme:
//   - GitHub: HMAC-SHA256 hex digest with a "sha256=" prefix
//   - GitLab: HMAC-SHA256 hex digest, no prefix
//   - Bitbucket: shared-secret compare (no per-request signature header)
//
// A missing configured secret bypasses verification (explicit opt-out).
// An unknown provider is always rejected.
func verifySignature(provider pr.Provider, secret, header, body string) error {
	if secret == "" {
		return nil
	}

	switch provider {
	case pr.GitHub:
		return verifyHMACPrefixed(secret, header, body, "sha256=")
	case pr.GitLab:
		return verifyHMACPrefixed(secret, header, body, "")
	case pr.Bitbucket:
		if !hmac.Equal([]byte(header), []byte(secret)) {
			return fmt.Errorf("webhook: bitbucket shared secret mismatch")
		}
		return nil
	default:
		return fmt.Errorf("webhook: unknown provider %q", provider)
	}
}

func verifyHMACPrefixed(secret, header, body, prefix string) error {
	digest := strings.TrimPrefix(header, prefix)
	if digest == header && prefix != "" {
		return fmt.Errorf("webhook: signature header missing %q prefix", prefix)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	want := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(digest), []byte(want)) {
		return fmt.Errorf("webhook: signature mismatch")
	}
	return nil
}

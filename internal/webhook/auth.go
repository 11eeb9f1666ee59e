package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/dshills/codemate/internal/providers"
)

const signaturePrefix = "sha256="

// SignGitHub returns the X-Hub-Signature-256 value for body under secret.
func SignGitHub(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifyGitHub reports whether signature is the HMAC-SHA256 of body under
// secret. The comparison is constant time.
func VerifyGitHub(secret, signature string, body []byte) bool {
	if signature == "" {
		return false
	}
	return hmac.Equal([]byte(SignGitHub(secret, body)), []byte(signature))
}

// verifyToken compares a shared token in constant time.
func verifyToken(secret, got string) bool {
	if got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(got)) == 1
}

// authenticate checks a request against a configured, non-empty secret.
func authenticate(platform, secret string, h http.Header, body []byte) bool {
	switch platform {
	case providers.GitHub:
		return VerifyGitHub(secret, h.Get(HeaderGitHubSignature), body)
	case providers.GitLab:
		return verifyToken(secret, h.Get(HeaderGitLabToken))
	case providers.Bitbucket:
		return verifyToken(secret, h.Get(HeaderBitbucketSig))
	}
	return false
}

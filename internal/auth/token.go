// Package auth issues workspace bearer tokens and resolves them back to
// workspaces. Only a SHA-256 hash of each token is ever stored.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/easyrelocate/internal/apperr"
)

// TokenPrefix marks workspace tokens so they are recognizable when pasted.
const TokenPrefix = "er_ws_"

const tokenEntropyBytes = 32

// GenerateToken returns a new random workspace token.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", eris.Wrap(err, "auth: read random bytes")
	}
	return TokenPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the lowercase hex SHA-256 of token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ParseBearer extracts the token from an Authorization header value. The
// scheme keyword is matched case-insensitively.
func ParseBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", apperr.Unauthenticated("Missing Authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", apperr.Unauthenticated("Invalid Authorization header")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperr.Unauthenticated("Invalid Authorization header")
	}
	return token, nil
}

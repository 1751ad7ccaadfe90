// Package hash derives chat-platform credentials from internal user identifiers.
//
// The digest is deterministic on purpose: login and logout re-derive the same
// username/password on every call, so credentials are never persisted. Output is
// truncated to a short configurable length (default 8 hex characters) to satisfy
// the platform's username-length limits. The truncation trades collision
// resistance for compatibility; it namespaces internal identifiers and is not
// safe against an adversary hunting for collisions.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ELEVATE-Project/chat-communications/pkg/config"
)

// Kind selects which salt and output length a digest uses.
type Kind string

const (
	KindUsername Kind = "username"
	KindPassword Kind = "password"
)

type kindConfig struct {
	salt   string
	length int
}

// Hasher produces fixed-length salted digests. Stateless after construction.
type Hasher struct {
	kinds map[Kind]kindConfig
}

// New builds a Hasher from config. Fails when a salt is unset so a
// misconfigured deployment dies at boot instead of deriving credentials
// from an empty salt.
func New(cfg config.HashConfig) (*Hasher, error) {
	if cfg.UsernameSalt == "" {
		return nil, fmt.Errorf("configuration error: username hash salt is not set")
	}
	if cfg.PasswordSalt == "" {
		return nil, fmt.Errorf("configuration error: password hash salt is not set")
	}

	usernameLength := cfg.UsernameLength
	if usernameLength <= 0 {
		usernameLength = 8
	}
	passwordLength := cfg.PasswordLength
	if passwordLength <= 0 {
		passwordLength = 12
	}

	return &Hasher{
		kinds: map[Kind]kindConfig{
			KindUsername: {salt: cfg.UsernameSalt, length: usernameLength},
			KindPassword: {salt: cfg.PasswordSalt, length: passwordLength},
		},
	}, nil
}

// Digest returns the truncated hex digest of input under the kind's salt.
// Same (kind, input) always yields the same output.
func (h *Hasher) Digest(kind Kind, input string) (string, error) {
	kc, ok := h.kinds[kind]
	if !ok {
		return "", fmt.Errorf("unknown digest kind: %q", kind)
	}
	if input == "" {
		return "", fmt.Errorf("digest input must not be empty")
	}

	sum := sha256.Sum256([]byte(kc.salt + input))
	digest := hex.EncodeToString(sum[:])
	if kc.length < len(digest) {
		digest = digest[:kc.length]
	}
	return digest, nil
}

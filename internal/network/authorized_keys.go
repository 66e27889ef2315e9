// Package network serves script replays over SSH. A session pipes an event
// script on stdin and receives the resulting wire trace on stdout, either
// as text lines or as length-prefixed protobuf records.
package network

import (
	"bytes"
	"fmt"
	"os"

	gossh "golang.org/x/crypto/ssh"
)

// AuthorizedKeys is a set of public keys indexed by SHA256 fingerprint
type AuthorizedKeys struct {
	fingerprints map[string]string // fingerprint -> comment
}

// ParseAuthorizedKeys parses data in the OpenSSH authorized_keys format.
// Blank lines and comments are skipped.
func ParseAuthorizedKeys(data []byte) (*AuthorizedKeys, error) {
	keys := &AuthorizedKeys{fingerprints: make(map[string]string)}
	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		key, comment, _, _, err := gossh.ParseAuthorizedKey(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: failed to parse authorized key: %w", i+1, err)
		}
		keys.fingerprints[gossh.FingerprintSHA256(key)] = comment
	}
	return keys, nil
}

// LoadAuthorizedKeys reads an authorized_keys file
func LoadAuthorizedKeys(path string) (*AuthorizedKeys, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read authorized keys: %w", err)
	}
	return ParseAuthorizedKeys(data)
}

// Allows reports whether key is in the set
func (a *AuthorizedKeys) Allows(key gossh.PublicKey) bool {
	if a == nil || key == nil {
		return false
	}
	_, ok := a.fingerprints[gossh.FingerprintSHA256(key)]
	return ok
}

// Len returns the number of keys
func (a *AuthorizedKeys) Len() int {
	if a == nil {
		return 0
	}
	return len(a.fingerprints)
}

// Package cipher names the voice transport encryption modes and picks one
// both sides support.
package cipher

import (
	"errors"
	"fmt"
	"slices"
)

const (
	ModeAES256GCM         = "aead_aes256_gcm_rtpsize"
	ModeXChaCha20Poly1305 = "aead_xchacha20_poly1305_rtpsize"
	ModeXSalsa20Poly1305  = "xsalsa20_poly1305"
)

var (
	ErrNoCommonMode = errors.New("no common voice encryption mode")
	ErrUnknownMode  = errors.New("unknown voice encryption mode")
)

// Preferred lists the known modes, best first.
func Preferred() []string {
	return []string{ModeAES256GCM, ModeXChaCha20Poly1305, ModeXSalsa20Poly1305}
}

// Validate rejects mode names outside Preferred, so a typo in configuration
// fails at startup instead of at the first voice join.
func Validate(modes []string) error {
	for _, m := range modes {
		if !slices.Contains(Preferred(), m) {
			return fmt.Errorf("%w %q", ErrUnknownMode, m)
		}
	}
	return nil
}

// Negotiate picks the first mode of ours that the peer offers.
func Negotiate(ours, offered []string) (string, error) {
	for _, m := range ours {
		if slices.Contains(offered, m) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: offered %v", ErrNoCommonMode, offered)
}

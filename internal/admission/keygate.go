package admission

import (
	"crypto/subtle"
)

// KeyGate checks the shared upload secret on mutating operations. When
// disabled every caller passes.
type KeyGate struct {
	required bool
	secret   string
}

func NewKeyGate(required bool, secret string) *KeyGate {
	return &KeyGate{required: required, secret: secret}
}

// Authorize reports whether the caller-supplied key grants access. The
// comparison is constant-time; an empty supplied key never matches an
// enabled gate.
func (g *KeyGate) Authorize(suppliedKey string) bool {
	if !g.required {
		return true
	}
	if suppliedKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(suppliedKey), []byte(g.secret)) == 1
}

// Enabled reports whether the gate is active.
func (g *KeyGate) Enabled() bool {
	return g.required
}

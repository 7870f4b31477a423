package keys

import (
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/hkdf"
)

// deriveSeed expands a seed phrase plus a numeric derivation index into size
// bytes of deterministic key material using HKDF, the same
// extract-then-expand construction the teacher uses for session key
// derivation (core/session/session.go), applied here to identity
// derivation instead of traffic keys.
func deriveSeed(seedPhrase string, index uint32, size int) []byte {
	info := make([]byte, 4)
	binary.BigEndian.PutUint32(info, index)

	h := hkdf.New(sha256.New, []byte(seedPhrase), []byte("agentmesh/identity/v1"), info)
	out := make([]byte, size)
	if _, err := io.ReadFull(h, out); err != nil {
		// hkdf.Reader only fails when more bytes are requested than the
		// PRF can safely provide (255*hash size); our sizes are tiny.
		panic("keys: hkdf expand failed: " + err.Error())
	}
	return out
}

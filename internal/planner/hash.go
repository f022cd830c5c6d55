package planner

import (
	"crypto/sha256"
	"encoding/hex"
)

// baseDigest computes the digest §4.3.2e calls "base digest": a function over
// (function identity, source hashes in order, params in canonical form).
// Function identity is the registered name, not a runtime pointer — stable
// across interpreters and rebuilds (§9).
func baseDigest(functionName string, sourceHashes []string, params map[string]any) string {
	h := sha256.New()
	writeField(h, []byte(functionName))
	for _, s := range sourceHashes {
		writeField(h, []byte(s))
	}
	writeField(h, CanonicalBytes(params))
	return hex.EncodeToString(h.Sum(nil))
}

// resultHash extends base with a result label, so that each declared
// output of a process gets its own distinct, order-independent hash.
func resultHash(base, resultLabel string) string {
	h := sha256.New()
	writeField(h, []byte(base))
	writeField(h, []byte(resultLabel))
	return hex.EncodeToString(h.Sum(nil))
}

// writeField writes a length-prefixed chunk so that concatenation ambiguity
// ("ab"+"c" vs "a"+"bc") can never produce a hash collision.
func writeField(h interface{ Write([]byte) (int, error) }, data []byte) {
	var lenBuf [8]byte
	n := len(data)
	for i := 0; i < 8; i++ {
		lenBuf[i] = byte(n >> (8 * (7 - i)))
	}
	h.Write(lenBuf[:])
	h.Write(data)
}

// valueHash hashes an arbitrary literal (used for "value:" sources), so
// identical literals always resolve to the same content address regardless
// of where they are declared.
func valueHash(v any) string {
	sum := sha256.Sum256(CanonicalBytes(v))
	return hex.EncodeToString(sum[:])
}

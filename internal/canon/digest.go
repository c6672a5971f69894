package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/tracecheck/tracecheck/internal/trace"
)

// DomainTrace is the domain-separation prefix for trace digests. The version
// suffix leaves room for algorithm migration without ambiguity.
const DomainTrace = "tracecheck/trace/v1"

// Digest computes the SHA-256 digest over a normalized trace's canonical
// bytes. Format: SHA256(domain + 0x00 + canonical). The null separator
// prevents domain/data boundary ambiguity.
//
// The digest is an opaque hex string, computed on demand and never mutated;
// persisting it for later comparison is the caller's concern.
func Digest(n *NormalizedTrace) (string, error) {
	canonical, err := n.Canonical()
	if err != nil {
		return "", fmt.Errorf("digest: failed to serialize normalized trace: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(DomainTrace))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestTrace normalizes a trace with the given matchers and digests it.
func DigestTrace(tr *trace.Trace, matchers Matchers) (string, error) {
	return Digest(Normalize(tr, matchers))
}

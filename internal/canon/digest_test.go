package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracecheck/tracecheck/internal/trace"
)

func TestDigest_MatchesDomainSeparatedHash(t *testing.T) {
	tr := runFixture(t, "aaaa0001", "aaaa0002", 0)
	normalized := Normalize(tr, DefaultMatchers())

	digest, err := Digest(normalized)
	require.NoError(t, err)

	canonical, err := normalized.Canonical()
	require.NoError(t, err)
	h := sha256.New()
	h.Write([]byte(DomainTrace))
	h.Write([]byte{0x00})
	h.Write(canonical)
	assert.Equal(t, hex.EncodeToString(h.Sum(nil)), digest)
	assert.Len(t, digest, 64)
}

func TestDigest_StableAcrossRuns(t *testing.T) {
	first, err := DigestTrace(runFixture(t, "aaaa0001", "aaaa0002", 0), DefaultMatchers())
	require.NoError(t, err)

	// A rerun with fresh ids and a different wall clock digests identically.
	second, err := DigestTrace(runFixture(t, "bbbb0001", "bbbb0002", 3_600_000), DefaultMatchers())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDigest_SensitiveToContent(t *testing.T) {
	baseline, err := DigestTrace(runFixture(t, "aaaa0001", "aaaa0002", 0), DefaultMatchers())
	require.NoError(t, err)

	other := runFixture(t, "aaaa0001", "aaaa0002", 0)
	other.Span(0).Attributes["job.kind"] = "stream"
	otherDigest, err := DigestTrace(other, DefaultMatchers())
	require.NoError(t, err)
	assert.NotEqual(t, baseline, otherDigest, "a real content change must change the digest")
}

func TestDigest_DuplicateIDBodiesNotFoldedAway(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	build := func(secondName string) *trace.Trace {
		tr, err := trace.Build([]trace.Span{
			{ID: "aa", Name: "run", StartTime: base, EndTime: base.Add(100 * time.Millisecond), Status: trace.StatusOK},
			{ID: "aa", Name: secondName, StartTime: base, EndTime: base.Add(50 * time.Millisecond), Status: trace.StatusOK},
		})
		require.Error(t, err) // duplicate ids are flagged but both spans are kept
		return tr
	}

	first, err := DigestTrace(build("cache-hit"), DefaultMatchers())
	require.NoError(t, err)
	second, err := DigestTrace(build("recompute"), DefaultMatchers())
	require.NoError(t, err)

	// Two runs that disagree inside a duplicated ID must not digest
	// identically, or the divergence would be invisible.
	assert.NotEqual(t, first, second)
}

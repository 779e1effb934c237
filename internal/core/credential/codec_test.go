package credential

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chapterelect/elections/internal/core/domain"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestNewCodecRejectsShortSecret(t *testing.T) {
	_, err := NewCodec([]byte("too-short"))
	assert.ErrorIs(t, err, ErrWeakSecret)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	codec, err := NewCodec(testSecret)
	require.NoError(t, err)

	electionID := uuid.New()
	voterID := uuid.New()

	raw, hash, err := codec.Issue(electionID, voterID)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.NotEqual(t, raw, hash)

	assert.True(t, codec.Verify(raw, hash))
}

func TestDecodeRecoversRoutingHint(t *testing.T) {
	codec, err := NewCodec(testSecret)
	require.NoError(t, err)

	electionID := uuid.New()
	voterID := uuid.New()

	raw, _, err := codec.Issue(electionID, voterID)
	require.NoError(t, err)

	gotElection, gotVoter, err := codec.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, electionID, gotElection)
	assert.Equal(t, voterID, gotVoter)
}

func TestVerifyFailsClosed(t *testing.T) {
	codec, err := NewCodec(testSecret)
	require.NoError(t, err)

	raw, hash, err := codec.Issue(uuid.New(), uuid.New())
	require.NoError(t, err)

	assert.False(t, codec.Verify("", hash))
	assert.False(t, codec.Verify("not-a-token", hash))
	assert.False(t, codec.Verify(raw, "not-a-hash"))
	assert.False(t, codec.Verify(raw, ""))

	// Tampering with a single character must invalidate the token.
	tampered := []byte(raw)
	if tampered[10] == 'A' {
		tampered[10] = 'B'
	} else {
		tampered[10] = 'A'
	}
	assert.False(t, codec.Verify(string(tampered), hash))
}

func TestVerifyRejectsTokenFromOtherSecret(t *testing.T) {
	codecA, err := NewCodec(testSecret)
	require.NoError(t, err)
	codecB, err := NewCodec([]byte(strings.Repeat("x", 32)))
	require.NoError(t, err)

	raw, hash, err := codecA.Issue(uuid.New(), uuid.New())
	require.NoError(t, err)

	assert.True(t, codecA.Verify(raw, hash))
	assert.False(t, codecB.Verify(raw, hash))
}

func TestDecodeMalformed(t *testing.T) {
	codec, err := NewCodec(testSecret)
	require.NoError(t, err)

	for _, raw := range []string{"", "%%%", "c2hvcnQ"} {
		_, _, err := codec.Decode(raw)
		assert.ErrorIs(t, err, domain.ErrInvalidCredential, "input %q", raw)
	}
}

func TestTokensAreUnique(t *testing.T) {
	codec, err := NewCodec(testSecret)
	require.NoError(t, err)

	electionID := uuid.New()
	voterID := uuid.New()

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		raw, _, err := codec.Issue(electionID, voterID)
		require.NoError(t, err)
		assert.False(t, seen[raw])
		seen[raw] = true
	}
}

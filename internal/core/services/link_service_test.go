package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chapterelect/elections/internal/core/credential"
	"github.com/chapterelect/elections/internal/core/domain"
	"github.com/chapterelect/elections/internal/core/ports"
)

type linkFixture struct {
	service   ports.LinkService
	elections *fakeElectionRepo
	links     *fakeLinkRepo
	roster    *fakeRosterRepo
	notifier  *fakeNotifier
	codec     *credential.Codec
}

func newLinkFixture(t *testing.T) *linkFixture {
	t.Helper()

	codec, err := credential.NewCodec(testSecret)
	require.NoError(t, err)

	elections := newFakeElectionRepo()
	links := newFakeLinkRepo(elections)
	roster := &fakeRosterRepo{}
	notifier := &fakeNotifier{}

	return &linkFixture{
		service:   NewLinkService(codec, links, elections, roster, notifier, discardLogger()),
		elections: elections,
		links:     links,
		roster:    roster,
		notifier:  notifier,
		codec:     codec,
	}
}

func (f *linkFixture) addVoters(electionID uuid.UUID, n int) []domain.RosterMember {
	for i := 0; i < n; i++ {
		f.roster.members = append(f.roster.members, domain.RosterMember{
			ElectionID: electionID,
			VoterID:    uuid.New(),
			Email:      uuid.NewString() + "@example.org",
		})
	}
	return f.roster.members
}

func TestLinkService_GenerateLinks(t *testing.T) {
	f := newLinkFixture(t)
	election := seedElection(t, f.elections, domain.ElectionActive)
	f.addVoters(election.ID, 3)

	result, err := f.service.GenerateLinks(context.Background(), managerCap(), election.ID, true)
	require.NoError(t, err)
	assert.Len(t, result.Issued, 3)
	assert.Zero(t, result.Skipped)
	assert.Len(t, f.notifier.deliveries, 3)

	for _, issued := range result.Issued {
		assert.NotEmpty(t, issued.RawToken)
		assert.NotEqual(t, issued.RawToken, issued.Link.TokenHash, "raw token must never be stored")
	}
}

func TestLinkService_GenerateLinksIsIdempotent(t *testing.T) {
	f := newLinkFixture(t)
	election := seedElection(t, f.elections, domain.ElectionActive)
	f.addVoters(election.ID, 3)

	first, err := f.service.GenerateLinks(context.Background(), managerCap(), election.ID, false)
	require.NoError(t, err)
	require.Len(t, first.Issued, 3)

	second, err := f.service.GenerateLinks(context.Background(), managerCap(), election.ID, false)
	require.NoError(t, err)
	assert.Empty(t, second.Issued)
	assert.Equal(t, 3, second.Skipped)

	live, err := f.links.CountByStatus(context.Background(), election.ID, domain.LinkIssued)
	require.NoError(t, err)
	assert.EqualValues(t, 3, live, "a voter must never hold two live links")
}

func TestLinkService_GenerateLinksRequiresActiveElection(t *testing.T) {
	f := newLinkFixture(t)
	election := seedElection(t, f.elections, domain.ElectionApproved)
	f.addVoters(election.ID, 1)

	_, err := f.service.GenerateLinks(context.Background(), managerCap(), election.ID, false)
	assert.ErrorIs(t, err, domain.ErrElectionNotActive)
}

func TestLinkService_GenerateLinksRequiresManageCapability(t *testing.T) {
	f := newLinkFixture(t)
	election := seedElection(t, f.elections, domain.ElectionActive)

	_, err := f.service.GenerateLinks(context.Background(), domain.Capability{ActorID: uuid.New()}, election.ID, false)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestLinkService_RedeemRoundTrip(t *testing.T) {
	f := newLinkFixture(t)
	election := seedElection(t, f.elections, domain.ElectionActive)
	f.addVoters(election.ID, 1)

	result, err := f.service.GenerateLinks(context.Background(), managerCap(), election.ID, false)
	require.NoError(t, err)
	require.Len(t, result.Issued, 1)

	access, err := f.service.Redeem(context.Background(), result.Issued[0].RawToken)
	require.NoError(t, err)
	assert.Equal(t, election.ID, access.Election.ID)
	assert.Equal(t, domain.LinkIssued, access.Link.Status)
}

func TestLinkService_RedeemFailureTaxonomy(t *testing.T) {
	f := newLinkFixture(t)
	election := seedElection(t, f.elections, domain.ElectionActive)
	members := f.addVoters(election.ID, 1)
	voterID := members[0].VoterID

	result, err := f.service.GenerateLinks(context.Background(), managerCap(), election.ID, false)
	require.NoError(t, err)
	raw := result.Issued[0].RawToken

	t.Run("garbage token", func(t *testing.T) {
		_, err := f.service.Redeem(context.Background(), "not-a-token")
		assert.ErrorIs(t, err, domain.ErrInvalidCredential)
	})

	t.Run("revoked link", func(t *testing.T) {
		require.NoError(t, f.service.Revoke(context.Background(), managerCap(), election.ID, voterID))
		_, err := f.service.Redeem(context.Background(), raw)
		assert.ErrorIs(t, err, domain.ErrLinkRevoked)
	})

	t.Run("reissued token supersedes the revoked one", func(t *testing.T) {
		reissued, err := f.service.GenerateLinks(context.Background(), managerCap(), election.ID, false)
		require.NoError(t, err)
		require.Len(t, reissued.Issued, 1)

		// The fresh token redeems; the revoked one stays dead.
		_, err = f.service.Redeem(context.Background(), reissued.Issued[0].RawToken)
		assert.NoError(t, err)
		_, err = f.service.Redeem(context.Background(), raw)
		assert.ErrorIs(t, err, domain.ErrLinkRevoked)
	})
}

func TestLinkService_RedeemAfterEndTime(t *testing.T) {
	f := newLinkFixture(t)
	election := seedElection(t, f.elections, domain.ElectionActive)
	f.addVoters(election.ID, 1)

	result, err := f.service.GenerateLinks(context.Background(), managerCap(), election.ID, false)
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	election.EndTime = &past
	require.NoError(t, f.elections.Save(context.Background(), election))

	_, err = f.service.Redeem(context.Background(), result.Issued[0].RawToken)
	assert.ErrorIs(t, err, domain.ErrLinkExpired)
}

func TestLinkService_ExpireOverdue(t *testing.T) {
	f := newLinkFixture(t)
	election := seedElection(t, f.elections, domain.ElectionActive)
	f.addVoters(election.ID, 2)

	_, err := f.service.GenerateLinks(context.Background(), managerCap(), election.ID, false)
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	election.EndTime = &past
	require.NoError(t, f.elections.Save(context.Background(), election))

	expired, err := f.service.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, expired)

	remaining, err := f.links.CountByStatus(context.Background(), election.ID, domain.LinkIssued)
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

func TestLinkService_RevokeWithoutLiveLink(t *testing.T) {
	f := newLinkFixture(t)
	election := seedElection(t, f.elections, domain.ElectionActive)

	err := f.service.Revoke(context.Background(), managerCap(), election.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

package domain

import "errors"

var (
	ErrElectionNotFound  = errors.New("election not found")
	ErrPositionNotFound  = errors.New("position not found")
	ErrCandidateNotFound = errors.New("candidate not found")

	ErrInvalidTransition = errors.New("invalid election state transition")
	ErrForbidden         = errors.New("operation not permitted")
	ErrElectionNotActive = errors.New("election is not active")
	ErrElectionNotClosed = errors.New("election is not closed")
	ErrElectionImmutable = errors.New("election structure is locked")

	ErrInvalidCredential = errors.New("invalid voting credential")
	ErrLinkUsed          = errors.New("voting link already used")
	ErrLinkRevoked       = errors.New("voting link revoked")
	ErrLinkExpired       = errors.New("voting link expired")
	ErrLinkNotFound      = errors.New("voting link not found")

	ErrInvalidSelection = errors.New("invalid selection for this election")
	ErrIncompleteBallot = errors.New("ballot is missing a required position")

	ErrServiceUnavailable = errors.New("service unavailable")
)

// IsRedemptionError reports whether err belongs to the credential-redemption
// taxonomy. Voters get one opaque message for all of these so a failed probe
// cannot learn whether a voter id exists.
func IsRedemptionError(err error) bool {
	return errors.Is(err, ErrInvalidCredential) ||
		errors.Is(err, ErrLinkUsed) ||
		errors.Is(err, ErrLinkRevoked) ||
		errors.Is(err, ErrLinkExpired) ||
		errors.Is(err, ErrLinkNotFound)
}

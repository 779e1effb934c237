package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/chapterelect/elections/internal/core/domain"
)

// domainErrs are terminal for the caller; retrying them cannot help.
var domainErrs = []error{
	domain.ErrElectionNotFound,
	domain.ErrPositionNotFound,
	domain.ErrCandidateNotFound,
	domain.ErrInvalidTransition,
	domain.ErrForbidden,
	domain.ErrElectionNotActive,
	domain.ErrElectionNotClosed,
	domain.ErrElectionImmutable,
	domain.ErrInvalidCredential,
	domain.ErrLinkUsed,
	domain.ErrLinkRevoked,
	domain.ErrLinkExpired,
	domain.ErrLinkNotFound,
	domain.ErrInvalidSelection,
	domain.ErrIncompleteBallot,
}

func isDomainErr(err error) bool {
	for _, de := range domainErrs {
		if errors.Is(err, de) {
			return true
		}
	}
	return false
}

// withRetry runs op, transparently retrying infrastructure faults with
// bounded exponential backoff. Domain errors pass through untouched; once
// the budget is exhausted the caller sees ErrServiceUnavailable.
func withRetry(ctx context.Context, logger *slog.Logger, name string, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxElapsedTime = 2 * time.Second

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if isDomainErr(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		logger.Warn("retrying after infrastructure fault", "op", name, "attempt", attempt, "error", err)
		return err
	}, backoff.WithContext(policy, ctx))

	if err == nil || isDomainErr(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.Join(domain.ErrServiceUnavailable, err)
}

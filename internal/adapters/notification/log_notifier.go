// Package notification carries voting links to voters. Actual delivery
// transport (email) belongs to the notification collaborator; this package
// holds the in-process adapter behind the LinkNotifier port.
package notification

import (
	"context"
	"log/slog"

	"github.com/chapterelect/elections/internal/core/domain"
	"github.com/chapterelect/elections/internal/core/ports"
)

// LogNotifier records that a link was dispatched without ever writing the
// raw token to the log; a log sink must not become a second place tokens
// live.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) ports.LinkNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Deliver(ctx context.Context, member domain.RosterMember, rawToken string) error {
	n.logger.Info("voting link dispatched",
		"election_id", member.ElectionID,
		"email", member.Email,
		"token_bytes", len(rawToken),
	)
	return nil
}

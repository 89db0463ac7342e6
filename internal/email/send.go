package email

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const sendTimeout = 5 * time.Second

// SendAsync delivers message to each recipient in the background. Blank and
// duplicate addresses are skipped. Sends keep the values of ctx but not its
// cancellation, so a finished request does not abort them. The returned
// channel closes once every send has finished.
func SendAsync(ctx context.Context, client EmailSender, recipients []string, message Message, logger *zerolog.Logger) <-chan struct{} {
	done := make(chan struct{})
	if client == nil || message.Empty() {
		close(done)
		return done
	}

	seen := make(map[string]struct{}, len(recipients))
	targets := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		recipient = strings.TrimSpace(recipient)
		key := strings.ToLower(recipient)
		if recipient == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		targets = append(targets, recipient)
	}
	if len(targets) == 0 {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		defer cancel()
		for _, recipient := range targets {
			if sendCtx.Err() != nil {
				return
			}
			if err := client.Send(sendCtx, recipient, message); err != nil && logger != nil {
				logger.Error().Err(err).Str("recipient", recipient).Str("subject", message.Subject).Msg("Failed to send email")
			}
		}
	}()
	return done
}

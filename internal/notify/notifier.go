// Package notify delivers schedule digests to Slack using Block Kit
// messages. Delivery failures are retried with backoff and surface as
// errors; the service itself never depends on Slack being up.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	perrors "github.com/plandeck/plandeck/internal/errors"
	"github.com/plandeck/plandeck/internal/metrics"
	"github.com/plandeck/plandeck/internal/project"
	"github.com/plandeck/plandeck/internal/retry"
	"github.com/plandeck/plandeck/internal/store"
)

// PostAPI abstracts the Slack client for testing.
type PostAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
}

// Notifier posts project digests to a Slack channel.
type Notifier struct {
	api     PostAPI
	channel string
	retry   retry.Config
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// New creates a Notifier for the given bot token and channel.
func New(botToken, channel string, m *metrics.Metrics, logger zerolog.Logger) *Notifier {
	return NewWithAPI(slack.New(botToken), channel, m, logger)
}

// NewWithAPI creates a Notifier with a caller-supplied Slack client.
func NewWithAPI(api PostAPI, channel string, m *metrics.Metrics, logger zerolog.Logger) *Notifier {
	return &Notifier{
		api:     api,
		channel: channel,
		retry:   retry.DefaultConfig(),
		metrics: m,
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

// AuthCheck verifies the bot token. Used as a readiness check.
func (n *Notifier) AuthCheck(ctx context.Context) error {
	if _, err := n.api.AuthTestContext(ctx); err != nil {
		return fmt.Errorf("slack auth test: %w", err)
	}
	return nil
}

// ScheduleDigest posts the check-in digest for a project.
func (n *Notifier) ScheduleDigest(ctx context.Context, proj *store.Project, plan *project.Plan) error {
	blocks := BuildDigestBlocks(proj, plan)
	summary := DigestSummary(proj, plan)

	err := retry.Do(ctx, n.retry, func(ctx context.Context) error {
		_, _, err := n.api.PostMessageContext(ctx, n.channel,
			slack.MsgOptionText(summary, false),
			slack.MsgOptionBlocks(blocks...),
		)
		return wrapSlackError(err)
	})
	if err != nil {
		n.metrics.RecordNotification("failed")
		return fmt.Errorf("posting digest for %s: %w", proj.Slug, err)
	}

	n.metrics.RecordNotification("sent")
	n.logger.Info().Str("project", proj.Slug).Str("channel", n.channel).Msg("digest delivered")
	return nil
}

// wrapSlackError maps Slack rate limiting onto the retryable error taxonomy.
func wrapSlackError(err error) error {
	if err == nil {
		return nil
	}
	var rl *slack.RateLimitedError
	if errors.As(err, &rl) {
		return fmt.Errorf("%s: %w", err.Error(), perrors.ErrRateLimit)
	}
	return err
}

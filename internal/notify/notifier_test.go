package notify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plandeck/plandeck/internal/metrics"
	"github.com/plandeck/plandeck/internal/retry"
)

type fakeSlack struct {
	posts    int
	failures int // fail this many calls before succeeding
	err      error
	channel  string
}

func (f *fakeSlack) PostMessageContext(_ context.Context, channelID string, _ ...slack.MsgOption) (string, string, error) {
	f.posts++
	f.channel = channelID
	if f.posts <= f.failures {
		return "", "", f.err
	}
	return channelID, "123.456", nil
}

func (f *fakeSlack) AuthTestContext(context.Context) (*slack.AuthTestResponse, error) {
	if f.err != nil && f.failures > 0 {
		return nil, f.err
	}
	return &slack.AuthTestResponse{User: "plandeck"}, nil
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestNotifier_ScheduleDigest(t *testing.T) {
	api := &fakeSlack{}
	n := NewWithAPI(api, "#eng-updates", metrics.New(), zerolog.Nop())

	proj, plan := testPlan(t)
	require.NoError(t, n.ScheduleDigest(context.Background(), proj, plan))
	assert.Equal(t, 1, api.posts)
	assert.Equal(t, "#eng-updates", api.channel)
}

func TestNotifier_RetriesRateLimit(t *testing.T) {
	api := &fakeSlack{failures: 2, err: &slack.RateLimitedError{RetryAfter: time.Millisecond}}
	n := NewWithAPI(api, "#eng-updates", metrics.New(), zerolog.Nop())
	n.retry = fastRetry()

	proj, plan := testPlan(t)
	require.NoError(t, n.ScheduleDigest(context.Background(), proj, plan))
	assert.Equal(t, 3, api.posts)
}

func TestNotifier_NonRetryableFailsFast(t *testing.T) {
	api := &fakeSlack{failures: 10, err: fmt.Errorf("invalid_blocks")}
	n := NewWithAPI(api, "#eng-updates", metrics.New(), zerolog.Nop())
	n.retry = fastRetry()

	proj, plan := testPlan(t)
	err := n.ScheduleDigest(context.Background(), proj, plan)
	require.Error(t, err)
	assert.Equal(t, 1, api.posts)
}

func TestNotifier_AuthCheck(t *testing.T) {
	n := NewWithAPI(&fakeSlack{}, "#eng-updates", metrics.New(), zerolog.Nop())
	assert.NoError(t, n.AuthCheck(context.Background()))
}

package xapi

import (
	"context"
	"errors"

	"xquest/internal/metrics"
	"xquest/internal/model"
	"xquest/pkg/logger"

	"go.uber.org/zap"
)

// Page sizes for each check. Actions older than the window are not seen and
// verify as not completed.
const (
	LikesWindow     = 100
	FollowingWindow = 1000
	TweetsWindow    = 100
)

var ErrUnsupportedQuestType = errors.New("unsupported quest type")

type API interface {
	LikedTweets(ctx context.Context, accessToken, userID string, maxResults int) ([]Tweet, error)
	Following(ctx context.Context, accessToken, userID string, maxResults int) ([]User, error)
	Tweets(ctx context.Context, accessToken, userID string, maxResults int) ([]Tweet, error)
}

type check func(ctx context.Context, api API, accessToken, xID, target string) (bool, error)

type Verifier struct {
	api    API
	checks map[model.QuestType]check
}

func NewVerifier(api API) *Verifier {
	return &Verifier{
		api: api,
		checks: map[model.QuestType]check{
			model.QuestTypeLike:    checkLike,
			model.QuestTypeFollow:  checkFollow,
			model.QuestTypeRetweet: checkRetweet,
		},
	}
}

// Verify reports whether the X account xID performed the quest's action.
// Upstream failures are logged and reported as false; the only error is
// ErrUnsupportedQuestType.
func (v *Verifier) Verify(ctx context.Context, quest model.Quest, accessToken, xID string) (bool, error) {
	c, ok := v.checks[quest.Type]
	if !ok {
		return false, ErrUnsupportedQuestType
	}

	done, err := c(ctx, v.api, accessToken, xID, quest.Target())
	if err != nil {
		logger.Logger().Warn("quest verification failed",
			zap.String("quest_id", quest.ID),
			zap.String("quest_type", string(quest.Type)),
			zap.String("x_id", xID),
			zap.Error(err))
		metrics.QuestVerifications.WithLabelValues(string(quest.Type), metrics.OutcomeError).Inc()
		return false, nil
	}

	outcome := metrics.OutcomeNotMet
	if done {
		outcome = metrics.OutcomeCompleted
	}
	metrics.QuestVerifications.WithLabelValues(string(quest.Type), outcome).Inc()

	return done, nil
}

func checkLike(ctx context.Context, api API, accessToken, xID, target string) (bool, error) {
	liked, err := api.LikedTweets(ctx, accessToken, xID, LikesWindow)
	if err != nil {
		return false, err
	}

	for _, t := range liked {
		if t.ID == target {
			return true, nil
		}
	}
	return false, nil
}

func checkFollow(ctx context.Context, api API, accessToken, xID, target string) (bool, error) {
	following, err := api.Following(ctx, accessToken, xID, FollowingWindow)
	if err != nil {
		return false, err
	}

	for _, u := range following {
		if u.ID == target {
			return true, nil
		}
	}
	return false, nil
}

func checkRetweet(ctx context.Context, api API, accessToken, xID, target string) (bool, error) {
	tweets, err := api.Tweets(ctx, accessToken, xID, TweetsWindow)
	if err != nil {
		return false, err
	}

	for _, t := range tweets {
		for _, ref := range t.ReferencedTweets {
			if ref.Type == "retweeted" && ref.ID == target {
				return true, nil
			}
		}
	}
	return false, nil
}

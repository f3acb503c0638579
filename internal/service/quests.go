package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"xquest/internal/catalog"
	"xquest/internal/metrics"
	"xquest/internal/model"
	"xquest/internal/repository"
	"xquest/internal/xapi"
	"xquest/pkg/logger"

	"go.uber.org/zap"
)

type QuestOptions struct {
	// GuardCompleted rejects verification of an already completed quest
	// instead of running it again and re-awarding XP.
	GuardCompleted bool
}

type QuestService struct {
	repo     UserRepository
	catalog  *catalog.Catalog
	verifier Verifier
	events   EventPublisher
	locks    *userLocks
	opts     QuestOptions
}

func NewQuestService(repo UserRepository, cat *catalog.Catalog, verifier Verifier, events EventPublisher, opts QuestOptions) *QuestService {
	return &QuestService{
		repo:     repo,
		catalog:  cat,
		verifier: verifier,
		events:   events,
		locks:    newUserLocks(),
		opts:     opts,
	}
}

func (s *QuestService) Catalog() []model.Quest {
	return s.catalog.All()
}

func (s *QuestService) ListUserQuests(ctx context.Context, userID string) (*model.User, []model.QuestProgress, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	quests := s.catalog.All()
	progress := make([]model.QuestProgress, len(quests))
	for i, q := range quests {
		progress[i] = model.QuestProgress{
			Quest:  q,
			Status: user.QuestStatus(q.ID),
		}
	}

	return user, progress, nil
}

// StartQuest marks questID as in progress. The quest id is not checked
// against the catalog here; unknown ids are rejected by VerifyQuest. Starting
// a completed quest moves it back to in progress.
func (s *QuestService) StartQuest(ctx context.Context, userID, questID string) (model.QuestStatus, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return "", err
	}

	if !user.HasXLinked() {
		return "", ErrAccountNotLinked
	}

	updated, err := s.repo.SetQuestStatus(ctx, userID, questID, model.QuestInProgress)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to update quest status: %w", err)
	}

	metrics.QuestsStarted.WithLabelValues(s.questLabel(questID)).Inc()
	s.publish(ctx, model.QuestEvent{
		Type:    model.EventQuestStarted,
		UserID:  userID,
		QuestID: questID,
		Status:  model.QuestInProgress,
		TotalXP: updated.XP,
	})

	return model.QuestInProgress, nil
}

// VerifyQuest asks the verifier whether the user performed the quest action
// and, if so, completes the quest and awards its XP.
func (s *QuestService) VerifyQuest(ctx context.Context, userID, questID string) (*model.VerifyResult, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	quest, ok := s.catalog.Get(questID)
	if !ok {
		return nil, ErrQuestNotFound
	}

	if user.XAccessToken == "" {
		return nil, ErrMissingCredential
	}

	current := user.QuestStatus(questID)
	if s.opts.GuardCompleted && current == model.QuestCompleted {
		return nil, ErrQuestAlreadyCompleted
	}

	done, err := s.verifier.Verify(ctx, quest, user.XAccessToken, user.XID)
	if err != nil {
		if errors.Is(err, xapi.ErrUnsupportedQuestType) {
			return nil, ErrUnsupportedQuestType
		}
		return nil, fmt.Errorf("failed to verify quest: %w", err)
	}

	if !done {
		return &model.VerifyResult{
			QuestID: questID,
			Status:  current,
			TotalXP: user.XP,
		}, nil
	}

	updated, err := s.repo.CompleteQuest(ctx, userID, questID, quest.XP)
	if err != nil {
		return nil, fmt.Errorf("failed to complete quest: %w", err)
	}

	metrics.XPAwarded.Add(float64(quest.XP))
	s.publish(ctx, model.QuestEvent{
		Type:     model.EventQuestCompleted,
		UserID:   userID,
		QuestID:  questID,
		Status:   model.QuestCompleted,
		XPEarned: quest.XP,
		TotalXP:  updated.XP,
	})

	return &model.VerifyResult{
		QuestID:   questID,
		Completed: true,
		Status:    model.QuestCompleted,
		XPEarned:  quest.XP,
		TotalXP:   updated.XP,
	}, nil
}

// questLabel keeps metric cardinality bounded by the catalog: ids that are not
// in it share one label.
func (s *QuestService) questLabel(questID string) string {
	if _, ok := s.catalog.Get(questID); ok {
		return questID
	}
	return metrics.UnknownQuest
}

func (s *QuestService) getUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *QuestService) publish(ctx context.Context, event model.QuestEvent) {
	if s.events == nil {
		return
	}

	event.OccurredAt = time.Now().UTC()
	if err := s.events.Publish(ctx, event); err != nil {
		logger.Logger().Warn("failed to publish quest event",
			zap.String("type", string(event.Type)),
			zap.String("user_id", event.UserID),
			zap.String("quest_id", event.QuestID),
			zap.Error(err))
	}
}

// userLocks hands out one mutex per user id and drops it once nobody holds
// or waits on it.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

func (l *userLocks) lock(id string) func() {
	l.mu.Lock()
	ul, ok := l.locks[id]
	if !ok {
		ul = &userLock{}
		l.locks[id] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.Lock()

	return func() {
		ul.Unlock()

		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

package service

import (
	"context"
	"errors"

	"xquest/internal/model"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrQuestNotFound         = errors.New("quest not found")
	ErrAccountNotLinked      = errors.New("x account not linked")
	ErrMissingCredential     = errors.New("x access token not found")
	ErrUnsupportedQuestType  = errors.New("unsupported quest type")
	ErrQuestAlreadyCompleted = errors.New("quest already completed")
)

type Service struct {
	*UserService
	*QuestService
}

func NewService(userService *UserService, questService *QuestService) *Service {
	return &Service{
		UserService:  userService,
		QuestService: questService,
	}
}

type UserServiceI interface {
	SignIn(ctx context.Context, profile model.User) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, name, email *string) (*model.User, error)
	LinkXAccount(ctx context.Context, id, xID, accessToken string) (*model.User, error)
}

type QuestServiceI interface {
	Catalog() []model.Quest
	ListUserQuests(ctx context.Context, userID string) (*model.User, []model.QuestProgress, error)
	StartQuest(ctx context.Context, userID, questID string) (model.QuestStatus, error)
	VerifyQuest(ctx context.Context, userID, questID string) (*model.VerifyResult, error)
}

type UserRepository interface {
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	FindUserByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	UpdateUser(ctx context.Context, id string, update model.UserUpdate) (*model.User, error)
	SetQuestStatus(ctx context.Context, userID, questID string, status model.QuestStatus) (*model.User, error)
	// CompleteQuest marks the quest completed and credits xp atomically.
	CompleteQuest(ctx context.Context, userID, questID string, xp int) (*model.User, error)
}

type Verifier interface {
	Verify(ctx context.Context, quest model.Quest, accessToken, xID string) (bool, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event model.QuestEvent) error
}

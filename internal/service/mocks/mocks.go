package mocks

import (
	"context"

	"xquest/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func userResult(args mock.Arguments) (*model.User, error) {
	var u *model.User
	if v := args.Get(0); v != nil {
		u = v.(*model.User)
	}
	return u, args.Error(1)
}

func (m *MockUserRepository) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	return userResult(m.Called(ctx, id))
}

func (m *MockUserRepository) FindUserByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return userResult(m.Called(ctx, googleID))
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	return userResult(m.Called(ctx, user))
}

func (m *MockUserRepository) UpdateUser(ctx context.Context, id string, update model.UserUpdate) (*model.User, error) {
	return userResult(m.Called(ctx, id, update))
}

func (m *MockUserRepository) SetQuestStatus(ctx context.Context, userID, questID string, status model.QuestStatus) (*model.User, error) {
	return userResult(m.Called(ctx, userID, questID, status))
}

func (m *MockUserRepository) CompleteQuest(ctx context.Context, userID, questID string, xp int) (*model.User, error) {
	return userResult(m.Called(ctx, userID, questID, xp))
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, quest model.Quest, accessToken, xID string) (bool, error) {
	args := m.Called(ctx, quest, accessToken, xID)
	return args.Bool(0), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event model.QuestEvent) error {
	return m.Called(ctx, event).Error(0)
}

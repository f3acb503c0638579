package service

import (
	"context"
	"errors"
	"fmt"

	"xquest/internal/model"
	"xquest/internal/repository"
)

type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{
		repo: repo,
	}
}

// SignIn returns the user for profile.GoogleID, creating it on first sign-in.
func (s *UserService) SignIn(ctx context.Context, profile model.User) (*model.User, error) {
	if profile.GoogleID == "" {
		return nil, fmt.Errorf("google id is required")
	}

	user, err := s.repo.FindUserByGoogleID(ctx, profile.GoogleID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user by google ID: %w", err)
	}

	user, err = s.repo.CreateUser(ctx, &model.User{
		GoogleID: profile.GoogleID,
		Email:    profile.Email,
		Name:     profile.Name,
		XP:       0,
		Quests:   map[string]model.QuestStatus{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, name, email *string) (*model.User, error) {
	return s.update(ctx, id, model.UserUpdate{Name: name, Email: email})
}

// LinkXAccount stores the X identity and access token obtained from the X
// OAuth flow. A later link replaces both.
func (s *UserService) LinkXAccount(ctx context.Context, id, xID, accessToken string) (*model.User, error) {
	return s.update(ctx, id, model.UserUpdate{XID: &xID, XAccessToken: &accessToken})
}

func (s *UserService) update(ctx context.Context, id string, update model.UserUpdate) (*model.User, error) {
	user, err := s.repo.UpdateUser(ctx, id, update)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

package service

import (
	"context"
	"errors"

	"courses_sheet_api/internal/common"
	"courses_sheet_api/internal/domain/model"
	"courses_sheet_api/internal/domain/repository"
)

type UserService struct {
	userRepo  repository.UserRepository
	topicRepo repository.TopicRepository
}

func NewUserService(userRepo repository.UserRepository, topicRepo repository.TopicRepository) *UserService {
	return &UserService{userRepo: userRepo, topicRepo: topicRepo}
}

// Profile returns the user with assigned subjects and current topic populated.
func (s *UserService) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("User not found: %w", common.ErrNotFound)
		}
		return nil, common.Errorf("failed to load user: %w", err)
	}

	subjects, err := s.userRepo.AssignedSubjects(ctx, userID)
	if err != nil {
		return nil, common.Errorf("failed to load assigned subjects: %w", err)
	}
	user.AssignedSubjects = subjects

	if user.CurrentTopicID != nil {
		topic, err := s.topicRepo.FindByID(ctx, *user.CurrentTopicID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("failed to load current topic: %w", err)
		}
		user.CurrentTopic = topic
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, common.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

type UpdateCurrentTopicRequest struct {
	TopicID *string `json:"topicId"`
}

// UpdateCurrentTopic moves the user's bookmark. A nil topic id clears it.
func (s *UserService) UpdateCurrentTopic(ctx context.Context, userID string, req UpdateCurrentTopicRequest) (*model.User, error) {
	if req.TopicID != nil {
		if _, err := s.topicRepo.FindByID(ctx, *req.TopicID); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, common.Errorf("Topic not found: %w", common.ErrNotFound)
			}
			return nil, common.Errorf("failed to load topic: %w", err)
		}
	}
	user, err := s.userRepo.UpdateCurrentTopic(ctx, userID, req.TopicID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("User not found: %w", common.ErrNotFound)
		}
		return nil, common.Errorf("failed to update current topic: %w", err)
	}
	return user, nil
}

package service

import (
	"context"
	"errors"

	"courses_sheet_api/internal/common"
	"courses_sheet_api/internal/domain/model"
	"courses_sheet_api/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type TopicService struct {
	topicRepo    repository.TopicRepository
	problemRepo  repository.ProblemRepository
	exerciseRepo repository.ExerciseProgressRepository
}

func NewTopicService(
	topicRepo repository.TopicRepository,
	problemRepo repository.ProblemRepository,
	exerciseRepo repository.ExerciseProgressRepository,
) *TopicService {
	return &TopicService{
		topicRepo:    topicRepo,
		problemRepo:  problemRepo,
		exerciseRepo: exerciseRepo,
	}
}

type CreateTopicRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (s *TopicService) CreateTopic(ctx context.Context, subjectID string, req CreateTopicRequest) (*model.Topic, error) {
	if req.Name == "" || subjectID == "" {
		return nil, common.Errorf("Name and subject are required: %w", common.ErrBadRequest)
	}
	topic := &model.Topic{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Slug:      slug.Make(req.Name),
		Content:   req.Content,
		SubjectID: subjectID,
		Status:    model.TopicIncomplete,
	}
	if err := s.topicRepo.Create(ctx, topic); err != nil {
		return nil, common.Errorf("failed to create topic: %w", err)
	}
	return topic, nil
}

type UpdateTopicRequest struct {
	Name    *string            `json:"name,omitempty"`
	Content *string            `json:"content,omitempty"`
	Status  *model.TopicStatus `json:"status,omitempty"`
}

func (s *TopicService) UpdateTopic(ctx context.Context, id string, req UpdateTopicRequest) (*model.Topic, error) {
	if req.Name == nil && req.Content == nil && req.Status == nil {
		return nil, common.Errorf("Nothing to update: %w", common.ErrBadRequest)
	}
	topic, err := s.topicRepo.Update(ctx, id, req.Name, req.Content, req.Status)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("Topic not found: %w", common.ErrNotFound)
		}
		return nil, common.Errorf("failed to update topic: %w", err)
	}
	return topic, nil
}

func (s *TopicService) DeleteTopic(ctx context.Context, id string) (*model.Topic, error) {
	topic, err := s.topicRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("Topic not found: %w", common.ErrNotFound)
		}
		return nil, common.Errorf("failed to delete topic: %w", err)
	}
	return topic, nil
}

// ToggleTopicStatus flips the manual status flag on the topic itself,
// independent of any user's exercise progress.
func (s *TopicService) ToggleTopicStatus(ctx context.Context, topicID string) (*model.Topic, error) {
	if topicID == "" {
		return nil, common.Errorf("topicId required: %w", common.ErrBadRequest)
	}
	topic, err := s.topicRepo.FindByID(ctx, topicID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("Topic not found: %w", common.ErrNotFound)
		}
		return nil, common.Errorf("failed to load topic: %w", err)
	}
	next := model.TopicCompleted
	if topic.Status == model.TopicCompleted {
		next = model.TopicIncomplete
	}
	updated, err := s.topicRepo.Update(ctx, topicID, nil, nil, &next)
	if err != nil {
		return nil, common.Errorf("failed to toggle topic status: %w", err)
	}
	return updated, nil
}

type ReplaceTopicContentRequest struct {
	TopicID     string                   `json:"topicId"`
	Content     string                   `json:"content"`
	Assignments []model.CourseAssignment `json:"assignments"`
	Problems    []model.Problem          `json:"problems"`
}

// ReplaceTopicContent updates the topic content and replaces the topic's
// assignment and problem sets in one transaction. All-or-nothing: a failure
// at any step leaves the topic exactly as it was.
func (s *TopicService) ReplaceTopicContent(ctx context.Context, req ReplaceTopicContentRequest) (*model.Topic, error) {
	if req.TopicID == "" {
		return nil, common.Errorf("topicId required: %w", common.ErrBadRequest)
	}

	assignments := make([]model.CourseAssignment, len(req.Assignments))
	for i, a := range req.Assignments {
		a.ID = uuid.NewString()
		topicID := req.TopicID
		a.TopicID = &topicID
		assignments[i] = a
	}
	problems := make([]model.Problem, len(req.Problems))
	for i, p := range req.Problems {
		p.ID = uuid.NewString()
		p.TopicID = req.TopicID
		if p.Difficulty == "" {
			p.Difficulty = model.DifficultyEasy
		}
		problems[i] = p
	}

	topic, err := s.topicRepo.ReplaceContent(ctx, req.TopicID, req.Content, assignments, problems)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("Topic not found: %w", common.ErrNotFound)
		}
		return nil, common.Errorf("failed to replace topic content: %w", err)
	}
	return topic, nil
}

type TopicProblem struct {
	model.Problem
	UserProgress *model.UserExerciseProgress `json:"userProgress"`
}

type TopicView struct {
	Topic         *model.Topic   `json:"topic"`
	Problems      []TopicProblem `json:"problems"`
	UserCompleted bool           `json:"userCompleted"`
	ProblemCount  int            `json:"problemCount"`
}

// GetTopic returns the topic with its subject and problems. When a principal
// accompanies the request the problems carry that user's progress and the view
// reports per-user completion; anonymous callers get the bare catalog view.
func (s *TopicService) GetTopic(ctx context.Context, id string, principal *model.Principal) (*TopicView, error) {
	topic, err := s.topicRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("Topic not found: %w", common.ErrNotFound)
		}
		return nil, common.Errorf("failed to load topic: %w", err)
	}

	problems, err := s.problemRepo.ListByTopic(ctx, id)
	if err != nil {
		return nil, common.Errorf("failed to load topic problems: %w", err)
	}

	progressByExercise := map[string]*model.UserExerciseProgress{}
	userCompleted := false
	if principal != nil && len(problems) > 0 {
		exerciseIDs := make([]string, 0, len(problems))
		for _, p := range problems {
			exerciseIDs = append(exerciseIDs, p.ID)
		}
		attempts, err := s.exerciseRepo.ListByUserAndExercises(ctx, principal.ID, exerciseIDs)
		if err != nil {
			return nil, common.Errorf("failed to load user progress: %w", err)
		}
		completedCount := 0
		for i := range attempts {
			progressByExercise[attempts[i].ExerciseID] = &attempts[i]
			if attempts[i].Status == model.ProgressCompleted {
				completedCount++
			}
		}
		userCompleted = completedCount >= len(problems)
	}

	view := &TopicView{
		Topic:         topic,
		Problems:      make([]TopicProblem, 0, len(problems)),
		UserCompleted: userCompleted,
		ProblemCount:  len(problems),
	}
	for _, p := range problems {
		view.Problems = append(view.Problems, TopicProblem{
			Problem:      p,
			UserProgress: progressByExercise[p.ID],
		})
	}
	return view, nil
}

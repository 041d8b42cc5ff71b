package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"courses_sheet_api/internal/common"
	"courses_sheet_api/internal/domain/model"
	"courses_sheet_api/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const adminStatsCacheKey = "admin:dashboard:stats"

// CatalogService manages the category -> subject -> problem catalog and the
// admin-side user/subject grants.
type CatalogService struct {
	categoryRepo repository.CategoryRepository
	subjectRepo  repository.SubjectRepository
	topicRepo    repository.TopicRepository
	problemRepo  repository.ProblemRepository
	userRepo     repository.UserRepository
	rdb          *redis.Client
	statsTTL     time.Duration
}

func NewCatalogService(
	categoryRepo repository.CategoryRepository,
	subjectRepo repository.SubjectRepository,
	topicRepo repository.TopicRepository,
	problemRepo repository.ProblemRepository,
	userRepo repository.UserRepository,
	rdb *redis.Client,
	statsTTL time.Duration,
) *CatalogService {
	return &CatalogService{
		categoryRepo: categoryRepo,
		subjectRepo:  subjectRepo,
		topicRepo:    topicRepo,
		problemRepo:  problemRepo,
		userRepo:     userRepo,
		rdb:          rdb,
		statsTTL:     statsTTL,
	}
}

// --- categories ---

func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	if name == "" {
		return nil, common.Errorf("name required: %w", common.ErrBadRequest)
	}
	category := &model.Category{ID: uuid.NewString(), Name: name}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, common.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, common.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id, name string) (*model.Category, error) {
	if name == "" {
		return nil, common.Errorf("name required: %w", common.ErrBadRequest)
	}
	category, err := s.categoryRepo.Update(ctx, id, name)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("Category not found: %w", common.ErrNotFound)
		}
		return nil, common.Errorf("failed to update category: %w", err)
	}
	return category, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id string) (*model.Category, error) {
	category, err := s.categoryRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("Category not found: %w", common.ErrNotFound)
		}
		return nil, common.Errorf("failed to delete category: %w", err)
	}
	return category, nil
}

// --- subjects ---

type CreateSubjectRequest struct {
	Name       string `json:"name"`
	CategoryID string `json:"category"`
}

func (s *CatalogService) CreateSubject(ctx context.Context, req CreateSubjectRequest) (*model.Subject, error) {
	if req.Name == "" || req.CategoryID == "" {
		return nil, common.Errorf("name and category required: %w", common.ErrBadRequest)
	}
	subject := &model.Subject{ID: uuid.NewString(), Name: req.Name, CategoryID: req.CategoryID}
	if err := s.subjectRepo.Create(ctx, subject); err != nil {
		return nil, common.Errorf("failed to create subject: %w", err)
	}
	return subject, nil
}

// ListSubjects returns subjects with their category populated and topics
// attached, optionally filtered by category.
func (s *CatalogService) ListSubjects(ctx context.Context, categoryID string) ([]model.Subject, error) {
	subjects, err := s.subjectRepo.List(ctx, categoryID)
	if err != nil {
		return nil, common.Errorf("failed to list subjects: %w", err)
	}
	for i := range subjects {
		topics, err := s.topicRepo.ListBySubject(ctx, subjects[i].ID)
		if err != nil {
			return nil, common.Errorf("failed to load topics for subject %s: %w", subjects[i].ID, err)
		}
		subjects[i].Topics = topics
	}
	return subjects, nil
}

type UpdateSubjectRequest struct {
	Name       *string `json:"name,omitempty"`
	CategoryID *string `json:"category,omitempty"`
}

func (s *CatalogService) UpdateSubject(ctx context.Context, id string, req UpdateSubjectRequest) (*model.Subject, error) {
	if req.Name == nil && req.CategoryID == nil {
		return nil, common.Errorf("Nothing to update: %w", common.ErrBadRequest)
	}
	subject, err := s.subjectRepo.Update(ctx, id, req.Name, req.CategoryID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("Subject not found: %w", common.ErrNotFound)
		}
		return nil, common.Errorf("failed to update subject: %w", err)
	}
	return subject, nil
}

func (s *CatalogService) DeleteSubject(ctx context.Context, id string) (*model.Subject, error) {
	subject, err := s.subjectRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("Subject not found: %w", common.ErrNotFound)
		}
		return nil, common.Errorf("failed to delete subject: %w", err)
	}
	return subject, nil
}

// --- problems ---

type CreateProblemRequest struct {
	Title        string                  `json:"title"`
	Description  string                  `json:"description"`
	TopicID      string                  `json:"topic"`
	Difficulty   model.ProblemDifficulty `json:"difficulty"`
	Link         string                  `json:"link"`
	LeetcodeLink string                  `json:"leetcodeLink"`
	YtLink       string                  `json:"ytLink"`
}

func (s *CatalogService) CreateProblem(ctx context.Context, req CreateProblemRequest) (*model.Problem, error) {
	if req.Title == "" || req.TopicID == "" {
		return nil, common.Errorf("title and topic required: %w", common.ErrBadRequest)
	}
	if req.Difficulty == "" {
		req.Difficulty = model.DifficultyEasy
	}
	problem := &model.Problem{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Description:  req.Description,
		TopicID:      req.TopicID,
		Difficulty:   req.Difficulty,
		Link:         req.Link,
		LeetcodeLink: req.LeetcodeLink,
		YtLink:       req.YtLink,
	}
	if err := s.problemRepo.Create(ctx, problem); err != nil {
		return nil, common.Errorf("failed to create problem: %w", err)
	}
	return problem, nil
}

// ListProblems returns problems with their topic populated. A topic filter
// wins over a subject filter; the subject filter expands to the subject's topics.
func (s *CatalogService) ListProblems(ctx context.Context, topicID, subjectID string) ([]model.Problem, error) {
	var topicIDs []string
	switch {
	case topicID != "":
		topicIDs = []string{topicID}
	case subjectID != "":
		topics, err := s.topicRepo.ListBySubject(ctx, subjectID)
		if err != nil {
			return nil, common.Errorf("failed to expand subject filter: %w", err)
		}
		topicIDs = make([]string, 0, len(topics))
		for _, t := range topics {
			topicIDs = append(topicIDs, t.ID)
		}
		if len(topicIDs) == 0 {
			return []model.Problem{}, nil
		}
	}
	problems, err := s.problemRepo.List(ctx, topicIDs)
	if err != nil {
		return nil, common.Errorf("failed to list problems: %w", err)
	}
	return problems, nil
}

func (s *CatalogService) GetProblem(ctx context.Context, id string) (*model.Problem, error) {
	problem, err := s.problemRepo.FindByIDWithChain(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("Problem not found: %w", common.ErrNotFound)
		}
		return nil, common.Errorf("failed to load problem: %w", err)
	}
	return problem, nil
}

func (s *CatalogService) UpdateProblem(ctx context.Context, id string, upd repository.ProblemUpdate) (*model.Problem, error) {
	problem, err := s.problemRepo.Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("Problem not found: %w", common.ErrNotFound)
		}
		return nil, common.Errorf("failed to update problem: %w", err)
	}
	return problem, nil
}

func (s *CatalogService) DeleteProblem(ctx context.Context, id string) (*model.Problem, error) {
	problem, err := s.problemRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("Problem not found: %w", common.ErrNotFound)
		}
		return nil, common.Errorf("failed to delete problem: %w", err)
	}
	return problem, nil
}

// --- subject grants ---

type SubjectGrantRequest struct {
	UserID    string `json:"userId"`
	SubjectID string `json:"subjectId"`
}

// AssignSubject adds the subject to the user's assigned set (duplicates are
// ignored) and returns the user with subjects populated.
func (s *CatalogService) AssignSubject(ctx context.Context, req SubjectGrantRequest) (*model.User, error) {
	if req.UserID == "" || req.SubjectID == "" {
		return nil, common.Errorf("userId and subjectId required: %w", common.ErrBadRequest)
	}
	if err := s.userRepo.AddAssignedSubject(ctx, req.UserID, req.SubjectID); err != nil {
		return nil, common.Errorf("failed to assign subject: %w", err)
	}
	return s.userWithSubjects(ctx, req.UserID)
}

func (s *CatalogService) RemoveSubject(ctx context.Context, req SubjectGrantRequest) (*model.User, error) {
	if req.UserID == "" || req.SubjectID == "" {
		return nil, common.Errorf("userId and subjectId required: %w", common.ErrBadRequest)
	}
	if err := s.userRepo.RemoveAssignedSubject(ctx, req.UserID, req.SubjectID); err != nil {
		return nil, common.Errorf("failed to remove subject: %w", err)
	}
	return s.userWithSubjects(ctx, req.UserID)
}

func (s *CatalogService) userWithSubjects(ctx context.Context, userID string) (*model.User, error) {
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
	return user, nil
}

// --- admin dashboard ---

type AdminStats struct {
	UserCount    int `json:"userCount"`
	SubjectCount int `json:"subjectCount"`
	TopicCount   int `json:"topicCount"`
	ProblemCount int `json:"problemCount"`
}

// AdminDashboard returns catalog-wide counts, served from a short-TTL Redis
// cache when available. Cache failures fall through to the store.
func (s *CatalogService) AdminDashboard(ctx context.Context) (*AdminStats, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, adminStatsCacheKey).Bytes(); err == nil {
			stats := &AdminStats{}
			if err := json.Unmarshal(cached, stats); err == nil {
				return stats, nil
			}
		}
	}

	stats := &AdminStats{}
	var err error
	if stats.UserCount, err = s.userRepo.Count(ctx); err != nil {
		return nil, common.Errorf("failed to count users: %w", err)
	}
	if stats.SubjectCount, err = s.subjectRepo.Count(ctx); err != nil {
		return nil, common.Errorf("failed to count subjects: %w", err)
	}
	if stats.TopicCount, err = s.topicRepo.Count(ctx); err != nil {
		return nil, common.Errorf("failed to count topics: %w", err)
	}
	if stats.ProblemCount, err = s.problemRepo.Count(ctx); err != nil {
		return nil, common.Errorf("failed to count problems: %w", err)
	}

	if s.rdb != nil {
		if payload, err := json.Marshal(stats); err == nil {
			if err := s.rdb.Set(ctx, adminStatsCacheKey, payload, s.statsTTL).Err(); err != nil {
				log.Printf("admin stats cache write failed: %v", err)
			}
		}
	}
	return stats, nil
}

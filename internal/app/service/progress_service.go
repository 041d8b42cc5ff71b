package service

import (
	"context"
	"errors"
	"math"
	"time"

	"courses_sheet_api/internal/common"
	"courses_sheet_api/internal/domain/model"
	"courses_sheet_api/internal/domain/repository"

	"github.com/google/uuid"
)

// ProgressService is the aggregation engine: it answers "what is this user's
// state across the catalog" and serves the admin submission history.
type ProgressService struct {
	userRepo     repository.UserRepository
	subjectRepo  repository.SubjectRepository
	topicRepo    repository.TopicRepository
	problemRepo  repository.ProblemRepository
	progressRepo repository.ProgressRepository
	exerciseRepo repository.ExerciseProgressRepository
}

func NewProgressService(
	userRepo repository.UserRepository,
	subjectRepo repository.SubjectRepository,
	topicRepo repository.TopicRepository,
	problemRepo repository.ProblemRepository,
	progressRepo repository.ProgressRepository,
	exerciseRepo repository.ExerciseProgressRepository,
) *ProgressService {
	return &ProgressService{
		userRepo:     userRepo,
		subjectRepo:  subjectRepo,
		topicRepo:    topicRepo,
		problemRepo:  problemRepo,
		progressRepo: progressRepo,
		exerciseRepo: exerciseRepo,
	}
}

type DashboardTopic struct {
	model.Topic
	UserCompleted bool `json:"userCompleted"`
	ProblemCount  int  `json:"problemCount"`
}

type DashboardSubject struct {
	model.Subject
	Topics []DashboardTopic `json:"topics"`
}

type DashboardData struct {
	Subjects     []DashboardSubject           `json:"subjects"`
	SubjectIDs   []string                     `json:"subjectIds"`
	Progress     []model.UserProgress         `json:"progress"`
	Resume       *model.UserProgress          `json:"resume"`
	Attempts     []model.UserExerciseProgress `json:"attempts"`
	CurrentTopic *model.Topic                 `json:"currentTopic"`
}

// UserDashboard assembles the learner landing view. Subjects come from the
// user's assigned-subject set, falling back to course assignments when that is
// empty; any store error fails the whole call.
func (s *ProgressService) UserDashboard(ctx context.Context, userID string) (*DashboardData, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, common.Errorf("failed to load user: %w", err)
	}

	subjects, err := s.userRepo.AssignedSubjects(ctx, userID)
	if err != nil {
		return nil, common.Errorf("failed to load assigned subjects: %w", err)
	}
	if len(subjects) == 0 {
		assignments, err := s.progressRepo.ListAssignmentsByUser(ctx, userID)
		if err != nil {
			return nil, common.Errorf("failed to load course assignments: %w", err)
		}
		for _, a := range assignments {
			if a.Subject != nil {
				subjects = append(subjects, *a.Subject)
			}
		}
	}
	subjects = dedupeSubjects(subjects)

	enriched := []DashboardSubject{}
	subjectIDs := []string{}
	for _, subj := range subjects {
		subjectIDs = append(subjectIDs, subj.ID)
		topics, err := s.topicRepo.ListBySubject(ctx, subj.ID)
		if err != nil {
			return nil, common.Errorf("failed to load topics for subject %s: %w", subj.ID, err)
		}
		dashTopics := []DashboardTopic{}
		for _, t := range topics {
			completed, total, err := s.topicCompletion(ctx, userID, t.ID)
			if err != nil {
				return nil, err
			}
			dashTopics = append(dashTopics, DashboardTopic{
				Topic:         t,
				UserCompleted: total > 0 && completed >= total,
				ProblemCount:  total,
			})
		}
		subj.Topics = nil
		enriched = append(enriched, DashboardSubject{Subject: subj, Topics: dashTopics})
	}

	legacy, err := s.progressRepo.ListLegacyByUserAndSubjects(ctx, userID, subjectIDs)
	if err != nil {
		return nil, common.Errorf("failed to load progress records: %w", err)
	}

	// Resume point: maximal lastVisited, first record wins on ties.
	var resume *model.UserProgress
	for i := range legacy {
		if resume == nil || legacy[i].LastVisited.After(resume.LastVisited) {
			resume = &legacy[i]
		}
	}

	attempts, err := s.exerciseRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, common.Errorf("failed to load exercise attempts: %w", err)
	}

	var currentTopic *model.Topic
	if user.CurrentTopicID != nil {
		currentTopic, err = s.topicRepo.FindByID(ctx, *user.CurrentTopicID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("failed to load current topic: %w", err)
		}
	}

	return &DashboardData{
		Subjects:     enriched,
		SubjectIDs:   subjectIDs,
		Progress:     legacy,
		Resume:       resume,
		Attempts:     attempts,
		CurrentTopic: currentTopic,
	}, nil
}

type SummaryTopic struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	PercentCompleted int    `json:"percentCompleted"`
}

type SummarySubject struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	PercentCompleted int            `json:"percentCompleted"`
	Topics           []SummaryTopic `json:"topics"`
}

type SummaryData struct {
	Subjects []SummarySubject `json:"subjects"`
}

// ProgressSummary computes rounded completion percentages per topic and per
// subject. Subjects resolve from course assignments first, then the user's
// assigned-subject set; the reverse of UserDashboard's preference, kept for
// compatibility with existing clients.
func (s *ProgressService) ProgressSummary(ctx context.Context, userID string) (*SummaryData, error) {
	subjectIDs := []string{}
	assignments, err := s.progressRepo.ListAssignmentsByUser(ctx, userID)
	if err != nil {
		return nil, common.Errorf("failed to load course assignments: %w", err)
	}
	for _, a := range assignments {
		if a.SubjectID != nil {
			subjectIDs = append(subjectIDs, *a.SubjectID)
		}
	}
	if len(subjectIDs) == 0 {
		assigned, err := s.userRepo.AssignedSubjects(ctx, userID)
		if err != nil {
			return nil, common.Errorf("failed to load assigned subjects: %w", err)
		}
		for _, subj := range assigned {
			subjectIDs = append(subjectIDs, subj.ID)
		}
	}

	summary := &SummaryData{Subjects: []SummarySubject{}}
	for _, sid := range subjectIDs {
		subject, err := s.subjectRepo.FindByID(ctx, sid)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				continue // stale assignment, skip
			}
			return nil, common.Errorf("failed to load subject %s: %w", sid, err)
		}

		topics, err := s.topicRepo.ListBySubject(ctx, sid)
		if err != nil {
			return nil, common.Errorf("failed to load topics for subject %s: %w", sid, err)
		}

		topicSummaries := []SummaryTopic{}
		subjectTotal, subjectCompleted := 0, 0
		for _, t := range topics {
			completed, total, err := s.topicCompletion(ctx, userID, t.ID)
			if err != nil {
				return nil, err
			}
			subjectTotal += total
			subjectCompleted += completed
			topicSummaries = append(topicSummaries, SummaryTopic{
				ID:               t.ID,
				Name:             t.Name,
				PercentCompleted: percent(completed, total),
			})
		}

		summary.Subjects = append(summary.Subjects, SummarySubject{
			ID:               subject.ID,
			Name:             subject.Name,
			PercentCompleted: percent(subjectCompleted, subjectTotal),
			Topics:           topicSummaries,
		})
	}
	return summary, nil
}

type ToggleResult struct {
	TopicID   string `json:"topicId"`
	Completed bool   `json:"completed"`
	Message   string `json:"message,omitempty"`
}

// ToggleTopicCompletion flips the user's completion state for every exercise
// under a topic. Partially-completed topics complete fully; fully-completed
// topics demote to attempted. The read-then-bulk-write window is an accepted
// last-write-wins race.
func (s *ProgressService) ToggleTopicCompletion(ctx context.Context, userID, topicID string) (*ToggleResult, error) {
	if topicID == "" {
		return nil, common.Errorf("topicId required: %w", common.ErrBadRequest)
	}

	exerciseIDs, err := s.problemRepo.ListIDsByTopic(ctx, topicID)
	if err != nil {
		return nil, common.Errorf("failed to load topic exercises: %w", err)
	}
	if len(exerciseIDs) == 0 {
		return &ToggleResult{TopicID: topicID, Completed: false, Message: "No exercises in topic"}, nil
	}

	completed, err := s.exerciseRepo.CountCompleted(ctx, userID, exerciseIDs)
	if err != nil {
		return nil, common.Errorf("failed to count completed exercises: %w", err)
	}

	if completed < len(exerciseIDs) {
		if err := s.exerciseRepo.MarkAllCompleted(ctx, userID, exerciseIDs); err != nil {
			return nil, common.Errorf("failed to mark topic completed: %w", err)
		}
		return &ToggleResult{TopicID: topicID, Completed: true}, nil
	}

	if err := s.exerciseRepo.DemoteCompleted(ctx, userID, exerciseIDs); err != nil {
		return nil, common.Errorf("failed to unmark topic: %w", err)
	}
	return &ToggleResult{TopicID: topicID, Completed: false}, nil
}

type SaveAttemptRequest struct {
	ExerciseID string               `json:"exerciseId"`
	Answer     *string              `json:"answer,omitempty"`
	Status     model.ProgressStatus `json:"status"`
}

// SaveAttempt upserts the (user, exercise) record and returns it with the full
// exercise chain for display.
func (s *ProgressService) SaveAttempt(ctx context.Context, userID string, req SaveAttemptRequest) (*model.UserExerciseProgress, error) {
	if req.ExerciseID == "" {
		return nil, common.Errorf("exerciseId required: %w", common.ErrBadRequest)
	}
	if req.Status == "" {
		req.Status = model.ProgressAttempted
	}

	exercise, err := s.problemRepo.FindByIDWithChain(ctx, req.ExerciseID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("exercise not found: %w", common.ErrNotFound)
		}
		return nil, common.Errorf("failed to load exercise: %w", err)
	}

	record, err := s.exerciseRepo.Upsert(ctx, userID, req.ExerciseID, req.Answer, req.Status)
	if err != nil {
		return nil, common.Errorf("failed to save attempt: %w", err)
	}
	record.Exercise = exercise
	return record, nil
}

// ListUserProgress returns all of the user's exercise records with the chain populated.
func (s *ProgressService) ListUserProgress(ctx context.Context, userID string) ([]model.UserExerciseProgress, error) {
	records, err := s.exerciseRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, common.Errorf("failed to load progress: %w", err)
	}
	return records, nil
}

type UpdateLegacyProgressRequest struct {
	SubjectID string               `json:"subject"`
	TopicID   *string              `json:"topic,omitempty"`
	ProblemID *string              `json:"problem,omitempty"`
	Status    model.ProgressStatus `json:"status"`
}

// UpdateLegacyProgress upserts a legacy user_progress record, stamping
// last_visited so the dashboard resume pointer moves.
func (s *ProgressService) UpdateLegacyProgress(ctx context.Context, userID string, req UpdateLegacyProgressRequest) (*model.UserProgress, error) {
	if req.SubjectID == "" || (req.TopicID == nil && req.ProblemID == nil) {
		return nil, common.Errorf("subject and problem/topic required: %w", common.ErrBadRequest)
	}
	if req.Status == "" {
		req.Status = model.ProgressAttempted
	}
	record := &model.UserProgress{
		UserID:      userID,
		SubjectID:   req.SubjectID,
		TopicID:     req.TopicID,
		ProblemID:   req.ProblemID,
		Status:      req.Status,
		LastVisited: time.Now().UTC(),
	}
	saved, err := s.progressRepo.UpsertLegacy(ctx, record)
	if err != nil {
		return nil, common.Errorf("failed to save progress: %w", err)
	}
	return saved, nil
}

type ListSubmissionsRequest struct {
	User    string
	Subject string
	Topic   string
	Page    int
	Limit   int
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type SubmissionPage struct {
	Submissions []model.UserExerciseProgress `json:"submissions"`
	Pagination  Pagination                   `json:"pagination"`
}

const (
	submissionsDefaultLimit = 20
	submissionsMaxLimit     = 200
)

// ListSubmissions serves the admin submission history. User, topic and subject
// filters accept an id or a case-insensitive name fragment; a fragment that
// matches nothing yields an empty page, never an unfiltered one. The topic
// filter takes precedence over the subject filter.
func (s *ProgressService) ListSubmissions(ctx context.Context, req ListSubmissionsRequest) (*SubmissionPage, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit <= 0 {
		limit = submissionsDefaultLimit
	}
	if limit > submissionsMaxLimit {
		limit = submissionsMaxLimit
	}

	filter := repository.SubmissionFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if req.User != "" {
		if isID(req.User) {
			filter.UserIDs = []string{req.User}
		} else {
			ids, err := s.userRepo.SearchIDs(ctx, req.User)
			if err != nil {
				return nil, common.Errorf("failed to resolve user filter: %w", err)
			}
			if len(ids) == 0 {
				return &SubmissionPage{
					Submissions: []model.UserExerciseProgress{},
					Pagination:  Pagination{Page: 1},
				}, nil
			}
			filter.UserIDs = ids
		}
	}

	exerciseIDs, err := s.resolveExerciseFilter(ctx, req.Topic, req.Subject)
	if err != nil {
		return nil, err
	}
	filter.ExerciseIDs = exerciseIDs

	submissions, total, err := s.exerciseRepo.ListSubmissions(ctx, filter)
	if err != nil {
		return nil, common.Errorf("failed to list submissions: %w", err)
	}

	return &SubmissionPage{
		Submissions: submissions,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	}, nil
}

// resolveExerciseFilter turns topic/subject query params into an exercise id
// set. Nil means "no filter"; an empty non-nil slice means "match nothing".
func (s *ProgressService) resolveExerciseFilter(ctx context.Context, topicParam, subjectParam string) ([]string, error) {
	switch {
	case topicParam != "":
		topicIDs := []string{}
		if isID(topicParam) {
			topicIDs = append(topicIDs, topicParam)
		} else {
			ids, err := s.topicRepo.FindIDsByNameLike(ctx, topicParam)
			if err != nil {
				return nil, common.Errorf("failed to resolve topic filter: %w", err)
			}
			if len(ids) == 0 {
				return []string{}, nil
			}
			topicIDs = ids
		}
		return s.exerciseIDsForTopics(ctx, topicIDs)

	case subjectParam != "":
		subjectIDs := []string{}
		if isID(subjectParam) {
			subjectIDs = append(subjectIDs, subjectParam)
		} else {
			ids, err := s.subjectRepo.FindIDsByNameLike(ctx, subjectParam)
			if err != nil {
				return nil, common.Errorf("failed to resolve subject filter: %w", err)
			}
			if len(ids) == 0 {
				return []string{}, nil
			}
			subjectIDs = ids
		}
		topics, err := s.topicRepo.ListBySubjects(ctx, subjectIDs)
		if err != nil {
			return nil, common.Errorf("failed to expand subject filter: %w", err)
		}
		if len(topics) == 0 {
			return []string{}, nil
		}
		topicIDs := make([]string, 0, len(topics))
		for _, t := range topics {
			topicIDs = append(topicIDs, t.ID)
		}
		return s.exerciseIDsForTopics(ctx, topicIDs)

	default:
		return nil, nil
	}
}

func (s *ProgressService) exerciseIDsForTopics(ctx context.Context, topicIDs []string) ([]string, error) {
	ids, err := s.problemRepo.ListIDsByTopics(ctx, topicIDs)
	if err != nil {
		return nil, common.Errorf("failed to expand topic filter: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// topicCompletion returns (completed, total) for the user over a topic's exercises.
func (s *ProgressService) topicCompletion(ctx context.Context, userID, topicID string) (int, int, error) {
	exerciseIDs, err := s.problemRepo.ListIDsByTopic(ctx, topicID)
	if err != nil {
		return 0, 0, common.Errorf("failed to load exercises for topic %s: %w", topicID, err)
	}
	total := len(exerciseIDs)
	if total == 0 {
		return 0, 0, nil
	}
	completed, err := s.exerciseRepo.CountCompleted(ctx, userID, exerciseIDs)
	if err != nil {
		return 0, 0, common.Errorf("failed to count completed exercises: %w", err)
	}
	return completed, total, nil
}

func percent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

func dedupeSubjects(subjects []model.Subject) []model.Subject {
	seen := map[string]bool{}
	out := []model.Subject{}
	for _, s := range subjects {
		if s.ID == "" || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}

func isID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

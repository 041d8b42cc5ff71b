package inmem

import (
	"context"
	"sort"
	"time"

	"courses_sheet_api/internal/domain/model"
	"courses_sheet_api/internal/domain/repository"

	"github.com/google/uuid"
)

// --- legacy progress + course assignments ---

type progressRepository struct{ s *Store }

func NewProgressRepository(s *Store) repository.ProgressRepository { return &progressRepository{s: s} }

func (r *progressRepository) ListAssignmentsByUser(ctx context.Context, userID string) ([]model.CourseAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	assignments := []model.CourseAssignment{}
	for _, a := range r.s.assignments {
		if a.UserID != userID || a.SubjectID == nil {
			continue
		}
		if subj, ok := r.s.subjects[*a.SubjectID]; ok {
			subject := subj
			a.Subject = &subject
		}
		assignments = append(assignments, a)
	}
	sort.Slice(assignments, func(i, j int) bool {
		return assignments[i].AssignedAt.Before(assignments[j].AssignedAt)
	})
	return assignments, nil
}

func (r *progressRepository) UpsertLegacy(ctx context.Context, p *model.UserProgress) (*model.UserProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	matches := func(rec model.UserProgress) bool {
		if rec.UserID != p.UserID || rec.SubjectID != p.SubjectID {
			return false
		}
		if p.TopicID != nil && (rec.TopicID == nil || *rec.TopicID != *p.TopicID) {
			return false
		}
		if p.ProblemID != nil && (rec.ProblemID == nil || *rec.ProblemID != *p.ProblemID) {
			return false
		}
		return true
	}
	for i, rec := range r.s.legacy {
		if matches(rec) {
			r.s.legacy[i].Status = p.Status
			r.s.legacy[i].LastVisited = p.LastVisited
			record := r.s.legacy[i]
			return &record, nil
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	r.s.legacy = append(r.s.legacy, *p)
	record := *p
	return &record, nil
}

func (r *progressRepository) ListLegacyByUserAndSubjects(ctx context.Context, userID string, subjectIDs []string) ([]model.UserProgress, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	wanted := map[string]bool{}
	for _, id := range subjectIDs {
		wanted[id] = true
	}
	records := []model.UserProgress{}
	for _, rec := range r.s.legacy {
		if rec.UserID == userID && wanted[rec.SubjectID] {
			records = append(records, rec)
		}
	}
	return records, nil
}

// --- exercise progress ---

type exerciseProgressRepository struct{ s *Store }

func NewExerciseProgressRepository(s *Store) repository.ExerciseProgressRepository {
	return &exerciseProgressRepository{s: s}
}

func (r *exerciseProgressRepository) Upsert(ctx context.Context, userID, exerciseID string, answer *string, status model.ProgressStatus) (*model.UserExerciseProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := progressKey(userID, exerciseID)
	rec, ok := r.s.exercises[key]
	if !ok {
		rec = model.UserExerciseProgress{
			ID:         uuid.NewString(),
			UserID:     userID,
			ExerciseID: exerciseID,
		}
	}
	if answer != nil {
		rec.Answer = answer
	}
	rec.Status = status
	rec.UpdatedAt = time.Now().UTC()
	r.s.exercises[key] = rec
	record := rec
	return &record, nil
}

func (r *exerciseProgressRepository) CountCompleted(ctx context.Context, userID string, exerciseIDs []string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, eid := range exerciseIDs {
		if rec, ok := r.s.exercises[progressKey(userID, eid)]; ok && rec.Status == model.ProgressCompleted {
			n++
		}
	}
	return n, nil
}

func (r *exerciseProgressRepository) MarkAllCompleted(ctx context.Context, userID string, exerciseIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	for _, eid := range exerciseIDs {
		key := progressKey(userID, eid)
		rec, ok := r.s.exercises[key]
		if !ok {
			rec = model.UserExerciseProgress{
				ID:         uuid.NewString(),
				UserID:     userID,
				ExerciseID: eid,
			}
		}
		rec.Status = model.ProgressCompleted
		rec.UpdatedAt = now
		r.s.exercises[key] = rec
	}
	return nil
}

func (r *exerciseProgressRepository) DemoteCompleted(ctx context.Context, userID string, exerciseIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	for _, eid := range exerciseIDs {
		key := progressKey(userID, eid)
		if rec, ok := r.s.exercises[key]; ok && rec.Status == model.ProgressCompleted {
			rec.Status = model.ProgressAttempted
			rec.UpdatedAt = now
			r.s.exercises[key] = rec
		}
	}
	return nil
}

func (r *exerciseProgressRepository) ListByUser(ctx context.Context, userID string) ([]model.UserExerciseProgress, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	records := []model.UserExerciseProgress{}
	for _, rec := range r.s.exercises {
		if rec.UserID != userID {
			continue
		}
		rec.Exercise = r.s.chainLocked(rec.ExerciseID)
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].UpdatedAt.After(records[j].UpdatedAt) })
	return records, nil
}

func (r *exerciseProgressRepository) ListByUserAndExercises(ctx context.Context, userID string, exerciseIDs []string) ([]model.UserExerciseProgress, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	records := []model.UserExerciseProgress{}
	for _, eid := range exerciseIDs {
		if rec, ok := r.s.exercises[progressKey(userID, eid)]; ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (r *exerciseProgressRepository) ListSubmissions(ctx context.Context, filter repository.SubmissionFilter) ([]model.UserExerciseProgress, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var userSet, exerciseSet map[string]bool
	if filter.UserIDs != nil {
		userSet = map[string]bool{}
		for _, id := range filter.UserIDs {
			userSet[id] = true
		}
	}
	if filter.ExerciseIDs != nil {
		exerciseSet = map[string]bool{}
		for _, id := range filter.ExerciseIDs {
			exerciseSet[id] = true
		}
	}

	matched := []model.UserExerciseProgress{}
	for _, rec := range r.s.exercises {
		if userSet != nil && !userSet[rec.UserID] {
			continue
		}
		if exerciseSet != nil && !exerciseSet[rec.ExerciseID] {
			continue
		}
		if u, ok := r.s.users[rec.UserID]; ok {
			user := model.User{ID: u.ID, Username: u.Username, Email: u.Email}
			rec.User = &user
		}
		rec.Exercise = r.s.chainLocked(rec.ExerciseID)
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].UpdatedAt.After(matched[j].UpdatedAt) })

	total := len(matched)
	start := filter.Offset
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if filter.Limit <= 0 || end > total {
		end = total
	}
	return matched[start:end], total, nil
}

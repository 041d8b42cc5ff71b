// Package inmem provides in-memory implementations of the repository
// interfaces, used by tests in place of Postgres.
package inmem

import (
	"sort"
	"strings"
	"sync"
	"time"

	"courses_sheet_api/internal/domain/model"
)

type Store struct {
	mu sync.RWMutex

	categories   map[string]model.Category
	subjects     map[string]model.Subject
	topics       map[string]model.Topic
	problems     map[string]model.Problem
	users        map[string]model.User
	userSubjects map[string][]string // user id -> subject ids, insertion-ordered
	assignments  []model.CourseAssignment
	legacy       []model.UserProgress
	exercises    map[string]model.UserExerciseProgress // user|exercise -> record

	// Failure hooks for transactional tests.
	FailReplaceAssignments error
	FailReplaceProblems    error
}

func NewStore() *Store {
	return &Store{
		categories:   map[string]model.Category{},
		subjects:     map[string]model.Subject{},
		topics:       map[string]model.Topic{},
		problems:     map[string]model.Problem{},
		users:        map[string]model.User{},
		userSubjects: map[string][]string{},
		exercises:    map[string]model.UserExerciseProgress{},
	}
}

func progressKey(userID, exerciseID string) string { return userID + "|" + exerciseID }

func containsFold(s, fragment string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(fragment))
}

// SeedAssignment appends a legacy course_assignments row directly; tests use it
// to exercise the CourseAssignment read paths.
func (s *Store) SeedAssignment(a model.CourseAssignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now().UTC()
	}
	s.assignments = append(s.assignments, a)
}

// ExerciseRecord returns a copy of the stored (user, exercise) record, if any.
func (s *Store) ExerciseRecord(userID, exerciseID string) (model.UserExerciseProgress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.exercises[progressKey(userID, exerciseID)]
	return rec, ok
}

// TopicContent returns the stored content of a topic, if it exists.
func (s *Store) TopicContent(topicID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.topics[topicID]
	return t.Content, ok
}

// ProblemsByTopic returns copies of the stored problems under a topic, sorted by title.
func (s *Store) ProblemsByTopic(topicID string) []model.Problem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.problemsByTopicLocked(topicID)
}

func (s *Store) problemsByTopicLocked(topicID string) []model.Problem {
	problems := []model.Problem{}
	for _, p := range s.problems {
		if p.TopicID == topicID {
			problems = append(problems, p)
		}
	}
	sort.Slice(problems, func(i, j int) bool { return problems[i].Title < problems[j].Title })
	return problems
}

func (s *Store) topicsBySubjectsLocked(subjectIDs []string) []model.Topic {
	wanted := map[string]bool{}
	for _, id := range subjectIDs {
		wanted[id] = true
	}
	topics := []model.Topic{}
	for _, t := range s.topics {
		if wanted[t.SubjectID] {
			topics = append(topics, t)
		}
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })
	return topics
}

// chainLocked builds the exercise -> topic -> subject -> category view for a problem.
func (s *Store) chainLocked(problemID string) *model.Problem {
	p, ok := s.problems[problemID]
	if !ok {
		return nil
	}
	if t, ok := s.topics[p.TopicID]; ok {
		topic := t
		if subj, ok := s.subjects[t.SubjectID]; ok {
			subject := subj
			if cat, ok := s.categories[subj.CategoryID]; ok {
				category := cat
				subject.Category = &category
			}
			topic.Subject = &subject
		}
		p.Topic = &topic
	}
	return &p
}
